// Texture (.dxt) format parser and encoder. Pixel data is BC3 (DXT5), one mip.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/mauserzjeh/dxt"
)

// Texture format errors.
var (
	ErrTruncatedTexture  = errors.New("truncated texture data")
	ErrInvalidDimensions = errors.New("invalid texture dimensions")
	ErrBlockSizeMismatch = errors.New("block data size does not match dimensions")
)

const (
	maxTextureDimension = 16384
	textureHeaderSize   = 12
	bc3BlockSize        = 16
)

// TextureData is a parsed .dxt file.
type TextureData struct {
	Width  int
	Height int
	Blocks []byte // BC3 blocks, row-major, 4x4 pixels each
}

// BC3Size returns the payload length of a BC3 image of the given size.
func BC3Size(width, height int) int {
	return ((width + 3) / 4) * ((height + 3) / 4) * bc3BlockSize
}

// ParseTexture parses texture data from a byte slice.
func ParseTexture(data []byte) (*TextureData, error) {
	if len(data) < textureHeaderSize {
		return nil, ErrTruncatedTexture
	}

	r := bytes.NewReader(data)
	var header struct {
		Width, Height, Length int32
	}
	binary.Read(r, binary.LittleEndian, &header)

	if header.Width <= 0 || header.Height <= 0 ||
		header.Width > maxTextureDimension || header.Height > maxTextureDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, header.Width, header.Height)
	}
	if header.Length < 0 || int(header.Length) > r.Len() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedTexture, header.Length, r.Len())
	}
	if want := BC3Size(int(header.Width), int(header.Height)); int(header.Length) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d, want %d",
			ErrBlockSizeMismatch, header.Length, header.Width, header.Height, want)
	}

	blocks := make([]byte, header.Length)
	r.Read(blocks)

	return &TextureData{
		Width:  int(header.Width),
		Height: int(header.Height),
		Blocks: blocks,
	}, nil
}

// ParseTextureFile parses a texture file from disk.
func ParseTextureFile(path string) (*TextureData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texture file: %w", err)
	}
	return ParseTexture(data)
}

// EncodeTexture writes t in the .dxt layout.
func EncodeTexture(w io.Writer, t *TextureData) error {
	if want := BC3Size(t.Width, t.Height); len(t.Blocks) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBlockSizeMismatch, len(t.Blocks), want)
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [3]int32{int32(t.Width), int32(t.Height), int32(len(t.Blocks))})
	buf.Write(t.Blocks)
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode expands the BC3 blocks to an RGBA image.
func (t *TextureData) Decode() (*image.RGBA, error) {
	// Decode at block-aligned size, then crop to the real dimensions.
	bw := (t.Width + 3) &^ 3
	bh := (t.Height + 3) &^ 3

	pix, err := dxt.DecodeDXT5(t.Blocks, uint(bw), uint(bh))
	if err != nil {
		return nil, fmt.Errorf("decoding DXT5 %dx%d: %w", t.Width, t.Height, err)
	}
	if len(pix) < bw*bh*4 {
		return nil, fmt.Errorf("%w: decoded %d bytes for %dx%d", ErrBlockSizeMismatch, len(pix), bw, bh)
	}

	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+t.Width*4], pix[y*bw*4:y*bw*4+t.Width*4])
	}
	return img, nil
}

// SolidTexture returns a width x height BC3 texture filled with one color.
func SolidTexture(width, height int, c color.NRGBA) *TextureData {
	block := solidBC3Block(c)
	n := BC3Size(width, height) / bc3BlockSize
	blocks := make([]byte, 0, n*bc3BlockSize)
	for i := 0; i < n; i++ {
		blocks = append(blocks, block[:]...)
	}
	return &TextureData{Width: width, Height: height, Blocks: blocks}
}

// solidBC3Block encodes a 4x4 block where every texel is c. Both alpha
// endpoints and both color endpoints are equal, so all indices are zero.
func solidBC3Block(c color.NRGBA) [bc3BlockSize]byte {
	var b [bc3BlockSize]byte
	b[0], b[1] = c.A, c.A
	rgb565 := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
	binary.LittleEndian.PutUint16(b[8:], rgb565)
	binary.LittleEndian.PutUint16(b[10:], rgb565)
	return b
}
