package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"testing"
)

func TestBC3Size(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{4, 4, 16},
		{1, 1, 16},
		{8, 4, 32},
		{5, 5, 64},
		{256, 256, 64 * 64 * 16},
	}
	for _, tt := range tests {
		if got := BC3Size(tt.w, tt.h); got != tt.want {
			t.Errorf("BC3Size(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestTextureRoundTrip(t *testing.T) {
	tex := SolidTexture(8, 4, color.NRGBA{255, 255, 255, 255})

	var buf bytes.Buffer
	if err := EncodeTexture(&buf, tex); err != nil {
		t.Fatalf("EncodeTexture: %v", err)
	}
	if buf.Len() != 12+32 {
		t.Errorf("encoded length = %d, want %d", buf.Len(), 12+32)
	}

	got, err := ParseTexture(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseTexture: %v", err)
	}
	if got.Width != 8 || got.Height != 4 {
		t.Errorf("size = %dx%d, want 8x4", got.Width, got.Height)
	}
	if !bytes.Equal(got.Blocks, tex.Blocks) {
		t.Error("blocks differ after round trip")
	}
}

func TestTextureDecodeSolid(t *testing.T) {
	tex := SolidTexture(6, 3, color.NRGBA{255, 255, 255, 255})

	img, err := tex.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 3 {
		t.Fatalf("decoded bounds = %v, want 6x3", b)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			c := img.RGBAAt(x, y)
			if c != (color.RGBA{255, 255, 255, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want opaque white", x, y, c)
			}
		}
	}
}

func TestParseTexture_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedTexture},
		{"short header", []byte{4, 0, 0, 0}, ErrTruncatedTexture},
		{"zero width", makeTexture(0, 4, 16, 16), ErrInvalidDimensions},
		{"negative height", makeTexture(4, -4, 16, 16), ErrInvalidDimensions},
		{"too large", makeTexture(1<<20, 4, 16, 16), ErrInvalidDimensions},
		{"payload shorter than length", makeTexture(4, 4, 16, 8), ErrTruncatedTexture},
		{"length mismatch", makeTexture(8, 8, 16, 16), ErrBlockSizeMismatch},
		{"negative length", makeTexture(4, 4, -1, 0), ErrTruncatedTexture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTexture(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseTexture() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeTexture_Mismatch(t *testing.T) {
	tex := &TextureData{Width: 4, Height: 4, Blocks: make([]byte, 8)}
	if err := EncodeTexture(&bytes.Buffer{}, tex); !errors.Is(err, ErrBlockSizeMismatch) {
		t.Errorf("EncodeTexture() error = %v, want %v", err, ErrBlockSizeMismatch)
	}
}

// makeTexture builds a texture file with the given header and payload size.
func makeTexture(w, h, length int32, payload int) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, [3]int32{w, h, length})
	buf.Write(make([]byte, payload))
	return buf.Bytes()
}
