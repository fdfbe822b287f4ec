package feed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Avatar cache file layout, little-endian:
//
//	[4]byte magic "FCAV"
//	u32 width, u32 height
//	u32 compressed length (0 when the pixels are stored raw)
//	pixels, width*height*4 bytes RGBA once decompressed
const (
	cacheExt        = ".lz4"
	cacheHeaderSize = 16
)

var cacheMagic = [4]byte{'F', 'C', 'A', 'V'}

var (
	ErrBadCacheKey   = errors.New("invalid avatar cache key")
	ErrCorruptCache  = errors.New("corrupt avatar cache entry")
	errCacheTooLarge = errors.New("avatar too large to cache")
)

// maxCachedSide bounds decoded dimensions read back from disk.
const maxCachedSide = 1024

// DiskCache persists decoded avatars between runs as lz4-compressed RGBA.
type DiskCache struct {
	dir string
}

// NewDiskCache creates dir if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating avatar cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadCacheKey, key)
	}
	return filepath.Join(c.dir, key+cacheExt), nil
}

// Has reports whether key is cached.
func (c *DiskCache) Has(key string) bool {
	p, err := c.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Save writes img under key, replacing any previous entry.
func (c *DiskCache) Save(key string, img *image.RGBA) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	size := img.Rect.Size()
	if size.X > maxCachedSide || size.Y > maxCachedSide {
		return errCacheTooLarge
	}
	raw := packRGBA(img)

	buf := make([]byte, cacheHeaderSize+lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, buf[cacheHeaderSize:], nil)
	if err != nil {
		return fmt.Errorf("compressing avatar %s: %w", key, err)
	}
	if n == 0 || n >= len(raw) {
		// Incompressible.
		buf = append(buf[:cacheHeaderSize], raw...)
		n = 0
	} else {
		buf = buf[:cacheHeaderSize+n]
	}
	copy(buf[0:4], cacheMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size.X))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(size.Y))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n))

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("writing avatar %s: %w", key, err)
	}
	return os.Rename(tmp, p)
}

// Load reads the avatar stored under key.
func (c *DiskCache) Load(key string) (*image.RGBA, error) {
	p, err := c.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if len(data) < cacheHeaderSize || [4]byte(data[0:4]) != cacheMagic {
		return nil, fmt.Errorf("%w: %s: bad header", ErrCorruptCache, key)
	}
	w := int(binary.LittleEndian.Uint32(data[4:8]))
	h := int(binary.LittleEndian.Uint32(data[8:12]))
	clen := int(binary.LittleEndian.Uint32(data[12:16]))
	if w <= 0 || h <= 0 || w > maxCachedSide || h > maxCachedSide {
		return nil, fmt.Errorf("%w: %s: size %dx%d", ErrCorruptCache, key, w, h)
	}

	payload := data[cacheHeaderSize:]
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if clen == 0 {
		if len(payload) != len(img.Pix) {
			return nil, fmt.Errorf("%w: %s: raw length %d", ErrCorruptCache, key, len(payload))
		}
		copy(img.Pix, payload)
		return img, nil
	}
	if clen != len(payload) {
		return nil, fmt.Errorf("%w: %s: compressed length %d, have %d", ErrCorruptCache, key, clen, len(payload))
	}
	n, err := lz4.UncompressBlock(payload, img.Pix)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCache, key, err)
	}
	if n != len(img.Pix) {
		return nil, fmt.Errorf("%w: %s: decompressed %d of %d bytes", ErrCorruptCache, key, n, len(img.Pix))
	}
	return img, nil
}

// Keys lists every cached avatar key.
func (c *DiskCache) Keys() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, cacheExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, cacheExt))
	}
	return keys, nil
}

func packRGBA(img *image.RGBA) []byte {
	size := img.Rect.Size()
	stride := size.X * 4
	if img.Stride == stride && img.Rect.Min == (image.Point{}) {
		return img.Pix[:stride*size.Y]
	}
	out := make([]byte, stride*size.Y)
	for y := 0; y < size.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*stride:], img.Pix[off:off+stride])
	}
	return out
}
