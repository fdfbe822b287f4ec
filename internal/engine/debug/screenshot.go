// Package debug provides developer utilities for the running game.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshots writes framebuffer captures as numbered PNG files.
type Screenshots struct {
	dir    string
	prefix string
	now    func() time.Time
	last   string
	seq    int
}

// NewScreenshots creates a capture writer for dir. Files are named
// prefix_<timestamp>.png, with a suffix when several land in one second.
func NewScreenshots(dir, prefix string) *Screenshots {
	return &Screenshots{dir: dir, prefix: prefix, now: time.Now}
}

// Dir returns the output directory.
func (s *Screenshots) Dir() string { return s.dir }

func (s *Screenshots) filename() string {
	stamp := s.now().Format("2006-01-02_15-04-05")
	if stamp == s.last {
		s.seq++
		stamp = fmt.Sprintf("%s_%d", stamp, s.seq)
	} else {
		s.last = stamp
		s.seq = 0
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.png", s.prefix, stamp))
}

// Save writes bottom-up RGBA rows, as read back from OpenGL, to a new
// PNG and returns its path.
func (s *Screenshots) Save(pixels []byte, width, height int) (string, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: %dx%d with %d bytes", width, height, len(pixels))
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}

	name := s.filename()
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}
