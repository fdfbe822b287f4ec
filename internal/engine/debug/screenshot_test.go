package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScreenshotSaveFlips(t *testing.T) {
	s := NewScreenshots(filepath.Join(t.TempDir(), "shots"), "fc")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	// 1x2 image: bottom row red, top row blue, in GL order.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := s.Save(pixels, 1, 2)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(name) != "fc_2024-01-02_03-04-05.png" {
		t.Errorf("name = %s", name)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); b == 0 || r != 0 {
		t.Error("top row should be blue after flip")
	}
	if r, _, b, _ := img.At(0, 1).RGBA(); r == 0 || b != 0 {
		t.Error("bottom row should be red after flip")
	}

	second, err := s.Save(pixels, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if second == name || filepath.Base(second) != "fc_2024-01-02_03-04-05_1.png" {
		t.Errorf("second capture in the same second = %s", second)
	}
}

func TestScreenshotSizeMismatch(t *testing.T) {
	s := NewScreenshots(t.TempDir(), "fc")
	if _, err := s.Save(make([]byte, 3), 1, 1); err == nil {
		t.Error("expected size mismatch error")
	}
	if _, err := s.Save(nil, 0, 0); err == nil {
		t.Error("expected error for empty image")
	}
}
