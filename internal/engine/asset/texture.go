package asset

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/pkg/formats"
)

// Texture is an immutable GPU image identified by path.
type Texture struct {
	path   string
	key    string
	id     gpu.TextureID
	width  int
	height int
}

// Path returns the path or name the texture was created from.
func (t *Texture) Path() string { return t.path }

// Key returns the folded path used for identity and sorting.
func (t *Texture) Key() string { return t.key }

// ID returns the GPU handle.
func (t *Texture) ID() gpu.TextureID { return t.id }

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// Equal reports whether both textures refer to the same path,
// compared case-insensitively.
func (t *Texture) Equal(other *Texture) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.key == other.key
}

// LoadTexture reads a .dxt file from src, decodes it and uploads it to dev.
func LoadTexture(dev gpu.Device, src assets.Source, path string) (*Texture, error) {
	data, err := src.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading texture %s: %w", path, err)
	}
	td, err := formats.ParseTexture(data)
	if err != nil {
		return nil, fmt.Errorf("parsing texture %s: %w", path, err)
	}
	img, err := td.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", path, err)
	}
	return NewTexture(dev, path, img)
}

// NewTexture uploads img under the given identity path.
func NewTexture(dev gpu.Device, path string, img *image.RGBA) (*Texture, error) {
	id, err := dev.CreateTexture(img)
	if err != nil {
		return nil, fmt.Errorf("uploading texture %s: %w", path, err)
	}
	size := img.Bounds().Size()
	return &Texture{
		path:   path,
		key:    Key(path),
		id:     id,
		width:  size.X,
		height: size.Y,
	}, nil
}

// Solid uploads a 1x1 texture of a single color, used as the neutral
// lightmap and as a placeholder for missing avatars.
func Solid(dev gpu.Device, name string, c color.RGBA) (*Texture, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return NewTexture(dev, name, img)
}

// Release deletes the GPU texture.
func (t *Texture) Release(dev gpu.Device) error {
	if t.id == 0 {
		return nil
	}
	err := dev.DeleteTexture(t.id)
	t.id = 0
	return err
}

// MapObject is a decoration template: a model and the lightmap baked for it.
type MapObject struct {
	Model    *Model
	Lightmap *Texture
}
