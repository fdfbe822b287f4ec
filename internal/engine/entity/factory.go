package entity

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/internal/logger"
)

// Factory loads each model and texture once and hands out new entities
// that share them.
type Factory struct {
	dev      gpu.Device
	src      assets.Source
	models   map[string]*asset.Model
	textures map[string]*asset.Texture
	log      *zap.Logger
}

// NewFactory creates a factory loading from src onto dev.
func NewFactory(dev gpu.Device, src assets.Source) *Factory {
	return &Factory{
		dev:      dev,
		src:      src,
		models:   make(map[string]*asset.Model),
		textures: make(map[string]*asset.Texture),
		log:      logger.Named("factory"),
	}
}

// Acquire returns a new entity using the cached model and texture for the
// given paths, loading each on first request.
func (f *Factory) Acquire(modelPath, texturePath string) (*Entity, error) {
	tex, err := f.Texture(texturePath)
	if err != nil {
		return nil, fmt.Errorf("acquiring entity: %w", err)
	}
	model, err := f.Model(modelPath)
	if err != nil {
		return nil, fmt.Errorf("acquiring entity: %w", err)
	}
	return New(model, tex), nil
}

// Model returns the shared model for path.
func (f *Factory) Model(path string) (*asset.Model, error) {
	key := asset.Key(path)
	if m, ok := f.models[key]; ok {
		return m, nil
	}
	m, err := asset.LoadModel(f.dev, f.src, path)
	if err != nil {
		return nil, err
	}
	f.models[key] = m
	f.log.Debug("model loaded", zap.String("path", path), zap.Int("parts", len(m.Parts())))
	return m, nil
}

// Texture returns the shared texture for path.
func (f *Factory) Texture(path string) (*asset.Texture, error) {
	key := asset.Key(path)
	if t, ok := f.textures[key]; ok {
		return t, nil
	}
	t, err := asset.LoadTexture(f.dev, f.src, path)
	if err != nil {
		return nil, err
	}
	f.textures[key] = t
	f.log.Debug("texture loaded", zap.String("path", path))
	return t, nil
}

// Counts returns the number of cached models and textures.
func (f *Factory) Counts() (models, textures int) {
	return len(f.models), len(f.textures)
}

// Release frees every cached asset. Entities created by the factory must not
// be drawn afterwards.
func (f *Factory) Release() error {
	var err error
	for key, m := range f.models {
		err = multierr.Append(err, m.Release(f.dev))
		delete(f.models, key)
	}
	for key, t := range f.textures {
		err = multierr.Append(err, t.Release(f.dev))
		delete(f.textures, key)
	}
	return err
}
