// Package asset holds the GPU-resident meshes and textures shared by
// entities.
package asset

import (
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/text/cases"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

var fold = cases.Fold()

// Key returns the case-insensitive identity of an asset path.
func Key(path string) string {
	return fold.String(path)
}

// MeshPart is one uploaded vertex/index set.
type MeshPart struct {
	Vertices   gpu.BufferID
	Indices    gpu.BufferID
	Inverted   gpu.BufferID // winding-swapped copy of Indices
	IndexCount int
}

// Model is immutable geometry loaded from a .mdl file.
type Model struct {
	path   string
	key    string
	bounds math.BBox
	parts  []MeshPart
}

// Path returns the path the model was loaded from.
func (m *Model) Path() string { return m.path }

// Key returns the folded path used for identity and sorting.
func (m *Model) Key() string { return m.key }

// Bounds returns the local-space bounding box.
func (m *Model) Bounds() math.BBox { return m.bounds }

// Parts returns the mesh parts in file order.
func (m *Model) Parts() []MeshPart { return m.parts }

// Equal reports whether other may reuse m's bound buffers: both must be
// single-part models loaded from the same path, compared case-insensitively.
// Multi-part models are never equal, even to themselves.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return false
	}
	if len(m.parts) != 1 || len(other.parts) != 1 {
		return false
	}
	return m.key == other.key
}

// LoadModel reads path from src and uploads it to dev.
func LoadModel(dev gpu.Device, src assets.Source, path string) (*Model, error) {
	data, err := src.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}
	mesh, err := formats.ParseMesh(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	m, err := NewModel(dev, path, mesh)
	if err != nil {
		return nil, fmt.Errorf("uploading model %s: %w", path, err)
	}
	return m, nil
}

// NewModel uploads a parsed mesh. Empty parts get no buffers. On failure
// every buffer created so far is released.
func NewModel(dev gpu.Device, path string, mesh *formats.Mesh) (*Model, error) {
	m := &Model{
		path:   path,
		key:    Key(path),
		bounds: mesh.Bounds,
		parts:  make([]MeshPart, 0, len(mesh.Parts)),
	}

	for i := range mesh.Parts {
		src := &mesh.Parts[i]
		m.parts = append(m.parts, MeshPart{IndexCount: len(src.Indices)})
		if len(src.Vertices) == 0 || len(src.Indices) == 0 {
			continue
		}
		part := &m.parts[len(m.parts)-1]

		var err error
		part.Vertices, err = dev.CreateVertexBuffer(src.Vertices)
		if err == nil {
			part.Indices, err = dev.CreateIndexBuffer(src.Indices)
		}
		if err == nil {
			part.Inverted, err = dev.CreateIndexBuffer(src.Inverted)
		}
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("part %d: %w", i, err), m.Release(dev))
		}
	}
	return m, nil
}

// Release deletes the model's GPU buffers.
func (m *Model) Release(dev gpu.Device) error {
	var err error
	for _, p := range m.parts {
		for _, id := range []gpu.BufferID{p.Vertices, p.Indices, p.Inverted} {
			if id != 0 {
				err = multierr.Append(err, dev.DeleteBuffer(id))
			}
		}
	}
	m.parts = nil
	return err
}
