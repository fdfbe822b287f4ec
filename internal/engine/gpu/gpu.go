// Package gpu defines the graphics device boundary used by the renderer and
// asset loaders.
package gpu

import (
	"image"

	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// BufferID identifies a vertex or index buffer. Zero is never valid.
type BufferID uint32

// TextureID identifies a texture. Zero is never valid.
type TextureID uint32

// Texture sampler slots.
const (
	SlotDiffuse  = 0
	SlotLightmap = 1
	SlotCount    = 2
)

// Device is the set of graphics operations the scene needs. All calls are
// made from the render thread.
type Device interface {
	CreateVertexBuffer(vertices []formats.Vertex) (BufferID, error)
	CreateIndexBuffer(indices []uint32) (BufferID, error)
	// CreateTexture may leave the new texture bound to the most recently
	// bound slot, so texture binding caches must be dropped afterwards.
	CreateTexture(img *image.RGBA) (TextureID, error)
	DeleteBuffer(id BufferID) error
	DeleteTexture(id TextureID) error

	// BeginFrame clears the color and depth targets.
	BeginFrame()
	SetViewport(width, height int)
	// SetConstants uploads the world-view-projection matrix.
	SetConstants(wvp math.Mat4)
	BindTexture(slot int, id TextureID)
	BindVertexBuffer(id BufferID)
	BindIndexBuffer(id BufferID)
	// DrawIndexed draws count indices of the bound buffers as triangles.
	DrawIndexed(count int)
}
