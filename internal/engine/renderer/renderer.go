// Package renderer draws entities through a gpu.Device, culling against the
// view frustum and skipping redundant texture and buffer binds.
package renderer

import (
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/internal/engine/entity"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/internal/logger"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// CullMargin is the fraction of the viewport the culling frustum covers.
const CullMargin = 0.95

// Stats counts the work done since the last BeginFrame.
type Stats struct {
	Draws        int
	Culled       int
	TextureBinds int
	BufferBinds  int
}

// Renderer holds the transform state and bind caches for one device.
type Renderer struct {
	dev gpu.Device

	world      math.Mat4
	view       math.Mat4
	projection math.Mat4
	viewProj   math.Mat4
	wvp        math.Mat4
	frustum    math.Frustum

	textures     [gpu.SlotCount]*asset.Texture
	lastModel    *asset.Model
	lastInverted bool
	lastCount    int

	stats Stats
	log   *zap.Logger
}

// New creates a renderer with identity transforms.
func New(dev gpu.Device) *Renderer {
	r := &Renderer{
		dev:        dev,
		world:      math.Identity(),
		view:       math.Identity(),
		projection: math.Identity(),
		log:        logger.Named("renderer"),
	}
	r.updateViewProj()
	return r
}

// SetWorld sets the object transform.
func (r *Renderer) SetWorld(m math.Mat4) {
	if m == r.world {
		return
	}
	r.world = m
	r.wvp = r.viewProj.Mul(r.world)
}

// SetView sets the camera transform.
func (r *Renderer) SetView(m math.Mat4) {
	if m == r.view {
		return
	}
	r.view = m
	r.updateViewProj()
}

// SetProjection sets the projection transform.
func (r *Renderer) SetProjection(m math.Mat4) {
	if m == r.projection {
		return
	}
	r.projection = m
	r.updateViewProj()
}

// Frustum returns the culling frustum for the current view and projection.
func (r *Renderer) Frustum() math.Frustum { return r.frustum }

func (r *Renderer) updateViewProj() {
	r.viewProj = r.projection.Mul(r.view)
	r.wvp = r.viewProj.Mul(r.world)
	// Scaling clip X/Y up pulls the side planes in to CullMargin of the
	// viewport.
	s := 1 / float32(CullMargin)
	r.frustum = math.ExtractFrustum(math.Scale(s, s, 1).Mul(r.viewProj))
}

// Bind binds tex to slot unless an equal texture is already there.
func (r *Renderer) Bind(tex *asset.Texture, slot int) {
	if tex == nil || slot < 0 || slot >= gpu.SlotCount {
		return
	}
	if tex.Equal(r.textures[slot]) {
		return
	}
	r.dev.BindTexture(slot, tex.ID())
	r.textures[slot] = tex
	r.stats.TextureBinds++
}

// Draw draws e with its effective transform. Entities without a model or
// entirely outside the frustum are skipped.
func (r *Renderer) Draw(e *entity.Entity) {
	model := e.Model()
	if model == nil {
		return
	}

	r.SetWorld(e.EffectiveTransform())
	r.dev.SetConstants(r.wvp)

	if r.frustum.ContainsBox(e.Bounds()) == math.Disjoint {
		r.stats.Culled++
		return
	}

	r.Bind(e.Texture, gpu.SlotDiffuse)

	// A mirroring transform flips triangle winding.
	inverted := r.world.Determinant3() < 0

	if model.Equal(r.lastModel) && inverted == r.lastInverted {
		r.dev.DrawIndexed(r.lastCount)
		r.stats.Draws++
		return
	}

	drawn := false
	for _, part := range model.Parts() {
		if part.IndexCount == 0 {
			continue
		}
		indices := part.Indices
		if inverted {
			indices = part.Inverted
		}
		r.dev.BindVertexBuffer(part.Vertices)
		r.dev.BindIndexBuffer(indices)
		r.dev.DrawIndexed(part.IndexCount)
		r.stats.BufferBinds++
		r.stats.Draws++
		r.lastCount = part.IndexCount
		drawn = true
	}
	if drawn {
		r.lastModel = model
		r.lastInverted = inverted
	}
}

// BeginFrame clears the device targets and the per-frame stats.
func (r *Renderer) BeginFrame() {
	r.dev.BeginFrame()
	r.stats = Stats{}
}

// Stats returns the counters for the current frame.
func (r *Renderer) Stats() Stats { return r.stats }

// Reset forgets every cached binding so the next draws rebind.
func (r *Renderer) Reset() {
	r.textures = [gpu.SlotCount]*asset.Texture{}
	r.lastModel = nil
	r.lastInverted = false
	r.lastCount = 0
	r.log.Debug("bind caches reset")
}
