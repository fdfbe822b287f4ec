package gpu

import (
	"fmt"
	"image"

	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// DrawCall is one recorded DrawIndexed with the state bound at the time.
type DrawCall struct {
	VertexBuffer BufferID
	IndexBuffer  BufferID
	Count        int
	Textures     [SlotCount]TextureID
	WVP          math.Mat4
}

// Recorder is an in-memory Device. It validates handles and records state
// changes and draws so tests can assert on what reached the GPU.
type Recorder struct {
	next     uint32
	buffers  map[BufferID]int // id -> element count
	textures map[TextureID]image.Point

	bound struct {
		vb, ib   BufferID
		textures [SlotCount]TextureID
		active   int
		wvp      math.Mat4
	}

	Draws          []DrawCall
	TextureBinds   int
	VertexBinds    int
	IndexBinds     int
	ConstantWrites int
	Frames         int
	Viewport       image.Point
}

// NewRecorder creates an empty recording device.
func NewRecorder() *Recorder {
	return &Recorder{
		buffers:  make(map[BufferID]int),
		textures: make(map[TextureID]image.Point),
	}
}

func (r *Recorder) id() uint32 {
	r.next++
	return r.next
}

func (r *Recorder) CreateVertexBuffer(vertices []formats.Vertex) (BufferID, error) {
	id := BufferID(r.id())
	r.buffers[id] = len(vertices)
	return id, nil
}

func (r *Recorder) CreateIndexBuffer(indices []uint32) (BufferID, error) {
	id := BufferID(r.id())
	r.buffers[id] = len(indices)
	return id, nil
}

func (r *Recorder) CreateTexture(img *image.RGBA) (TextureID, error) {
	if img == nil {
		return 0, fmt.Errorf("nil image")
	}
	id := TextureID(r.id())
	r.textures[id] = img.Bounds().Size()
	// Uploading binds the texture to the active slot, as GL does.
	r.bound.textures[r.bound.active] = id
	return id, nil
}

func (r *Recorder) DeleteBuffer(id BufferID) error {
	if _, ok := r.buffers[id]; !ok {
		return fmt.Errorf("delete of unknown buffer %d", id)
	}
	delete(r.buffers, id)
	return nil
}

func (r *Recorder) DeleteTexture(id TextureID) error {
	if _, ok := r.textures[id]; !ok {
		return fmt.Errorf("delete of unknown texture %d", id)
	}
	delete(r.textures, id)
	return nil
}

func (r *Recorder) BeginFrame() {
	r.Frames++
}

func (r *Recorder) SetViewport(width, height int) {
	r.Viewport = image.Pt(width, height)
}

func (r *Recorder) SetConstants(wvp math.Mat4) {
	r.ConstantWrites++
	r.bound.wvp = wvp
}

func (r *Recorder) BindTexture(slot int, id TextureID) {
	r.TextureBinds++
	r.bound.textures[slot] = id
	r.bound.active = slot
}

func (r *Recorder) BindVertexBuffer(id BufferID) {
	r.VertexBinds++
	r.bound.vb = id
}

func (r *Recorder) BindIndexBuffer(id BufferID) {
	r.IndexBinds++
	r.bound.ib = id
}

func (r *Recorder) DrawIndexed(count int) {
	r.Draws = append(r.Draws, DrawCall{
		VertexBuffer: r.bound.vb,
		IndexBuffer:  r.bound.ib,
		Count:        count,
		Textures:     r.bound.textures,
		WVP:          r.bound.wvp,
	})
}

// Reset clears recorded draws and counters, keeping live resources.
func (r *Recorder) Reset() {
	r.Draws = nil
	r.TextureBinds = 0
	r.VertexBinds = 0
	r.IndexBinds = 0
	r.ConstantWrites = 0
}

// LiveBuffers returns the number of buffers not yet deleted.
func (r *Recorder) LiveBuffers() int {
	return len(r.buffers)
}

// LiveTextures returns the number of textures not yet deleted.
func (r *Recorder) LiveTextures() int {
	return len(r.textures)
}

// BufferLen returns the element count a buffer was created with.
func (r *Recorder) BufferLen(id BufferID) int {
	return r.buffers[id]
}

var _ Device = (*Recorder)(nil)
