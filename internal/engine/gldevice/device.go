// Package gldevice implements gpu.Device on OpenGL 4.1 core.
package gldevice

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/internal/engine/shader"
	"github.com/Faultbox/follower-catcher/internal/logger"
	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// Device draws with a single shader program and vertex layout.
type Device struct {
	program *shader.Program
	vao     uint32
	wvpLoc  int32
	log     *zap.Logger
}

// New creates a device on the current OpenGL context.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	d := &Device{log: logger.Named("gl")}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	program, err := shader.CompileProgram(shader.SceneVertexShader, shader.SceneFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("creating scene program: %w", err)
	}
	if err := program.RequireUniforms("uWVP", "uTexture", "uLightmap"); err != nil {
		program.Delete()
		return nil, err
	}
	d.program = program
	d.wvpLoc = program.Uniform("uWVP")

	program.Use()
	gl.Uniform1i(program.Uniform("uTexture"), gpu.SlotDiffuse)
	gl.Uniform1i(program.Uniform("uLightmap"), gpu.SlotLightmap)

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.EnableVertexAttribArray(0)
	gl.EnableVertexAttribArray(1)

	// Premultiplied alpha, depth tested, both faces drawn.
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.CULL_FACE)
	gl.ClearColor(0, 0, 0, 1)

	return d, nil
}

// Close releases the program and vertex array.
func (d *Device) Close() {
	d.log.Info("closing device")
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
	if d.program != nil {
		d.program.Delete()
	}
}

// CreateVertexBuffer uploads vertices to a static array buffer.
func (d *Device) CreateVertexBuffer(vertices []formats.Vertex) (gpu.BufferID, error) {
	if len(vertices) == 0 {
		return 0, fmt.Errorf("empty vertex buffer")
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.ARRAY_BUFFER, id)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*formats.VertexSize, gl.Ptr(vertices), gl.STATIC_DRAW)
	return gpu.BufferID(id), nil
}

// CreateIndexBuffer uploads 32-bit indices to a static element buffer.
func (d *Device) CreateIndexBuffer(indices []uint32) (gpu.BufferID, error) {
	if len(indices) == 0 {
		return 0, fmt.Errorf("empty index buffer")
	}
	var id uint32
	gl.GenBuffers(1, &id)
	// Index buffer binding is VAO state; restore whatever was bound.
	var prev int32
	gl.GetIntegerv(gl.ELEMENT_ARRAY_BUFFER_BINDING, &prev)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(prev))
	return gpu.BufferID(id), nil
}

// CreateTexture uploads img as a linear, repeating RGBA texture.
func (d *Device) CreateTexture(img *image.RGBA) (gpu.TextureID, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, fmt.Errorf("empty texture image")
	}
	size := img.Bounds().Size()
	if img.Stride != size.X*4 || img.Rect.Min != (image.Point{}) {
		tight := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		draw.Draw(tight, tight.Bounds(), img, img.Rect.Min, draw.Src)
		img = tight
	}

	var id uint32
	gl.GenTextures(1, &id)
	// Upload on the active unit, then put its previous texture back.
	var prev int32
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &prev)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(size.X), int32(size.Y), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, uint32(prev))
	return gpu.TextureID(id), nil
}

// DeleteBuffer frees a vertex or index buffer.
func (d *Device) DeleteBuffer(id gpu.BufferID) error {
	buf := uint32(id)
	gl.DeleteBuffers(1, &buf)
	return glError("delete buffer")
}

// DeleteTexture frees a texture.
func (d *Device) DeleteTexture(id gpu.TextureID) error {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
	return glError("delete texture")
}

// BeginFrame clears the targets and binds the program and vertex array.
func (d *Device) BeginFrame() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	d.program.Use()
	gl.BindVertexArray(d.vao)
}

// SetViewport sets the viewport to the full drawable.
func (d *Device) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// SetConstants uploads the world-view-projection matrix.
func (d *Device) SetConstants(wvp math.Mat4) {
	gl.UniformMatrix4fv(d.wvpLoc, 1, false, wvp.Ptr())
}

// BindTexture binds id to texture unit slot.
func (d *Device) BindTexture(slot int, id gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(slot))
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

// BindVertexBuffer binds id and points the vertex attributes at it.
func (d *Device) BindVertexBuffer(id gpu.BufferID) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(id))
	// Attribute pointers capture the bound array buffer.
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, formats.VertexSize, 0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, formats.VertexSize, 12)
}

// BindIndexBuffer binds id as the element buffer.
func (d *Device) BindIndexBuffer(id gpu.BufferID) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(id))
}

// DrawIndexed draws count indices of the bound buffers as triangles.
func (d *Device) DrawIndexed(count int) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, 0)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (d *Device) ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}

var _ gpu.Device = (*Device)(nil)
