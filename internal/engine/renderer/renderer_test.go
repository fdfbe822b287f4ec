package renderer

import (
	"image/color"
	gomath "math"
	"testing"

	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/internal/engine/entity"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

type fixture struct {
	dev   *gpu.Recorder
	r     *Renderer
	cube  *asset.Model
	multi *asset.Model
	red   *asset.Texture
	blue  *asset.Texture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := gpu.NewRecorder()

	cube, err := asset.NewModel(dev, "cube.mdl", formats.Cube(2))
	if err != nil {
		t.Fatal(err)
	}
	two := formats.Cube(2)
	two.Parts = append(two.Parts, formats.Cube(1).Parts[0])
	multi, err := asset.NewModel(dev, "multi.mdl", two)
	if err != nil {
		t.Fatal(err)
	}
	red, err := asset.Solid(dev, "red", color.RGBA{255, 0, 0, 255})
	if err != nil {
		t.Fatal(err)
	}
	blue, err := asset.Solid(dev, "blue", color.RGBA{0, 0, 255, 255})
	if err != nil {
		t.Fatal(err)
	}

	r := New(dev)
	r.SetView(math.LookAtLH(math.Vec3{Z: -10}, math.Vec3{}, math.Vec3{Y: 1}))
	r.SetProjection(math.PerspectiveLH(gomath.Pi/2, 1, 0.1, 100))
	return &fixture{dev: dev, r: r, cube: cube, multi: multi, red: red, blue: blue}
}

func (f *fixture) entity(model *asset.Model, tex *asset.Texture, x, z float32) *entity.Entity {
	e := entity.New(model, tex)
	e.SetTransform(math.Translate(x, 0, z))
	return e
}

func TestDrawCullsOutsideFrustum(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	f.r.Draw(f.entity(f.cube, f.red, 0, 0))
	f.r.Draw(f.entity(f.cube, f.red, 0, -50))  // behind the eye
	f.r.Draw(f.entity(f.cube, f.red, 500, 10)) // far to the side

	st := f.r.Stats()
	if st.Draws != 1 || st.Culled != 2 {
		t.Errorf("stats = %+v, want 1 draw 2 culled", st)
	}
	if len(f.dev.Draws) != 1 {
		t.Fatalf("device draws = %d, want 1", len(f.dev.Draws))
	}
	if f.dev.Draws[0].Count != 36 {
		t.Errorf("index count = %d, want 36", f.dev.Draws[0].Count)
	}
}

func TestCullMarginShrinksViewport(t *testing.T) {
	f := newFixture(t)
	fr := f.r.Frustum()

	// With a 90 degree fov the visible half-width at depth 10 is 10; the
	// culling frustum stops at 95% of it.
	inside := math.Vec3{X: 9.4, Z: 0}
	outside := math.Vec3{X: 9.6, Z: 0}
	if !fr.ContainsPoint(inside) {
		t.Error("point at 94% of the half-width should be inside")
	}
	if fr.ContainsPoint(outside) {
		t.Error("point at 96% of the half-width should be outside")
	}
}

func TestBindSkipsEqualTextures(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	f.r.Draw(f.entity(f.cube, f.red, -2, 0))
	f.r.Draw(f.entity(f.cube, f.red, 2, 0))
	f.r.Draw(f.entity(f.cube, f.blue, 0, 5))

	if got := f.r.Stats().TextureBinds; got != 2 {
		t.Errorf("texture binds = %d, want 2", got)
	}
	if f.dev.Draws[2].Textures[gpu.SlotDiffuse] != f.blue.ID() {
		t.Error("third draw did not use the blue texture")
	}

	// Another slot caches independently.
	f.r.Bind(f.red, gpu.SlotLightmap)
	f.r.Bind(f.red, gpu.SlotLightmap)
	if got := f.r.Stats().TextureBinds; got != 3 {
		t.Errorf("texture binds after lightmap = %d, want 3", got)
	}

	f.r.Reset()
	f.r.Bind(f.red, gpu.SlotLightmap)
	if got := f.r.Stats().TextureBinds; got != 4 {
		t.Errorf("texture binds after reset = %d, want 4", got)
	}
}

func TestDrawReusesSinglePartModel(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	for i := range 3 {
		f.r.Draw(f.entity(f.cube, f.red, float32(i*2-2), 0))
	}

	if got := f.r.Stats().BufferBinds; got != 1 {
		t.Errorf("buffer binds = %d, want 1", got)
	}
	if len(f.dev.Draws) != 3 {
		t.Fatalf("draws = %d, want 3", len(f.dev.Draws))
	}
	for i, d := range f.dev.Draws {
		if d.Count != 36 || d.VertexBuffer != f.cube.Parts()[0].Vertices {
			t.Errorf("draw %d = %+v", i, d)
		}
	}
	// Each draw still carries its own transform.
	if f.dev.Draws[0].WVP == f.dev.Draws[1].WVP {
		t.Error("reused draws share a WVP")
	}
}

func TestDrawMultiPartBindsEachPart(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	f.r.Draw(f.entity(f.multi, f.red, 0, 0))
	f.r.Draw(f.entity(f.multi, f.red, 0, 3))

	if got := f.r.Stats().BufferBinds; got != 4 {
		t.Errorf("buffer binds = %d, want 4", got)
	}
	parts := f.multi.Parts()
	if f.dev.Draws[0].VertexBuffer != parts[0].Vertices || f.dev.Draws[1].VertexBuffer != parts[1].Vertices {
		t.Error("parts drawn out of order")
	}
}

func TestDrawMirroredUsesInvertedIndices(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	normal := f.entity(f.cube, f.red, 0, 0)
	mirrored := entity.New(f.cube, f.red)
	mirrored.SetTransform(math.Translate(0, 0, 3).Mul(math.Scale(-1, 1, 1)))

	f.r.Draw(normal)
	f.r.Draw(mirrored)
	f.r.Draw(normal)

	part := f.cube.Parts()[0]
	want := []gpu.BufferID{part.Indices, part.Inverted, part.Indices}
	for i, d := range f.dev.Draws {
		if d.IndexBuffer != want[i] {
			t.Errorf("draw %d index buffer = %d, want %d", i, d.IndexBuffer, want[i])
		}
	}
}

func TestDrawUsesEffectiveTransform(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()

	parent := entity.New(nil, nil)
	parent.SetTransform(math.Translate(0, 0, 500)) // out of view
	child := entity.New(f.cube, f.red)
	child.SetTransform(math.Translate(0, 0, -495))
	parent.SetChild(child)

	f.r.Draw(parent)
	f.r.Draw(child)

	if st := f.r.Stats(); st.Draws != 1 || st.Culled != 0 {
		t.Errorf("stats = %+v, want the child drawn", st)
	}
}

func TestBeginFrameResetsStats(t *testing.T) {
	f := newFixture(t)
	f.r.BeginFrame()
	f.r.Draw(f.entity(f.cube, f.red, 0, 0))
	f.r.BeginFrame()
	if st := f.r.Stats(); st != (Stats{}) {
		t.Errorf("stats after BeginFrame = %+v", st)
	}
	if f.dev.Frames != 2 {
		t.Errorf("device frames = %d, want 2", f.dev.Frames)
	}
}
