package scene

import (
	"bytes"
	"image"
	"image/color"
	gomath "math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/internal/engine/entity"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/internal/feed"
	"github.com/Faultbox/follower-catcher/internal/game/session"
	"github.com/Faultbox/follower-catcher/pkg/formats"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

const roadLength = 20

func modelSize(path string) float32 {
	switch path {
	case RoadModel, WallModel, WallRightModel:
		return roadLength
	case SmallCarModel, BigCarModel:
		return 10
	case SkateModel:
		return 2
	}
	return 4
}

func testContent(t *testing.T) *assets.Manager {
	t.Helper()
	files := fstest.MapFS{}
	for _, p := range ContentFiles() {
		var buf bytes.Buffer
		var err error
		if strings.HasSuffix(p, formats.MeshExt) {
			err = formats.EncodeMesh(&buf, formats.Cube(modelSize(p)))
		} else {
			err = formats.EncodeTexture(&buf, formats.SolidTexture(4, 4, color.NRGBA{255, 255, 255, 255}))
		}
		if err != nil {
			t.Fatal(err)
		}
		files[p] = &fstest.MapFile{Data: buf.Bytes()}
	}
	m := assets.NewManager()
	m.AddFS(files)
	return m
}

type stubFeed struct {
	searches []string
	posts    map[string]feed.Post
	avatars  []feed.Avatar
}

func (f *stubFeed) SearchPosts(tag string) { f.searches = append(f.searches, tag) }

func (f *stubFeed) Post(key string) (feed.Post, bool) {
	p, ok := f.posts[key]
	return p, ok
}

func (f *stubFeed) TakeAvatars() []feed.Avatar {
	out := f.avatars
	f.avatars = nil
	return out
}

type fixture struct {
	scene   *Scene
	dev     *gpu.Recorder
	session *session.Session
	feed    *stubFeed
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Game.Seed = 1
	if mutate != nil {
		mutate(cfg)
	}
	f := &fixture{
		dev:     gpu.NewRecorder(),
		session: session.New(),
		feed:    &stubFeed{posts: map[string]feed.Post{}},
	}
	f.scene = New(cfg, Deps{Content: testContent(t), Session: f.session, Feed: f.feed})
	if err := f.scene.Initialize(f.dev); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := f.scene.LoadContent(); err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	return f
}

// quiet starts a game with spawning pushed far into the future.
func (f *fixture) quiet() {
	f.scene.StartGame()
	f.scene.nextCar = 1e9
	f.scene.nextPickup = 1e9
}

func (f *fixture) place(t *testing.T, model, tex string, x, z float32) *entity.Entity {
	t.Helper()
	e, err := f.scene.factory.Acquire(model, tex)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTransform(math.Translate(x, 0, z))
	e.Collidable = true
	f.scene.collidables = append(f.scene.collidables, e)
	return e
}

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-2
}

func TestLoadContentBuildsTrack(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Game.DecorationChance = 10 })
	s := f.scene

	if len(s.segments) != 18*3 {
		t.Fatalf("segments = %d, want 54", len(s.segments))
	}
	if s.segmentLength != roadLength {
		t.Errorf("segment length = %f, want %d", s.segmentLength, roadLength)
	}
	if len(s.decor) != 36 {
		t.Errorf("decorations = %d, want one per wall", len(s.decor))
	}
	for _, seg := range s.segments {
		isWall := seg.Model().Path() != RoadModel
		if isWall != (seg.Child() != nil) {
			t.Errorf("%s child = %v", seg.Model().Path(), seg.Child())
		}
		if isWall && seg.Lightmap == nil {
			t.Errorf("decorated wall %s has no lightmap", seg.Model().Path())
		}
		if seg.Model().Path() == WallRightModel && seg.Child().Transform().Determinant3() >= 0 {
			t.Error("right wall decoration should be mirrored")
		}
	}
	if len(f.feed.searches) != 1 || f.feed.searches[0] != "hackw8" {
		t.Errorf("initial searches = %v", f.feed.searches)
	}

	bare := newFixture(t, func(c *config.Config) { c.Game.DecorationChance = 0 })
	if len(bare.scene.decor) != 0 {
		t.Errorf("decorations with zero chance = %d", len(bare.scene.decor))
	}
}

func TestLoadContentErrors(t *testing.T) {
	s := New(config.Default(), Deps{Content: assets.NewManager()})
	if err := s.LoadContent(); err != ErrNotInitialized {
		t.Errorf("LoadContent before Initialize = %v", err)
	}
	if err := s.Initialize(gpu.NewRecorder()); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadContent(); err == nil {
		t.Error("expected error loading from empty content")
	}
}

func TestNothingDrawnBeforeStart(t *testing.T) {
	f := newFixture(t, nil)
	f.scene.MovePlayer(Right)
	f.scene.Render(1)

	if f.scene.State() != NotStarted {
		t.Errorf("state = %v", f.scene.State())
	}
	if f.dev.Frames != 0 || len(f.dev.Draws) != 0 {
		t.Errorf("drew %d frames before start", f.dev.Frames)
	}

	f.quiet()
	f.scene.Render(Step)
	if f.scene.Lane() != Center {
		t.Errorf("lane = %v, moves before start should be dropped", f.scene.Lane())
	}
	if f.dev.Frames != 1 || len(f.dev.Draws) == 0 {
		t.Errorf("frames = %d, draws = %d after start", f.dev.Frames, len(f.dev.Draws))
	}
}

func TestFixedStep(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	f.scene.Render(0.5 * Step)
	if m := f.session.Snapshot().Miles; m != 0 {
		t.Errorf("miles after half a step = %f", m)
	}
	f.scene.Render(2 * Step)
	if m := f.session.Snapshot().Miles; !near(float32(m), 0.04) {
		t.Errorf("miles after 2.5 steps = %f, want 0.04", m)
	}

	// A long stall is capped.
	f.scene.Render(10)
	steps := f.scene.simTime / Step
	if steps > MaxFrameDelta/Step+3 {
		t.Errorf("simulated %f steps after a stall", steps)
	}
}

func TestTrackLapInvariant(t *testing.T) {
	// One step moves exactly one segment length.
	f := newFixture(t, func(c *config.Config) { c.Game.ScrollSpeed = roadLength / Step })
	f.quiet()

	start := map[*entity.Entity]float32{}
	for _, seg := range f.scene.segments {
		start[seg] = seg.Transform().Translation().Z
	}
	for range f.scene.cfg.SegmentCount {
		f.scene.AdvanceSimulation()
	}

	if len(f.scene.segments) != len(start) {
		t.Fatalf("segment count changed to %d", len(f.scene.segments))
	}
	lap := float64(roadLength * f.scene.cfg.SegmentCount)
	for seg, z := range start {
		got := seg.Transform().Translation().Z
		// Compare on the ring: a segment sitting exactly on the recycle
		// threshold may not have wrapped yet.
		d := gomath.Mod(float64(got-z), lap)
		if d < 0 {
			d += lap
		}
		if min(d, lap-d) > 1e-2 {
			t.Errorf("segment moved from %f to %f after one lap", z, got)
		}
	}
}

func TestTrackStaysInFrontOfCamera(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()
	lap := float32(roadLength * f.scene.cfg.SegmentCount)

	for range 600 {
		f.scene.AdvanceSimulation()
		for _, seg := range f.scene.segments {
			z := seg.Transform().Translation().Z
			if z < -2*roadLength || z > lap {
				t.Fatalf("segment at z=%f outside the ring", z)
			}
		}
	}
}

func TestStepQueueOrder(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Game.DecorationChance = 10 })
	f.quiet()
	f.scene.AdvanceSimulation()

	q := f.scene.queue
	segs := len(f.scene.segments)
	if len(q) != segs+len(f.scene.decor)+2 {
		t.Fatalf("queue length = %d", len(q))
	}
	for i := 1; i < segs; i++ {
		if entity.ByTexture(q[i-1], q[i]) > 0 {
			t.Fatal("segments not grouped by texture")
		}
	}
	for i := segs + 1; i < segs+len(f.scene.decor); i++ {
		if entity.ByModel(q[i-1], q[i]) > 0 {
			t.Fatal("decorations not grouped by model")
		}
	}
	if q[len(q)-2] != f.scene.player || q[len(q)-1] != f.scene.player.Child() {
		t.Error("player and skate should close the queue")
	}
}

func TestMovePlayer(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	tests := []struct {
		moves []Lane
		want  Lane
	}{
		{[]Lane{Right}, Right},
		{[]Lane{Right}, Right},
		{[]Lane{Left, Left, Left}, Left},
		{[]Lane{Right}, Center},
	}
	for _, tt := range tests {
		for _, m := range tt.moves {
			f.scene.MovePlayer(m)
		}
		before := f.scene.player.Position()
		f.scene.AdvanceSimulation()
		if f.scene.Lane() != tt.want {
			t.Errorf("lane = %v, want %v", f.scene.Lane(), tt.want)
		}
		// A target already inside the deadband collapses onto the player.
		target := float32(tt.want) * 20
		want := target
		if (math.Vec3{X: target}).Sub(before).Length() <= entity.Deadband {
			want = f.scene.player.Position().X
		}
		if x := f.scene.player.MoveTo.X; !near(x, want) {
			t.Errorf("MoveTo.X = %f, want %f", x, want)
		}
	}

	// The player and camera slide over.
	f.scene.MovePlayer(Right)
	for range 600 {
		f.scene.AdvanceSimulation()
	}
	x := f.scene.player.Position().X
	if x < 19 || x > 21 {
		t.Errorf("player x = %f, want ~20", x)
	}
	if f.scene.camera.Eye.X != x {
		t.Errorf("camera x = %f, want %f", f.scene.camera.Eye.X, x)
	}
}

func TestPickupCollectedOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	picks := 0
	f.scene.OnPickup(func() { picks++ })

	p := f.place(t, PickupModel, WhiteTexture, 0, 2)
	p.Pickable = true
	far := f.place(t, PickupModel, WhiteTexture, 40, 2)
	far.Pickable = true

	// Several steps in one render while the pickup would still overlap.
	f.scene.Render(3 * Step)

	if got := f.session.Snapshot().Followers; got != 1 {
		t.Errorf("followers = %d, want 1", got)
	}
	if picks != 1 {
		t.Errorf("pickup callbacks = %d, want 1", picks)
	}
	if len(f.scene.collidables) != 1 || f.scene.collidables[0] != far {
		t.Errorf("collidables after pickup = %d", len(f.scene.collidables))
	}
	if f.scene.State() != Running {
		t.Errorf("state = %v after pickup", f.scene.State())
	}
}

func TestPickupShowsPost(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	tex, err := asset.Solid(f.dev, "77.png", color.RGBA{1, 2, 3, 255})
	if err != nil {
		t.Fatal(err)
	}
	f.feed.posts["77.png"] = feed.Post{Author: "@gopher", Text: "go go go"}

	p := f.place(t, PickupModel, WhiteTexture, 0, 2)
	p.Pickable = true
	p.Texture = tex
	f.scene.AdvanceSimulation()

	st := f.session.Snapshot()
	if st.PostAuthor != "@gopher" || st.PostText != "go go go" {
		t.Errorf("post = %q %q", st.PostAuthor, st.PostText)
	}
}

func TestObstacleEndsGame(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	ended := 0
	f.scene.OnGameEnded(func() { ended++ })
	f.place(t, SmallCarModel, CarsTexture, 0, 3)
	f.place(t, SmallCarModel, CarsTexture, 1, 3)

	f.scene.Render(2 * Step)
	if f.scene.State() != Ended {
		t.Fatalf("state = %v, want ended", f.scene.State())
	}
	if ended != 1 {
		t.Errorf("game ended callbacks = %d, want 1", ended)
	}

	// The simulation stops but the last frame is still drawn.
	miles := f.session.Snapshot().Miles
	if miles != 0.02 {
		t.Errorf("miles = %f, want one step", miles)
	}
	f.dev.Reset()
	f.scene.Render(Step)
	if f.session.Snapshot().Miles != miles {
		t.Error("simulation advanced after the game ended")
	}
	if len(f.dev.Draws) == 0 {
		t.Error("ended scene should keep drawing")
	}

	f.scene.StartGame()
	if f.scene.State() != Running || len(f.scene.collidables) != 0 {
		t.Errorf("restart left state %v with %d collidables", f.scene.State(), len(f.scene.collidables))
	}
	if st := f.session.Snapshot(); st.Miles != 0 || st.Followers != 0 {
		t.Errorf("restart kept counters %+v", st)
	}
}

func TestSpawnCars(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		f := newFixture(t, func(c *config.Config) { c.Game.Seed = seed })
		f.scene.StartGame()
		f.scene.nextPickup = 1e9
		f.scene.AdvanceSimulation()

		cars := f.scene.collidables
		if len(cars) < 3 || len(cars) > 4 {
			t.Fatalf("seed %d: spawned %d cars", seed, len(cars))
		}
		for _, c := range cars {
			if !c.Collidable || c.Pickable {
				t.Errorf("car flags collidable=%v pickable=%v", c.Collidable, c.Pickable)
			}
			x := c.Transform().Translation().X
			if x != 5 && x != -5 {
				t.Errorf("car x = %f, want +-5", x)
			}
			y := c.Transform().Translation().Y
			if big := c.Model().Path() == BigCarModel; big != (y == bigCarLift) {
				t.Errorf("car %s at y=%f", c.Model().Path(), y)
			}
		}
		if f.scene.nextCar < 5-Step || f.scene.nextCar > 7 {
			t.Errorf("next car in %f s", f.scene.nextCar)
		}
	}
}

func TestSpawnPickups(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		f := newFixture(t, func(c *config.Config) { c.Game.Seed = seed })
		f.scene.StartGame()
		f.scene.nextCar = 1e9
		f.scene.AdvanceSimulation()

		picks := f.scene.collidables
		if n := len(picks); n%5 != 0 || n < 10 || n >= 20 {
			t.Fatalf("seed %d: spawned %d pickups", seed, n)
		}
		lane := picks[0].Transform().Translation().X
		if lane != -20 && lane != 0 && lane != 20 {
			t.Errorf("pickup lane x = %f", lane)
		}
		for i, p := range picks {
			if p.Transform().Translation().X != lane {
				t.Error("pickups spread over several lanes")
			}
			if !p.Collidable || !p.Pickable || !p.Rotates {
				t.Errorf("pickup %d flags wrong", i)
			}
			if !near(p.EffectDelay, float32(i)*0.2) {
				t.Errorf("pickup %d delay = %f", i, p.EffectDelay)
			}
			if !p.Texture.Equal(f.scene.white) {
				t.Error("pickups should wear the placeholder without avatars")
			}
		}
		if f.scene.nextPickup < 3-Step || f.scene.nextPickup > 5 {
			t.Errorf("next pickup in %f s", f.scene.nextPickup)
		}
	}
}

func TestPickupAnimationIsCosmetic(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	p := f.place(t, PickupModel, WhiteTexture, 20, 200)
	p.Pickable = true
	p.Rotates = true
	p.EffectDelay = 0.4

	for range 10 {
		f.scene.AdvanceSimulation()
	}
	pos := p.Transform().Translation()
	if pos.X != 20 || pos.Y != 0 {
		t.Errorf("authoritative position drifted to %+v", pos)
	}
	if p.DrawTransform == p.Transform() {
		t.Error("rotating pickup has no cosmetic transform")
	}

	before := p.Transform()
	f.scene.draw()
	if p.Transform() != before {
		t.Error("draw pass did not restore the transform")
	}
}

func TestAvatarsReplacePlaceholder(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()

	p := f.place(t, PickupModel, WhiteTexture, 40, 200)
	p.Pickable = true

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	f.feed.avatars = []feed.Avatar{{Key: "1.png", Image: img}, {Key: "2.png", Image: img}}
	f.scene.Render(Step)

	if len(f.scene.avatars) != 2 {
		t.Fatalf("uploaded avatars = %d, want 2", len(f.scene.avatars))
	}
	if p.Texture.Path() != "1.png" {
		t.Errorf("pickup texture = %s, want avatar 1.png", p.Texture.Path())
	}

	f.scene.nextPickup = 0
	f.scene.AdvanceSimulation()
	for i, e := range f.scene.collidables[1:] {
		if want := f.scene.avatars[i%2]; e.Texture != want {
			t.Errorf("spawned pickup %d texture = %s, want %s", i, e.Texture.Path(), want.Path())
		}
	}
}

func TestAvatarUploadDropsBindCache(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()
	f.scene.AdvanceSimulation()
	f.scene.player.Lightmap = nil
	f.scene.queue = []*entity.Entity{f.scene.player}
	f.scene.Render(0)

	// Leave the lightmap slot active with the texture the renderer already
	// holds there; the upload then lands on that slot.
	f.dev.BindTexture(gpu.SlotLightmap, f.scene.white.ID())
	f.feed.avatars = []feed.Avatar{{Key: "7.png", Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}}
	f.dev.Reset()
	f.scene.Render(0)

	if len(f.scene.avatars) != 1 {
		t.Fatalf("uploaded avatars = %d, want 1", len(f.scene.avatars))
	}
	avatar := f.scene.avatars[0].ID()
	if len(f.dev.Draws) == 0 {
		t.Fatal("nothing drawn")
	}
	for i, d := range f.dev.Draws {
		for slot, id := range d.Textures {
			if id == avatar {
				t.Fatalf("draw %d samples the new avatar on slot %d", i, slot)
			}
		}
	}
	if got := f.dev.Draws[0].Textures[gpu.SlotLightmap]; got != f.scene.white.ID() {
		t.Errorf("first draw lightmap = %d, want white %d", got, f.scene.white.ID())
	}
}

func TestFeedPolling(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()
	f.session.SetHashtag("gophers")

	steps := int(30/Step) + 1
	for range steps {
		f.scene.AdvanceSimulation()
	}
	if n := len(f.feed.searches); n != 2 || f.feed.searches[1] != "gophers" {
		t.Errorf("searches = %v", f.feed.searches)
	}
}

func TestCollidablesBehindCameraRemoved(t *testing.T) {
	f := newFixture(t, nil)
	f.quiet()
	f.place(t, SmallCarModel, CarsTexture, 40, -60)

	for range 30 {
		f.scene.AdvanceSimulation()
	}
	if len(f.scene.collidables) != 0 {
		t.Errorf("car behind the camera was kept")
	}
}

func TestDestroyReleasesResources(t *testing.T) {
	f := newFixture(t, nil)
	f.feed.avatars = []feed.Avatar{{Key: "1.png", Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}}
	f.quiet()
	f.scene.Render(Step)

	if err := f.scene.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if f.dev.LiveBuffers() != 0 || f.dev.LiveTextures() != 0 {
		t.Errorf("leaked %d buffers, %d textures", f.dev.LiveBuffers(), f.dev.LiveTextures())
	}
}

func TestResize(t *testing.T) {
	f := newFixture(t, nil)
	f.scene.Resize(800, 400)
	if f.dev.Viewport != image.Pt(800, 400) {
		t.Errorf("viewport = %v", f.dev.Viewport)
	}
	if f.scene.camera.Aspect != 2 {
		t.Errorf("aspect = %f", f.scene.camera.Aspect)
	}
}

func TestStateString(t *testing.T) {
	if Running.String() != "running" || Lane(5).String() != "invalid" {
		t.Error("unexpected names")
	}
}
