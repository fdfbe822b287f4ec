// Package scene runs the endless runner: it builds the recycled track,
// steps the fixed-rate simulation, spawns cars and pickups, resolves
// collisions and submits the draw queue to the renderer.
package scene

import (
	"errors"
	"fmt"
	gomath "math"
	"math/rand/v2"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/engine/asset"
	"github.com/Faultbox/follower-catcher/internal/engine/camera"
	"github.com/Faultbox/follower-catcher/internal/engine/entity"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/internal/engine/renderer"
	"github.com/Faultbox/follower-catcher/internal/feed"
	"github.com/Faultbox/follower-catcher/internal/game/session"
	"github.com/Faultbox/follower-catcher/internal/logger"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// Step is the fixed simulation step in seconds.
const Step = 1.0 / 60

// MaxFrameDelta caps the wall-clock time one Render call may simulate.
const MaxFrameDelta = 0.25

// State is the game phase.
type State int

const (
	NotStarted State = iota
	Running
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Feed is the social feed as seen by the scene.
type Feed interface {
	SearchPosts(tag string)
	Post(key string) (feed.Post, bool)
	TakeAvatars() []feed.Avatar
}

// Deps are the collaborators a Scene does not own.
type Deps struct {
	Content assets.Source
	Session *session.Session
	Feed    Feed // nil runs offline
}

// ErrNotInitialized is returned when content is loaded before Initialize.
var ErrNotInitialized = errors.New("scene not initialized")

// Scene owns every entity in the game. All methods except MovePlayer must
// be called from the render goroutine.
type Scene struct {
	cfg     config.GameConfig
	gfx     config.GraphicsConfig
	poll    float32
	content assets.Source
	session *session.Session
	feed    Feed
	rng     *rand.Rand

	dev      gpu.Device
	renderer *renderer.Renderer
	factory  *entity.Factory
	camera   *camera.ChaseCamera

	white         *asset.Texture
	avatars       []*asset.Texture
	segmentLength float32

	segments    []*entity.Entity
	decor       []*entity.Entity
	player      *entity.Entity
	lane        Lane
	collidables []*entity.Entity
	collected   []*entity.Entity
	queue       []*entity.Entity

	state       State
	accumulator float64
	simTime     float32
	nextCar     float32
	nextPickup  float32
	nextPoll    float32

	moves   chan Lane
	onEnded []func()
	onPick  []func()

	log *zap.Logger
}

// New creates a scene. Nothing touches the device until Initialize.
func New(cfg *config.Config, deps Deps) *Scene {
	seed := cfg.Game.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	sess := deps.Session
	if sess == nil {
		sess = session.New()
	}
	if cfg.Game.Hashtag != "" {
		sess.SetHashtag(cfg.Game.Hashtag)
	}
	f := deps.Feed
	if f == nil {
		f = feed.Offline{Store: feed.NewStore()}
	}
	return &Scene{
		cfg:     cfg.Game,
		gfx:     cfg.Graphics,
		poll:    float32(cfg.Feed.PollInterval.Seconds()),
		content: deps.Content,
		session: sess,
		feed:    f,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		moves:   make(chan Lane, 16),
		log:     logger.Named("scene"),
	}
}

// Initialize binds the scene to dev and starts the first feed poll.
func (s *Scene) Initialize(dev gpu.Device) error {
	if dev == nil {
		return fmt.Errorf("initializing scene: nil device")
	}
	s.dev = dev
	s.renderer = renderer.New(dev)
	s.factory = entity.NewFactory(dev, s.content)
	s.camera = camera.NewChaseCamera(s.gfx.FieldOfView, s.gfx.NearPlane, s.gfx.FarPlane)
	s.camera.Resize(s.gfx.Width, s.gfx.Height)

	s.session.Reset()
	s.feed.SearchPosts(s.session.Hashtag())
	s.nextPoll = s.poll
	return nil
}

// LoadContent loads every model and texture and builds the track and the
// player. Any missing or malformed asset fails the whole load.
func (s *Scene) LoadContent() error {
	if s.factory == nil {
		return ErrNotInitialized
	}
	start := time.Now()

	white, err := s.factory.Texture(WhiteTexture)
	if err != nil {
		return err
	}
	s.white = white

	objects := make([]asset.MapObject, 0, len(decorations))
	for _, d := range decorations {
		m, err := s.factory.Model(d.model)
		if err != nil {
			return err
		}
		lm, err := s.factory.Texture(d.lightmap)
		if err != nil {
			return err
		}
		objects = append(objects, asset.MapObject{Model: m, Lightmap: lm})
	}

	road, err := s.factory.Model(RoadModel)
	if err != nil {
		return err
	}
	s.segmentLength = road.Bounds().Size().Z
	if s.segmentLength <= 0 {
		return fmt.Errorf("loading content: road model %s has no length", RoadModel)
	}

	// Spawned later; fail now rather than mid-game.
	for _, p := range []string{SmallCarModel, BigCarModel, PickupModel} {
		if _, err := s.factory.Model(p); err != nil {
			return err
		}
	}
	if _, err := s.factory.Texture(CarsTexture); err != nil {
		return err
	}

	if err := s.buildTrack(objects); err != nil {
		return err
	}

	player, err := s.factory.Acquire(PlayerModel, PlayerTexture)
	if err != nil {
		return err
	}
	skate, err := s.factory.Acquire(SkateModel, SkateTexture)
	if err != nil {
		return err
	}
	player.SetChild(skate)
	s.player = player

	models, textures := s.factory.Counts()
	s.log.Info("content loaded",
		zap.Int("segments", len(s.segments)),
		zap.Int("decorations", len(s.decor)),
		zap.Int("models", models),
		zap.Int("textures", textures),
		zap.Float32("segment_length", s.segmentLength),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Scene) buildTrack(objects []asset.MapObject) error {
	s.segments = s.segments[:0]
	s.decor = s.decor[:0]
	flip := math.RotateX(gomath.Pi)

	for i := range s.cfg.SegmentCount {
		at := math.Translate(0, 0, s.segmentLength*float32(i))

		left, err := s.factory.Acquire(WallModel, WallTexture)
		if err != nil {
			return err
		}
		left.SetTransform(at.Mul(flip))
		right, err := s.factory.Acquire(WallRightModel, WallTexture)
		if err != nil {
			return err
		}
		right.SetTransform(at.Mul(flip))
		road, err := s.factory.Acquire(RoadModel, RoadTexture)
		if err != nil {
			return err
		}
		road.SetTransform(at)

		s.segments = append(s.segments, road, left, right)

		if err := s.decorate(left, objects, math.Identity()); err != nil {
			return err
		}
		if err := s.decorate(right, objects, math.Scale(-1, 1, 1)); err != nil {
			return err
		}
	}
	return nil
}

// decorate may give wall a prop child, in which case the wall takes the
// prop's lightmap.
func (s *Scene) decorate(wall *entity.Entity, objects []asset.MapObject, local math.Mat4) error {
	if len(objects) == 0 || s.rng.IntN(10) >= s.cfg.DecorationChance {
		return nil
	}
	obj := objects[s.rng.IntN(len(objects))]
	child, err := s.factory.Acquire(obj.Model.Path(), ObjectsTexture)
	if err != nil {
		return err
	}
	child.SetTransform(local)
	wall.SetChild(child)
	wall.Lightmap = obj.Lightmap
	s.decor = append(s.decor, child)
	return nil
}

// Resize updates the viewport and camera aspect.
func (s *Scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.gfx.Width, s.gfx.Height = width, height
	if s.camera != nil {
		s.camera.Resize(width, height)
	}
	if s.dev != nil {
		s.dev.SetViewport(width, height)
	}
}

// Render advances the simulation by dt seconds of wall-clock time in fixed
// steps, then draws the last step's queue. Nothing is drawn before the
// first StartGame; after the game ends the final frame keeps being drawn.
func (s *Scene) Render(dt float64) {
	if s.renderer == nil {
		return
	}
	s.uploadAvatars()

	if s.state == NotStarted {
		return
	}
	if s.state == Running {
		s.accumulator += min(max(dt, 0), MaxFrameDelta)
		for s.accumulator >= Step && s.state == Running {
			s.AdvanceSimulation()
			s.accumulator -= Step
		}
	}
	s.draw()
}

// MovePlayer queues a lane change relative to the current lane. It is safe
// to call from any goroutine; moves made before StartGame are discarded.
func (s *Scene) MovePlayer(dir Lane) {
	select {
	case s.moves <- dir:
	default:
		// Input outran the simulation.
	}
}

// StartGame enters Running from any state and clears the run.
func (s *Scene) StartGame() {
	s.drainMoves()
	s.state = Running
	s.accumulator = 0
	s.simTime = 0
	s.collidables = nil
	s.collected = nil
	s.queue = s.queue[:0]
	s.nextCar = 0
	s.nextPickup = 0
	s.nextPoll = s.poll
	s.lane = Center
	if s.player != nil {
		s.player.SetTransform(math.Identity())
		s.player.MoveTo = math.Vec3{}
	}
	if s.camera != nil {
		s.camera.Follow(0)
	}
	s.session.Reset()
	s.log.Info("game started")
}

// OnGameEnded registers fn to run when an obstacle is hit.
func (s *Scene) OnGameEnded(fn func()) {
	s.onEnded = append(s.onEnded, fn)
}

// OnPickup registers fn to run for every collected pickup.
func (s *Scene) OnPickup(fn func()) {
	s.onPick = append(s.onPick, fn)
}

// State returns the current phase.
func (s *Scene) State() State { return s.state }

// Lane returns the lane the player is heading to.
func (s *Scene) Lane() Lane { return s.lane }

// Player returns the player entity, nil before LoadContent.
func (s *Scene) Player() *entity.Entity { return s.player }

// Renderer returns the renderer, nil before Initialize.
func (s *Scene) Renderer() *renderer.Renderer { return s.renderer }

// Destroy releases every GPU resource the scene created.
func (s *Scene) Destroy() error {
	var err error
	for _, t := range s.avatars {
		err = multierr.Append(err, t.Release(s.dev))
	}
	s.avatars = nil
	if s.factory != nil {
		err = multierr.Append(err, s.factory.Release())
	}
	s.segments, s.decor, s.collidables, s.collected, s.queue = nil, nil, nil, nil, nil
	s.player = nil
	s.white = nil
	return err
}

func (s *Scene) end() {
	if s.state != Running {
		return
	}
	s.state = Ended
	s.log.Info("game ended", zap.Float64("miles", s.session.Snapshot().Miles))
	for _, fn := range s.onEnded {
		fn()
	}
}

func (s *Scene) drainMoves() {
	for {
		select {
		case <-s.moves:
		default:
			return
		}
	}
}

// uploadAvatars turns newly decoded feed avatars into textures. Uploads
// disturb texture bindings, so the renderer's bind cache is dropped.
func (s *Scene) uploadAvatars() {
	pending := s.feed.TakeAvatars()
	if len(pending) == 0 {
		return
	}
	for _, a := range pending {
		tex, err := asset.NewTexture(s.dev, a.Key, a.Image)
		if err != nil {
			s.log.Warn("avatar upload failed", zap.String("key", a.Key), zap.Error(err))
			continue
		}
		s.avatars = append(s.avatars, tex)
	}
	s.renderer.Reset()
}
