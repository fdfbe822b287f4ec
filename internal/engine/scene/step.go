package scene

import (
	gomath "math"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/engine/entity"
	"github.com/Faultbox/follower-catcher/internal/engine/gpu"
	"github.com/Faultbox/follower-catcher/pkg/math"
)

// Pickup animation.
const (
	spinRate    = 5  // radians per second
	bobRate     = 10 // radians per second
	bobHeight   = 5
	pickupDelay = 0.2 // animation offset between consecutive pickups
	bigCarLift  = 6
)

// AdvanceSimulation runs one fixed step. It does nothing unless the game
// is running.
func (s *Scene) AdvanceSimulation() {
	if s.state != Running || s.player == nil {
		return
	}
	s.applyMoves()
	s.simTime += Step
	s.queue = s.queue[:0]

	s.scrollTrack()
	s.queueDecorations()
	s.advancePlayer()
	s.updateCollidables()
	s.removeCollected()
	s.tickTimers()

	s.session.AddMiles(Step)
}

func (s *Scene) applyMoves() {
	for {
		select {
		case dir := <-s.moves:
			s.lane = (s.lane + dir).clamp()
			s.player.MoveTo = math.Vec3{X: float32(s.lane) * s.cfg.PathWidth}
		default:
			return
		}
	}
}

func (s *Scene) scroll() math.Mat4 {
	return math.Translate(0, 0, -s.cfg.ScrollSpeed*Step)
}

// scrollTrack moves the segment ring towards the camera, wrapping segments
// that fall behind by one lap.
func (s *Scene) scrollTrack() {
	slices.SortStableFunc(s.segments, entity.ByTexture)

	scroll := s.scroll()
	lap := math.Translate(0, 0, s.segmentLength*float32(s.cfg.SegmentCount))
	for _, seg := range s.segments {
		t := scroll.Mul(seg.Transform())
		if t.Translation().Z < -s.segmentLength {
			t = lap.Mul(t)
		}
		seg.SetTransform(t)
		s.queue = append(s.queue, seg)
	}
}

func (s *Scene) queueDecorations() {
	start := len(s.queue)
	for _, seg := range s.segments {
		if c := seg.Child(); c != nil {
			s.queue = append(s.queue, c)
		}
	}
	slices.SortStableFunc(s.queue[start:], entity.ByModel)
}

func (s *Scene) advancePlayer() {
	s.player.Advance(Step)
	s.queue = append(s.queue, s.player)
	if skate := s.player.Child(); skate != nil {
		s.queue = append(s.queue, skate)
	}
	s.camera.Follow(s.player.Position().X)
}

func (s *Scene) updateCollidables() {
	scroll := s.scroll()
	player := s.player.Bounds()

	for i, e := range s.collidables {
		e.SetTransform(scroll.Mul(e.Transform()))
		e.RestoreMatrix = true
		e.DrawTransform = e.Transform()

		if e.Collidable && e.Bounds().Intersects(player) {
			if e.Pickable {
				s.collect(e)
			} else {
				s.end()
			}
		}

		if e.Rotates {
			phase := float64(s.simTime*bobRate + e.EffectDelay)
			bob := float32(gomath.Sin(phase)) * bobHeight
			e.DrawTransform = e.Transform().
				Mul(math.Translate(0, bob, 0)).
				Mul(math.RotateY(s.simTime*spinRate + e.EffectDelay))
		}

		if len(s.avatars) > 0 && e.Texture.Equal(s.white) {
			e.Texture = s.avatars[i%len(s.avatars)]
		}
		s.queue = append(s.queue, e)
	}
}

func (s *Scene) collect(e *entity.Entity) {
	s.collected = append(s.collected, e)
	s.session.AddFollower()
	if e.Texture != nil {
		if post, ok := s.feed.Post(e.Texture.Path()); ok {
			s.session.SetPost(post.Author, post.Text)
		}
	}
	for _, fn := range s.onPick {
		fn()
	}
}

// removeCollected drops collected pickups and anything that has passed
// behind the camera.
func (s *Scene) removeCollected() {
	behind := s.camera.Eye.Z
	s.collidables = slices.DeleteFunc(s.collidables, func(e *entity.Entity) bool {
		return slices.Contains(s.collected, e) || e.Bounds().Max.Z < behind
	})
	clear(s.collected)
	s.collected = s.collected[:0]
}

func (s *Scene) tickTimers() {
	s.nextCar -= Step
	s.nextPickup -= Step
	s.nextPoll -= Step

	if s.nextPoll <= 0 {
		s.feed.SearchPosts(s.session.Hashtag())
		s.nextPoll = s.poll
	}
	if s.nextCar <= 0 {
		s.spawnCars()
		s.nextCar = s.rng.Float32()*2 + 5
	}
	if s.nextPickup <= 0 {
		s.spawnPickups()
		s.nextPickup = s.rng.Float32()*2 + 3
	}
}

// spawnDistance is the Z of the track's far edge.
func (s *Scene) spawnDistance() float32 {
	return s.segmentLength * float32(max(s.cfg.SegmentCount-2, 1))
}

// spawnCars places three or four cars, each on the left or right half of
// the road.
func (s *Scene) spawnCars() {
	n := s.rng.IntN(2) + 3
	for i := range n {
		place := s.rng.IntN(10)
		big := s.rng.IntN(10) > 6

		model, lift := SmallCarModel, float32(0)
		if big {
			model, lift = BigCarModel, bigCarLift
		}
		car, err := s.factory.Acquire(model, CarsTexture)
		if err != nil {
			s.log.Error("spawning car", zap.Error(err))
			return
		}
		x := car.Model().Bounds().Size().X / 2
		if place > 4 {
			x = -x
		}
		z := float32(i)*s.segmentLength*4 + s.spawnDistance()
		car.SetTransform(math.Translate(x, lift, z))
		car.Collidable = true
		s.collidables = append(s.collidables, car)
	}
}

// spawnPickups places a run of ten or fifteen pickups in one lane.
func (s *Scene) spawnPickups() {
	n := (s.rng.IntN(2) + 2) * 5
	lane := Lane(s.rng.IntN(3) - 1)
	x := float32(lane) * s.cfg.PathWidth

	for i := range n {
		p, err := s.factory.Acquire(PickupModel, WhiteTexture)
		if err != nil {
			s.log.Error("spawning pickup", zap.Error(err))
			return
		}
		z := float32(i)*s.cfg.PathWidth*2 + s.spawnDistance()
		p.SetTransform(math.Translate(x, 0, z))
		p.Collidable = true
		p.Pickable = true
		p.Rotates = true
		p.EffectDelay = float32(i) * pickupDelay
		if len(s.avatars) > 0 {
			p.Texture = s.avatars[i%len(s.avatars)]
		}
		s.collidables = append(s.collidables, p)
	}
}

// draw submits the queue built by the last step. Entities flagged
// RestoreMatrix are drawn with their cosmetic transform.
func (s *Scene) draw() {
	s.renderer.SetView(s.camera.View())
	s.renderer.SetProjection(s.camera.Projection())
	s.renderer.BeginFrame()

	for _, e := range s.queue {
		lightmap := e.Lightmap
		if lightmap == nil {
			lightmap = s.white
		}
		s.renderer.Bind(lightmap, gpu.SlotLightmap)

		if !e.RestoreMatrix {
			s.renderer.Draw(e)
			continue
		}
		saved := e.Transform()
		e.SetTransform(e.DrawTransform)
		s.renderer.Draw(e)
		e.SetTransform(saved)
	}
}
