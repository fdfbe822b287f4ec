// Package game hosts the scene: it owns the window, GL device, input, audio
// and social feed, and runs the frame loop.
package game

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/assets"
	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/engine/audio"
	"github.com/Faultbox/follower-catcher/internal/engine/debug"
	"github.com/Faultbox/follower-catcher/internal/engine/gldevice"
	"github.com/Faultbox/follower-catcher/internal/engine/input"
	"github.com/Faultbox/follower-catcher/internal/engine/scene"
	"github.com/Faultbox/follower-catcher/internal/engine/window"
	"github.com/Faultbox/follower-catcher/internal/feed"
	"github.com/Faultbox/follower-catcher/internal/game/session"
	"github.com/Faultbox/follower-catcher/internal/logger"
)

// Title is the window title prefix.
const Title = "Follower Catcher"

// Optional sound content. Missing files only disable the sound.
const (
	PickupSound = "Content/Sounds/Pickup.wav"
	CrashSound  = "Content/Sounds/Crash.wav"
	MusicTrack  = "Content/Sounds/Music.wav"
)

// Game is the main game instance.
type Game struct {
	cfg     *config.Config
	running bool

	window  *window.Window
	device  *gldevice.Device
	input   *input.Input
	audio   *audio.Manager
	content *assets.Manager
	session *session.Session
	client  *feed.Client // nil when offline
	scene   *scene.Scene
	shots   *debug.Screenshots

	hudDirty    atomic.Bool
	capture     bool
	unsubscribe func()

	log *zap.Logger
}

// New creates the window and every subsystem and loads the scene content.
func New(cfg *config.Config) (*Game, error) {
	g := &Game{
		cfg:     cfg,
		session: session.New(),
		shots:   debug.NewScreenshots(cfg.ScreenshotDir(), "followercatcher"),
		log:     logger.Named("game"),
	}
	g.log.Info("initializing game",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("hashtag", cfg.Game.Hashtag),
		zap.Bool("feed", cfg.Feed.Enabled),
	)

	content, err := openContent(cfg.Content.Roots)
	if err != nil {
		return nil, err
	}
	g.content = content

	// Window first: the GL device needs a current context.
	g.window, err = window.New(window.FromGraphics(Title, cfg.Graphics))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	g.device, err = gldevice.New()
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	g.input = input.New()

	var source scene.Feed
	if cfg.Feed.Enabled {
		g.client = g.newFeedClient()
		source = g.client
	} else {
		source = feed.Offline{Store: feed.NewStore()}
	}

	g.scene = scene.New(cfg, scene.Deps{
		Content: content,
		Session: g.session,
		Feed:    source,
	})
	if err := g.scene.Initialize(g.device); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.scene.LoadContent(); err != nil {
		g.Close()
		return nil, fmt.Errorf("loading content: %w", err)
	}
	g.scene.Resize(g.window.DrawableSize())

	g.initAudio()
	g.scene.OnPickup(func() { g.playEffect(audio.EffectPickup) })
	g.scene.OnGameEnded(func() {
		g.playEffect(audio.EffectCrash)
		g.log.Info("game over", zap.Float64("miles", g.session.Snapshot().Miles))
	})

	g.unsubscribe = g.session.Subscribe(func(session.Change) {
		g.hudDirty.Store(true)
	})
	g.hudDirty.Store(true)

	g.log.Info("game initialized successfully")
	return g, nil
}

func openContent(roots []string) (*assets.Manager, error) {
	m := assets.NewManager()
	var errs error
	added := 0
	for _, root := range roots {
		if err := m.AddDir(root); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		added++
	}
	if added == 0 {
		return nil, fmt.Errorf("no usable content root: %w", errs)
	}
	if errs != nil {
		logger.Warn("some content roots were skipped", zap.Error(errs))
	}
	return m, nil
}

func (g *Game) newFeedClient() *feed.Client {
	cache, err := feed.NewDiskCache(g.cfg.AvatarCacheDir())
	if err != nil {
		g.log.Warn("avatar cache disabled", zap.Error(err))
		cache = nil
	}
	client := feed.NewClient(g.cfg.Feed, feed.NewStore(), cache)
	if _, err := client.LoadCache(); err != nil {
		g.log.Warn("reading avatar cache", zap.Error(err))
	}
	return client
}

// initAudio sets up sound. Every failure here leaves the game silent
// rather than failing startup.
func (g *Game) initAudio() {
	g.audio = audio.New()
	g.audio.Apply(g.cfg.Audio)
	if err := g.audio.Init(); err != nil {
		g.log.Warn("audio unavailable", zap.Error(err))
		return
	}

	for name, path := range map[string]string{
		audio.EffectPickup: PickupSound,
		audio.EffectCrash:  CrashSound,
	} {
		data, err := g.content.Load(path)
		if err == nil {
			err = g.audio.LoadEffect(name, data)
		}
		if err != nil {
			g.log.Warn("sound effect unavailable", zap.String("effect", name), zap.Error(err))
		}
	}

	data, err := g.content.Load(MusicTrack)
	if err != nil {
		if !errors.Is(err, assets.ErrNotFound) {
			g.log.Warn("music unavailable", zap.Error(err))
		}
		return
	}
	if err := g.audio.PlayMusic(data, true); err != nil {
		g.log.Warn("music unavailable", zap.Error(err))
	}
}

func (g *Game) playEffect(name string) {
	if g.audio == nil || !g.audio.HasEffect(name) {
		return
	}
	if err := g.audio.PlayEffect(name); err != nil {
		g.log.Debug("effect not played", zap.String("effect", name), zap.Error(err))
	}
}

// Run starts the main game loop and returns when the player quits.
func (g *Game) Run() error {
	g.running = true
	last := window.Ticks()
	frames := 0
	fpsTimer := last

	g.log.Info("starting game loop")

	for g.running {
		now := window.Ticks()
		dt := now - last
		last = now

		for _, a := range g.input.Update() {
			g.handle(a)
		}
		if !g.running {
			break
		}

		g.scene.Render(dt)
		if g.capture {
			g.capture = false
			g.screenshot()
		}
		g.window.SwapBuffers()

		if g.hudDirty.Swap(false) {
			g.window.SetTitle(hudTitle(g.scene.State(), g.session.Snapshot()))
		}

		frames++
		if now-fpsTimer >= 1 {
			st := g.scene.Renderer().Stats()
			g.log.Debug("fps",
				zap.Int("count", frames),
				zap.Int("draws", st.Draws),
				zap.Int("culled", st.Culled),
				zap.Int("texture_binds", st.TextureBinds),
			)
			frames = 0
			fpsTimer = now
		}
	}

	return nil
}

func (g *Game) handle(a input.Action) {
	switch a.Kind {
	case input.ActionQuit:
		g.running = false
	case input.ActionResize:
		g.scene.Resize(g.window.DrawableSize())
	case input.ActionLeft:
		g.scene.MovePlayer(scene.Left)
	case input.ActionRight:
		g.scene.MovePlayer(scene.Right)
	case input.ActionStart:
		if g.scene.State() != scene.Running {
			g.scene.StartGame()
			g.hudDirty.Store(true)
		}
	case input.ActionScreenshot:
		g.capture = true
	}
}

// screenshot saves the back buffer. It must run between Render and
// SwapBuffers.
func (g *Game) screenshot() {
	w, h := g.window.DrawableSize()
	name, err := g.shots.Save(g.device.ReadPixels(w, h), w, h)
	if err != nil {
		g.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	g.log.Info("screenshot saved", zap.String("path", name))
}

// Close releases every subsystem in reverse order of creation.
func (g *Game) Close() {
	g.log.Info("closing game")

	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	if g.client != nil {
		g.client.Close()
	}
	if g.audio != nil {
		g.audio.Close()
	}
	if g.scene != nil {
		if err := g.scene.Destroy(); err != nil {
			g.log.Warn("releasing scene resources", zap.Error(err))
		}
	}
	if g.input != nil {
		g.input.Close()
	}
	if g.device != nil {
		g.device.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
	if g.content != nil {
		g.content.Close()
	}
}

// hudTitle renders the session state as a window title.
func hudTitle(state scene.State, st session.State) string {
	var b strings.Builder
	b.WriteString(Title)
	fmt.Fprintf(&b, " | %.2f mi | %d followers | #%s", st.Miles, st.Followers, st.Hashtag)
	switch state {
	case scene.NotStarted:
		b.WriteString(" | press Enter to start")
	case scene.Ended:
		b.WriteString(" | game over, press Enter to retry")
	}
	if st.PostText != "" {
		fmt.Fprintf(&b, " | %s: %s", st.PostAuthor, st.PostText)
	}
	return b.String()
}
