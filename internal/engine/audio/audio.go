// Package audio plays looping music and one-shot sound effects.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/config"
	"github.com/Faultbox/follower-catcher/internal/logger"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// Effect names played by the game.
const (
	EffectPickup = "pickup"
	EffectCrash  = "crash"
)

// Manager handles audio playback for the game.
type Manager struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate

	// Music
	musicStreamer beep.StreamSeekCloser
	musicCtrl     *beep.Ctrl
	musicVolume   *effects.Volume
	musicPlaying  atomic.Bool

	// Volume settings (0.0 to 1.0)
	masterVolume float64
	musicLevel   float64
	sfxLevel     float64
	muted        bool

	// Effects are decoded once and replayed from memory.
	effects map[string]*beep.Buffer
	mixer   *beep.Mixer

	log *zap.Logger
}

// New creates a new audio manager.
func New() *Manager {
	return &Manager{
		sampleRate:   DefaultSampleRate,
		masterVolume: 1.0,
		musicLevel:   0.7,
		sfxLevel:     1.0,
		effects:      make(map[string]*beep.Buffer),
		mixer:        &beep.Mixer{},
		log:          logger.Named("audio"),
	}
}

// Apply copies the volume settings from cfg.
func (m *Manager) Apply(cfg config.AudioConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterVolume = clamp(float64(cfg.MasterVolume), 0, 1)
	m.musicLevel = clamp(float64(cfg.MusicVolume), 0, 1)
	m.sfxLevel = clamp(float64(cfg.SFXVolume), 0, 1)
	m.muted = cfg.Muted
	m.updateMusicVolume()
}

// Init opens the audio device.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(m.mixer)
	m.initialized = true
	m.log.Info("audio initialized", zap.Int("sample_rate", int(m.sampleRate)))
	return nil
}

// Close stops all playback and releases the device.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}
	m.stopMusicLocked()
	speaker.Clear()
	speaker.Close()
	m.initialized = false
}

// IsInitialized returns whether the audio device is open.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetMasterVolume sets the master volume (0.0 to 1.0).
func (m *Manager) SetMasterVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterVolume = clamp(vol, 0, 1)
	m.updateMusicVolume()
}

// SetMusicVolume sets the music volume (0.0 to 1.0).
func (m *Manager) SetMusicVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.musicLevel = clamp(vol, 0, 1)
	m.updateMusicVolume()
}

// SetSFXVolume sets the effects volume (0.0 to 1.0).
func (m *Manager) SetSFXVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sfxLevel = clamp(vol, 0, 1)
}

// SetMuted silences all output without losing the volume levels.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.updateMusicVolume()
}

// Volumes returns the master, music and effects levels.
func (m *Manager) Volumes() (master, music, sfx float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.masterVolume, m.musicLevel, m.sfxLevel
}

func (m *Manager) gain(level float64) float64 {
	if m.muted {
		return 0
	}
	return m.masterVolume * level
}

func (m *Manager) updateMusicVolume() {
	if m.musicVolume == nil {
		return
	}
	vol := m.gain(m.musicLevel)
	if m.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	m.musicVolume.Silent = vol <= 0
	m.musicVolume.Volume = volumeToExponent(vol)
}

// volumeToExponent converts a linear 0-1 gain to the base-2 exponent used by
// effects.Volume.
func volumeToExponent(vol float64) float64 {
	if vol <= 0 {
		return -10
	}
	return math.Log2(vol)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func (m *Manager) decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
	}
	return streamer, format, nil
}

func (m *Manager) resample(format beep.Format, s beep.Streamer) beep.Streamer {
	if format.SampleRate == m.sampleRate {
		return s
	}
	return beep.Resample(4, format.SampleRate, m.sampleRate, s)
}

// LoadEffect decodes WAV data and stores it under name, replacing any
// effect with the same name.
func (m *Manager) LoadEffect(name string, data []byte) error {
	streamer, format, err := m.decode(data)
	if err != nil {
		return fmt.Errorf("effect %s: %w", name, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(beep.Format{
		SampleRate:  m.sampleRate,
		NumChannels: format.NumChannels,
		Precision:   format.Precision,
	})
	buf.Append(m.resample(format, streamer))

	m.mu.Lock()
	m.effects[name] = buf
	m.mu.Unlock()
	m.log.Debug("effect loaded", zap.String("name", name), zap.Int("samples", buf.Len()))
	return nil
}

// HasEffect reports whether name was loaded.
func (m *Manager) HasEffect(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.effects[name]
	return ok
}

// PlayEffect mixes the named effect into the output.
func (m *Manager) PlayEffect(name string) error {
	m.mu.RLock()
	initialized := m.initialized
	buf, ok := m.effects[name]
	vol := m.gain(m.sfxLevel)
	m.mu.RUnlock()

	if !initialized {
		return fmt.Errorf("audio not initialized")
	}
	if !ok {
		return fmt.Errorf("unknown effect %q", name)
	}
	if vol <= 0 {
		return nil
	}

	s := &effects.Volume{
		Streamer: buf.Streamer(0, buf.Len()),
		Base:     2,
		Volume:   volumeToExponent(vol),
	}
	speaker.Lock()
	m.mixer.Add(s)
	speaker.Unlock()
	return nil
}

// PlayMusic replaces the current music with WAV data.
func (m *Manager) PlayMusic(data []byte, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return fmt.Errorf("audio not initialized")
	}
	m.stopMusicLocked()

	streamer, format, err := m.decode(data)
	if err != nil {
		return err
	}

	var s beep.Streamer
	if loop {
		s = &loopStreamer{streamer: streamer, resampled: m.resample(format, streamer)}
	} else {
		s = m.resample(format, streamer)
	}

	m.musicCtrl = &beep.Ctrl{Streamer: s}
	m.musicVolume = &effects.Volume{Streamer: m.musicCtrl, Base: 2}
	m.musicStreamer = streamer
	m.musicPlaying.Store(true)
	m.updateMusicVolume()

	// Runs on the speaker goroutine, which already holds the speaker lock.
	done := beep.Callback(func() {
		m.musicPlaying.Store(false)
	})
	speaker.Lock()
	m.mixer.Add(beep.Seq(m.musicVolume, done))
	speaker.Unlock()
	return nil
}

// StopMusic stops the current music.
func (m *Manager) StopMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMusicLocked()
}

func (m *Manager) stopMusicLocked() {
	if m.musicCtrl != nil {
		speaker.Lock()
		m.musicCtrl.Streamer = nil
		speaker.Unlock()
	}
	if m.musicStreamer != nil {
		m.musicStreamer.Close()
		m.musicStreamer = nil
	}
	m.musicCtrl = nil
	m.musicVolume = nil
	m.musicPlaying.Store(false)
}

// IsMusicPlaying returns whether music is currently playing.
func (m *Manager) IsMusicPlaying() bool {
	return m.musicPlaying.Load()
}

// loopStreamer rewinds its source whenever it runs dry.
type loopStreamer struct {
	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.resampled.Stream(samples[filled:])
		filled += n
		if !ok {
			if err := l.streamer.Seek(0); err != nil {
				return filled, filled > 0
			}
			if n == 0 && filled == 0 {
				// Empty source.
				return 0, false
			}
		}
	}
	return filled, true
}

func (l *loopStreamer) Err() error {
	return l.streamer.Err()
}
