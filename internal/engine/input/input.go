// Package input turns SDL2 events into lane commands.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/follower-catcher/internal/logger"
)

// EventType classifies a polled event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventMouseDown
	EventMouseUp
	EventAxis
	EventButton
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
	Axis   float64 // controller left stick X in [-1,1]
}

// Input polls SDL and feeds a Mapper.
type Input struct {
	events      []Event
	actions     []Action
	mapper      *Mapper
	controllers map[sdl.JoystickID]*sdl.GameController
	log         *zap.Logger
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events:      make([]Event, 0, 16),
		actions:     make([]Action, 0, 4),
		mapper:      NewMapper(),
		controllers: make(map[sdl.JoystickID]*sdl.GameController),
		log:         logger.Named("input"),
	}
}

// Update polls pending SDL events and maps them to actions.
func (i *Input) Update() []Action {
	i.events = i.events[:0]
	i.actions = i.actions[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := i.translate(event); ok {
			i.events = append(i.events, e)
			if a := i.mapper.Map(e); a.Kind != ActionNone {
				i.actions = append(i.actions, a)
			}
		}
	}
	return i.actions
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Close releases opened controllers.
func (i *Input) Close() {
	for id, c := range i.controllers {
		c.Close()
		delete(i.controllers, id)
	}
}

func (i *Input) translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)}, true
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
			return Event{Type: EventKeyDown, Key: keyFromScancode(e.Keysym.Scancode)}, true
		}

	case *sdl.MouseButtonEvent:
		ev := Event{MouseX: int(e.X), MouseY: int(e.Y), Button: e.Button}
		if e.Type == sdl.MOUSEBUTTONDOWN {
			ev.Type = EventMouseDown
		} else {
			ev.Type = EventMouseUp
		}
		return ev, true

	case *sdl.ControllerDeviceEvent:
		switch e.Type {
		case sdl.CONTROLLERDEVICEADDED:
			if c := sdl.GameControllerOpen(int(e.Which)); c != nil {
				i.controllers[c.Joystick().InstanceID()] = c
				i.log.Info("controller connected", zap.String("name", c.Name()))
			}
		case sdl.CONTROLLERDEVICEREMOVED:
			if c, ok := i.controllers[e.Which]; ok {
				c.Close()
				delete(i.controllers, e.Which)
				i.log.Info("controller disconnected")
			}
		}

	case *sdl.ControllerAxisEvent:
		if sdl.GameControllerAxis(e.Axis) == sdl.CONTROLLER_AXIS_LEFTX {
			return Event{Type: EventAxis, Axis: float64(e.Value) / 32767}, true
		}

	case *sdl.ControllerButtonEvent:
		if e.Type == sdl.CONTROLLERBUTTONDOWN {
			return Event{Type: EventButton, Key: keyFromButton(sdl.GameControllerButton(e.Button))}, true
		}
	}
	return Event{}, false
}

func keyFromScancode(sc sdl.Scancode) Key {
	switch sc {
	case sdl.SCANCODE_LEFT, sdl.SCANCODE_A:
		return KeyLeft
	case sdl.SCANCODE_RIGHT, sdl.SCANCODE_D:
		return KeyRight
	case sdl.SCANCODE_RETURN, sdl.SCANCODE_KP_ENTER, sdl.SCANCODE_SPACE:
		return KeyStart
	case sdl.SCANCODE_ESCAPE:
		return KeyQuit
	case sdl.SCANCODE_F12:
		return KeyScreenshot
	}
	return KeyNone
}

func keyFromButton(b sdl.GameControllerButton) Key {
	switch b {
	case sdl.CONTROLLER_BUTTON_DPAD_LEFT:
		return KeyLeft
	case sdl.CONTROLLER_BUTTON_DPAD_RIGHT:
		return KeyRight
	case sdl.CONTROLLER_BUTTON_A, sdl.CONTROLLER_BUTTON_START:
		return KeyStart
	case sdl.CONTROLLER_BUTTON_BACK:
		return KeyQuit
	}
	return KeyNone
}
