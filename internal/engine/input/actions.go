package input

// Key is a device-independent key.
type Key int

const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeyStart
	KeyQuit
	KeyScreenshot
)

// ActionKind is what the game should do in response to input.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionLeft
	ActionRight
	ActionStart
	ActionQuit
	ActionResize
	ActionScreenshot
)

func (k ActionKind) String() string {
	switch k {
	case ActionLeft:
		return "left"
	case ActionRight:
		return "right"
	case ActionStart:
		return "start"
	case ActionQuit:
		return "quit"
	case ActionResize:
		return "resize"
	case ActionScreenshot:
		return "screenshot"
	default:
		return "none"
	}
}

// Action is a mapped input. Width and Height are set for ActionResize.
type Action struct {
	Kind          ActionKind
	Width, Height int
}

const (
	// TiltThreshold is the stick deflection that triggers a lane change.
	TiltThreshold = 0.7
	// DragThreshold is the shortest horizontal drag, in pixels, that counts
	// as a swipe. Shorter presses are taps.
	DragThreshold = 8
)

// Mapper converts events to actions. Tilt fires once per deflection and
// re-arms when the stick returns inside the threshold.
type Mapper struct {
	dragging   bool
	dragStartX int
	tiltFired  bool
}

// NewMapper creates a mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map returns the action for e, or an ActionNone action.
func (m *Mapper) Map(e Event) Action {
	switch e.Type {
	case EventQuit:
		return Action{Kind: ActionQuit}

	case EventWindowResize:
		return Action{Kind: ActionResize, Width: e.Width, Height: e.Height}

	case EventKeyDown, EventButton:
		return Action{Kind: keyAction(e.Key)}

	case EventMouseDown:
		if e.Button == 1 {
			m.dragging = true
			m.dragStartX = e.MouseX
		}

	case EventMouseUp:
		if e.Button != 1 || !m.dragging {
			break
		}
		m.dragging = false
		dx := e.MouseX - m.dragStartX
		switch {
		case dx <= -DragThreshold:
			return Action{Kind: ActionLeft}
		case dx >= DragThreshold:
			return Action{Kind: ActionRight}
		default:
			return Action{Kind: ActionStart}
		}

	case EventAxis:
		switch {
		case e.Axis < -TiltThreshold:
			if !m.tiltFired {
				m.tiltFired = true
				return Action{Kind: ActionLeft}
			}
		case e.Axis > TiltThreshold:
			if !m.tiltFired {
				m.tiltFired = true
				return Action{Kind: ActionRight}
			}
		default:
			m.tiltFired = false
		}
	}
	return Action{}
}

func keyAction(k Key) ActionKind {
	switch k {
	case KeyLeft:
		return ActionLeft
	case KeyRight:
		return ActionRight
	case KeyStart:
		return ActionStart
	case KeyQuit:
		return ActionQuit
	case KeyScreenshot:
		return ActionScreenshot
	}
	return ActionNone
}
