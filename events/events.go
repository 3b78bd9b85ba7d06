// Package events holds the DOM event payloads emitted to views.
package events

// Event types.
const (
	Opening      = "opening"
	Open         = "open"
	Closing      = "closing"
	Close        = "close"
	Download     = "download"
	Redirect     = "redirect"
	Error        = "error"
	ParseError   = "parseerror"
	BeforeLoad   = "beforeload"
	Load         = "load"
	BeforeUnload = "beforeunload"
	Unload       = "unload"
	Cancelled    = "cancelled"
	Warning      = "warning"

	MouseOver  = "mouseover"
	MouseOut   = "mouseout"
	MouseEnter = "mouseenter"
	MouseLeave = "mouseleave"
	MouseMove  = "mousemove"
	MouseDown  = "mousedown"
	MouseUp    = "mouseup"
	Click      = "click"
	AuxClick   = "auxclick"
	DblClick   = "dblclick"
	Wheel      = "wheel"
	KeyDown    = "keydown"
	KeyUp      = "keyup"
	Focus      = "focus"
	Blur       = "blur"
	FocusIn    = "focusin"
	FocusOut   = "focusout"
)

// DOMEvent is implemented by all event payloads.
type DOMEvent interface {
	Base() *Event
}

// Event is the payload of UI and custom events. Handlers may set Result to supply a replacement value, such as a
// redirect URL for download events or substitute bytes for error events.
type Event struct {
	Type   string
	Target any
	View   any
	Detail any
	Result any
}

// Base returns the base event.
func (e *Event) Base() *Event {
	return e
}

// New returns a custom event.
func New(typ string, target, view, detail any) *Event {
	return &Event{Type: typ, Target: target, View: view, Detail: detail}
}

// Modifiers are the keyboard modifier states.
type Modifiers struct {
	ShiftKey bool
	CtrlKey  bool
	AltKey   bool
	MetaKey  bool
}

// MouseEvent is the payload of pointer events. Detail of the embedded event holds the click count.
type MouseEvent struct {
	Event
	Modifiers
	ClientX, ClientY float64
	ScreenX, ScreenY float64
	Button           int
	Buttons          int
	RelatedTarget    any
}

// DeltaMode is the unit of wheel deltas.
type DeltaMode int

// see DeltaMode
const (
	DeltaPixel DeltaMode = iota
	DeltaLine
	DeltaPage
)

// WheelEvent is the payload of wheel events.
type WheelEvent struct {
	MouseEvent
	DeltaX, DeltaY, DeltaZ float64
	DeltaMode              DeltaMode
}

// KeyLocation is the location of a key on the keyboard.
type KeyLocation int

// see KeyLocation
const (
	LocationStandard KeyLocation = iota
	LocationLeft
	LocationRight
	LocationNumpad
)

// KeyboardEvent is the payload of key events.
type KeyboardEvent struct {
	Event
	Modifiers
	Key      string
	Code     string
	Location KeyLocation
	Repeat   bool
}

// FocusEvent is the payload of focus events.
type FocusEvent struct {
	Event
	RelatedTarget any
}
