package view

import (
	"strings"
	"sync"

	"github.com/guixmpp/canvas/events"
)

// Element is a node in a hover chain. Elements are compared by key, since overlay elements are rebuilt on each
// hit test.
type Element interface {
	Key() string
}

// Sample is the input state accompanying a pointer or key event.
type Sample struct {
	events.Modifiers
	X, Y             float64 // client coordinates
	ScreenX, ScreenY float64
}

// Tracker keeps the hover chain, pressed buttons and focus of a view and emits DOM events as they change. It is
// safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	chain   []Element
	buttons int
	pressed Element
	focus   Element
	lastKey string
}

// Pointed returns the deepest element under the pointer, or nil.
func (t *Tracker) Pointed() Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.chain) == 0 {
		return nil
	}
	return t.chain[len(t.chain)-1]
}

// Chain returns the current hover chain from outermost to deepest.
func (t *Tracker) Chain() []Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Element{}, t.chain...)
}

// Buttons returns the bitmask of pressed buttons.
func (t *Tracker) Buttons() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buttons
}

func contains(chain []Element, e Element) bool {
	for _, c := range chain {
		if c.Key() == e.Key() {
			return true
		}
	}
	return false
}

func last(chain []Element) Element {
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

func same(a, b Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

func (t *Tracker) mouse(typ string, target, related Element, s Sample, button int) *events.MouseEvent {
	ev := &events.MouseEvent{
		Modifiers: s.Modifiers,
		ClientX:   s.X,
		ClientY:   s.Y,
		ScreenX:   s.ScreenX,
		ScreenY:   s.ScreenY,
		Button:    button,
		Buttons:   t.buttons,
	}
	ev.Type = typ
	if target != nil {
		ev.Target = target
	}
	if related != nil {
		ev.RelatedTarget = related
	}
	return ev
}

// Move replaces the hover chain with the result of a hit test and emits, in order: mouseout on the previous
// target, mouseleave on each element left (deepest first), mouseover on the new target, mouseenter on each
// element entered (outermost first), and finally mousemove.
func (t *Tracker) Move(v View, chain []Element, s Sample) {
	t.mu.Lock()
	old := t.chain
	t.chain = append([]Element{}, chain...)
	var evs []events.DOMEvent
	oldTarget, newTarget := last(old), last(chain)
	if !same(oldTarget, newTarget) {
		if oldTarget != nil {
			evs = append(evs, t.mouse(events.MouseOut, oldTarget, newTarget, s, 0))
		}
		for i := len(old) - 1; 0 <= i; i-- {
			if !contains(chain, old[i]) {
				evs = append(evs, t.mouse(events.MouseLeave, old[i], newTarget, s, 0))
			}
		}
		if newTarget != nil {
			evs = append(evs, t.mouse(events.MouseOver, newTarget, oldTarget, s, 0))
		}
		for i := 0; i < len(chain); i++ {
			if !contains(old, chain[i]) {
				evs = append(evs, t.mouse(events.MouseEnter, chain[i], oldTarget, s, 0))
			}
		}
	}
	evs = append(evs, t.mouse(events.MouseMove, newTarget, nil, s, 0))
	t.mu.Unlock()

	for _, ev := range evs {
		v.Emit(ev)
	}
}

func buttonMask(button int) int {
	switch button {
	case 0:
		return 1
	case 1:
		return 4
	case 2:
		return 2
	}
	return 1 << uint(button)
}

// Press registers a pressed button (0 primary, 1 middle, 2 secondary) and emits mousedown on the pointed element.
func (t *Tracker) Press(v View, button int, s Sample) {
	t.mu.Lock()
	t.buttons |= buttonMask(button)
	target := last(t.chain)
	t.pressed = target
	ev := t.mouse(events.MouseDown, target, nil, s, button)
	t.mu.Unlock()
	v.Emit(ev)
}

// Release registers a released button and emits mouseup, followed by click (or auxclick for other than the
// primary button) when released over the element it was pressed on. clicks is the click count; a count of two
// also emits dblclick.
func (t *Tracker) Release(v View, button int, clicks int, s Sample) {
	t.mu.Lock()
	t.buttons &^= buttonMask(button)
	target := last(t.chain)
	evs := []events.DOMEvent{t.mouse(events.MouseUp, target, nil, s, button)}
	if target != nil && same(target, t.pressed) {
		typ := events.Click
		if button != 0 {
			typ = events.AuxClick
		}
		click := t.mouse(typ, target, nil, s, button)
		click.Detail = clicks
		evs = append(evs, click)
		if button == 0 && clicks == 2 {
			dbl := t.mouse(events.DblClick, target, nil, s, button)
			dbl.Detail = clicks
			evs = append(evs, dbl)
		}
	}
	t.pressed = nil
	t.mu.Unlock()
	for _, ev := range evs {
		v.Emit(ev)
	}
}

// Scroll emits a wheel event on the pointed element.
func (t *Tracker) Scroll(v View, dx, dy, dz float64, mode events.DeltaMode, s Sample) {
	t.mu.Lock()
	ev := &events.WheelEvent{
		MouseEvent: *t.mouse(events.Wheel, last(t.chain), nil, s, 0),
		DeltaX:     dx,
		DeltaY:     dy,
		DeltaZ:     dz,
		DeltaMode:  mode,
	}
	t.mu.Unlock()
	v.Emit(ev)
}

// Focused returns the focused element, or nil.
func (t *Tracker) Focused() Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focus
}

// SetFocus moves the focus and emits blur and focusout on the old element and focus and focusin on the new one.
func (t *Tracker) SetFocus(v View, e Element) {
	t.mu.Lock()
	old := t.focus
	if same(old, e) {
		t.mu.Unlock()
		return
	}
	t.focus = e
	t.mu.Unlock()

	focus := func(typ string, target, related Element) *events.FocusEvent {
		ev := &events.FocusEvent{}
		ev.Type = typ
		if target != nil {
			ev.Target = target
		}
		if related != nil {
			ev.RelatedTarget = related
		}
		return ev
	}
	if old != nil {
		v.Emit(focus(events.Blur, old, e))
		v.Emit(focus(events.FocusOut, old, e))
	}
	if e != nil {
		v.Emit(focus(events.Focus, e, old))
		v.Emit(focus(events.FocusIn, e, old))
	}
}

// KeyLocation derives the key location from a key name such as Shift_L, Control_R or KP_Enter.
func KeyLocation(code string) events.KeyLocation {
	if len(code) <= 1 {
		return events.LocationStandard
	} else if strings.HasSuffix(code, "R") {
		return events.LocationRight
	} else if strings.HasSuffix(code, "L") {
		return events.LocationLeft
	} else if strings.HasPrefix(code, "KP") {
		return events.LocationNumpad
	}
	return events.LocationStandard
}

// Key emits keydown or keyup on the focused element. A keydown of the same code as the previous one is a repeat.
func (t *Tracker) Key(v View, down bool, key, code string, s Sample) {
	t.mu.Lock()
	ev := &events.KeyboardEvent{
		Modifiers: s.Modifiers,
		Key:       key,
		Code:      code,
		Location:  KeyLocation(code),
	}
	if down {
		ev.Type = events.KeyDown
		ev.Repeat = t.lastKey == code
		t.lastKey = code
	} else {
		ev.Type = events.KeyUp
		t.lastKey = ""
	}
	if t.focus != nil {
		ev.Target = t.focus
	}
	t.mu.Unlock()
	v.Emit(ev)
}
