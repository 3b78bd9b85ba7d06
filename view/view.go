// Package view defines the contract between the document model and a window, and provides a headless view and a
// pointer tracker that turns hover chains into DOM pointer events.
package view

import (
	"sync"

	"github.com/guixmpp/canvas/events"
)

// View is implemented by the window that displays a document.
type View interface {
	ViewportWidth() float64
	ViewportHeight() float64
	DPI() float64

	// Pointer returns the pointer position in device coordinates, if the pointer is over the view.
	Pointer() (float64, float64, bool)

	// Buttons returns the bitmask of pressed pointer buttons.
	Buttons() int

	// Emit delivers an event. Returning false vetoes the default action.
	Emit(ev events.DOMEvent) bool
}

// Handler receives events emitted to a Headless view.
type Handler func(ev events.DOMEvent) bool

// Headless is a view without a window. It records every emitted event.
type Headless struct {
	Width, Height float64
	Resolution    float64
	Handler       Handler

	mu      sync.Mutex
	pointer *[2]float64
	buttons int
	emitted []events.DOMEvent
}

// NewHeadless returns a headless view of the given viewport size at 96 DPI.
func NewHeadless(width, height float64) *Headless {
	return &Headless{
		Width:      width,
		Height:     height,
		Resolution: 96.0,
	}
}

// ViewportWidth returns the viewport width.
func (v *Headless) ViewportWidth() float64 {
	return v.Width
}

// ViewportHeight returns the viewport height.
func (v *Headless) ViewportHeight() float64 {
	return v.Height
}

// DPI returns the resolution.
func (v *Headless) DPI() float64 {
	return v.Resolution
}

// SetPointer places the pointer.
func (v *Headless) SetPointer(x, y float64) {
	v.mu.Lock()
	v.pointer = &[2]float64{x, y}
	v.mu.Unlock()
}

// ClearPointer removes the pointer from the view.
func (v *Headless) ClearPointer() {
	v.mu.Lock()
	v.pointer = nil
	v.mu.Unlock()
}

// Pointer returns the pointer position.
func (v *Headless) Pointer() (float64, float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pointer == nil {
		return 0.0, 0.0, false
	}
	return v.pointer[0], v.pointer[1], true
}

// SetButtons sets the pressed buttons.
func (v *Headless) SetButtons(buttons int) {
	v.mu.Lock()
	v.buttons = buttons
	v.mu.Unlock()
}

// Buttons returns the pressed buttons.
func (v *Headless) Buttons() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.buttons
}

// Emit records the event and passes it to the handler.
func (v *Headless) Emit(ev events.DOMEvent) bool {
	v.mu.Lock()
	v.emitted = append(v.emitted, ev)
	handler := v.Handler
	v.mu.Unlock()
	if handler != nil {
		return handler(ev)
	}
	return true
}

// Events returns the recorded events.
func (v *Headless) Events() []events.DOMEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]events.DOMEvent{}, v.emitted...)
}

// Types returns the types of the recorded events, optionally filtered.
func (v *Headless) Types(filter ...string) []string {
	var types []string
	for _, ev := range v.Events() {
		typ := ev.Base().Type
		if len(filter) == 0 {
			types = append(types, typ)
			continue
		}
		for _, f := range filter {
			if f == typ {
				types = append(types, typ)
				break
			}
		}
	}
	return types
}

// Reset clears the recorded events.
func (v *Headless) Reset() {
	v.mu.Lock()
	v.emitted = v.emitted[:0]
	v.mu.Unlock()
}
