package canvas

import (
	"fmt"
	"image"
	"sync"
)

// OpKind is the kind of a recorded drawing operation.
type OpKind int

// see OpKind
const (
	FillOp OpKind = iota
	StrokeOp
	TagBeginOp
	TagEndOp
)

func (kind OpKind) String() string {
	switch kind {
	case FillOp:
		return "fill"
	case StrokeOp:
		return "stroke"
	case TagBeginOp:
		return "tag_begin"
	case TagEndOp:
		return "tag_end"
	}
	return fmt.Sprintf("OpKind(%d)", int(kind))
}

// Op is a recorded drawing operation.
type Op struct {
	Kind  OpKind
	Path  *Path // in device space
	State DrawState
	Name  string
	Attrs string
}

// UserPath returns the path of the operation in the user space that was current when it was drawn.
func (op Op) UserPath() *Path {
	if op.Path == nil {
		return nil
	}
	return op.Path.Transform(op.State.Matrix.Inv())
}

// Recorder is a renderer that records all operations without producing pixels. It is used for testing and for
// inspecting which link tags and shapes a document produces.
type Recorder struct {
	mu     sync.Mutex
	width  int
	height int
	ops    []Op
}

// NewRecorder returns a recording renderer of the given device size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{width: width, height: height}
}

// Size returns the device size.
func (r *Recorder) Size() (int, int) {
	return r.width, r.height
}

// Fill records a fill operation.
func (r *Recorder) Fill(path *Path, st *DrawState) {
	r.add(Op{Kind: FillOp, Path: path, State: *st})
}

// Stroke records a stroke operation.
func (r *Recorder) Stroke(path *Path, st *DrawState) {
	r.add(Op{Kind: StrokeOp, Path: path, State: *st})
}

// Tag records the opening or closing of a tag.
func (r *Recorder) Tag(begin bool, name, attributes string) {
	if begin {
		r.add(Op{Kind: TagBeginOp, Name: name, Attrs: attributes})
	} else {
		r.add(Op{Kind: TagEndOp, Name: name})
	}
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// NewSimilar returns a new recorder.
func (r *Recorder) NewSimilar(width, height int) Renderer {
	return NewRecorder(width, height)
}

// Image returns nil, a recorder produces no pixels.
func (r *Recorder) Image() image.Image {
	return nil
}

// Ops returns the recorded operations.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op{}, r.ops...)
}

// Filter returns the recorded operations of the given kind.
func (r *Recorder) Filter(kind OpKind) []Op {
	var ops []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			ops = append(ops, op)
		}
	}
	return ops
}

// Reset clears the recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = r.ops[:0]
	r.mu.Unlock()
}
