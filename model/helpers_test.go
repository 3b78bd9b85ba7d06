package model

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/tdewolff/test"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/download"
	"github.com/guixmpp/canvas/view"
)

type resource struct {
	data     string
	mimetype string
}

// memory serves documents of the mem: scheme and counts the downloads of each URL.
type memory struct {
	mu        sync.Mutex
	resources map[string]resource
	counts    map[string]int
	hook      func(ctx context.Context, url string) error
}

func newMemory(resources map[string]resource) *memory {
	return &memory{
		resources: resources,
		counts:    map[string]int{},
	}
}

func (mem *memory) Download(ctx context.Context, url string) ([]byte, string, error) {
	mem.mu.Lock()
	mem.counts[url]++
	r, ok := mem.resources[url]
	hook := mem.hook
	mem.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, url); err != nil {
			return nil, "", err
		}
	}
	if !ok {
		return nil, "", fmt.Errorf("%s: no such resource", url)
	}
	return []byte(r.data), r.mimetype, nil
}

func (mem *memory) count(url string) int {
	mem.mu.Lock()
	defer mem.mu.Unlock()
	return mem.counts[url]
}

func newModel(mem *memory) *Model {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	downloads := download.New(&download.Options{Logger: logger})
	downloads.Register("mem", mem)
	return New(&Options{
		Download: downloads,
		Logger:   logger,
	})
}

func open(t *testing.T, m *Model, v view.View, url string) {
	t.Helper()
	doc, err := m.OpenDocument(context.Background(), v, url)
	test.Error(t, err)
	if doc == nil {
		t.Fatalf("no document opened for %s", url)
	}
}

func newContext(m *Model, v *view.Headless) (*canvas.Canvas, *canvas.Recorder) {
	rec := canvas.NewRecorder(int(v.Width), int(v.Height))
	ctx := canvas.New(rec)
	ctx.Fonts = m.Fonts()
	return ctx, rec
}

func viewport(v *view.Headless) canvas.Rect {
	return canvas.Rect{X: 0.0, Y: 0.0, W: v.Width, H: v.Height}
}

// targets lists the ids of the targets of the recorded events of the given types.
func targets(v *view.Headless, types ...string) []string {
	ids := []string{}
	for _, ev := range v.Events() {
		base := ev.Base()
		for _, typ := range types {
			if base.Type != typ {
				continue
			}
			id := ""
			if e, ok := base.Target.(dom.Element); ok {
				id, _ = dom.ID(e)
			}
			ids = append(ids, base.Type+"("+id+")")
		}
	}
	return ids
}
