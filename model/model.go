// Package model loads documents together with everything they link to, keeps them by URL and serves them to the
// formats that draw them. It is the format.Host of all formats in its registry.
//
// Every load is at most once per URL: concurrent requests for the same URL wait for the first one. Problems while
// loading never fail a load, the document is replaced by a null document and a warning is emitted to the view.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/download"
	"github.com/guixmpp/canvas/events"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/svg"
	"github.com/guixmpp/canvas/view"
)

// ErrDocumentNotFound is returned for URLs that are not loaded.
var ErrDocumentNotFound = errors.New("document not found")

// ErrAlreadyOpen is returned when a view opens a document without closing the previous one.
var ErrAlreadyOpen = errors.New("view already has an open document")

// ErrNotOpen is returned when a view without an open document closes it.
var ErrNotOpen = errors.New("view has no open document")

// Substitute may be set as the Result of an error event to replace the data of a failed download.
type Substitute struct {
	Data []byte
	MIME string
}

// Options are the collaborators of a model.
type Options struct {
	// Download fetches URLs, default is download.New(nil).
	Download *download.Registry

	// Formats creates and draws documents, default is format.Default() with the SVG format in front.
	Formats *format.Registry

	// Fonts holds the fonts for text and receives web fonts, default is canvas.DefaultFontSet().
	Fonts *canvas.FontSet

	Logger *slog.Logger
}

// DefaultOptions are the default options.
var DefaultOptions = Options{}

// Model holds the loaded documents shared by all views.
type Model struct {
	download *download.Registry
	formats  *format.Registry
	fonts    *canvas.FontSet
	logger   *slog.Logger

	mu        sync.Mutex
	documents map[string]format.Document
	urls      map[format.Document]string
	pending   map[string]chan struct{}
	sessions  map[view.View]*session
}

// New returns a model.
func New(opts *Options) *Model {
	if opts == nil {
		opts = &DefaultOptions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	downloads := opts.Download
	if downloads == nil {
		downloads = download.New(&download.Options{Logger: logger})
	}
	formats := opts.Formats
	if formats == nil {
		formats = format.Default()
		formats.Prepend(svg.New())
	}
	fonts := opts.Fonts
	if fonts == nil {
		fonts = canvas.DefaultFontSet()
	}
	return &Model{
		download:  downloads,
		formats:   formats,
		fonts:     fonts,
		logger:    logger,
		documents: map[string]format.Document{},
		urls:      map[format.Document]string{},
		pending:   map[string]chan struct{}{},
		sessions:  map[view.View]*session{},
	}
}

// Formats returns the format registry.
func (m *Model) Formats() *format.Registry {
	return m.formats
}

// OpenDocument loads the document at url and everything it links to, and makes it the document of the view. The
// opening and open events may veto, in which case nil is returned. A cancelled context stops the load and emits a
// cancelled event; documents loaded so far are kept.
func (m *Model) OpenDocument(ctx context.Context, v view.View, url string) (format.Document, error) {
	ctx, cancel := context.WithCancel(ctx)
	s, err := m.begin(v, url, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	if !v.Emit(events.New(events.Opening, nil, v, url)) {
		m.end(v)
		return nil, nil
	}

	doc, err := m.load(ctx, v, s, url, "")
	if err != nil {
		v.Emit(events.New(events.Cancelled, doc, v, url))
		return nil, err
	}
	s.setDocument(doc)

	if !v.Emit(events.New(events.Open, doc, v, url)) {
		m.end(v)
		return nil, nil
	}
	return doc, nil
}

// CloseDocument unloads the document of the view. In-flight loads of the view are cancelled and documents no
// longer referenced by any view are dropped. The warnings of the view are forgotten.
func (m *Model) CloseDocument(ctx context.Context, v view.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, ok := m.lookup(v)
	if !ok {
		return ErrNotOpen
	}
	url, doc := s.current()
	if !v.Emit(events.New(events.Closing, doc, v, url)) {
		m.end(v)
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	cancel()

	released := map[string]bool{}
	m.unload(v, s, url, "", released)
	m.release(v, released)

	v.Emit(events.New(events.Close, nil, v, url))
	m.end(v)
	return nil
}

// CurrentDocument returns the document opened in the view.
func (m *Model) CurrentDocument(v view.View) (format.Document, bool) {
	s, ok := m.lookup(v)
	if !ok {
		return nil, false
	}
	_, doc := s.current()
	return doc, doc != nil
}

// CurrentLocation returns the URL opened in the view.
func (m *Model) CurrentLocation(v view.View) (string, bool) {
	s, ok := m.lookup(v)
	if !ok {
		return "", false
	}
	url, _ := s.current()
	return url, true
}

// GetDocument returns the loaded document of a URL. For URLs with a fragment it returns the fragment of the
// document.
func (m *Model) GetDocument(url string) (format.Document, error) {
	root := Root(url)
	m.mu.Lock()
	doc, ok := m.documents[root]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", abbreviate(url), ErrDocumentNotFound)
	}
	id, ok := Fragment(url)
	if !ok || id == "" {
		return doc, nil
	}
	frag, err := m.formats.Fragment(doc, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abbreviate(url), errors.Join(ErrDocumentNotFound, err))
	}
	return frag, nil
}

// Documents returns the URLs of all loaded documents.
func (m *Model) Documents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, 0, len(m.documents))
	for url := range m.documents {
		urls = append(urls, url)
	}
	return urls
}

func (m *Model) cached(root string) (format.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[root]
	return doc, ok
}

// store records the document of root and ends a pending load of it.
func (m *Model) store(root string, doc format.Document) {
	m.mu.Lock()
	m.documents[root] = doc
	if _, ok := m.urls[doc]; !ok {
		m.urls[doc] = root
	}
	m.finish(root)
	m.mu.Unlock()
	m.formats.Invalidate()
}

// claim returns a channel to wait on when another load of root is in progress, or nil after registering the caller
// as the loader. Loaded documents return ok.
func (m *Model) claim(root string) (chan struct{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[root]; ok {
		return nil, true
	} else if wait, ok := m.pending[root]; ok {
		return wait, false
	}
	m.pending[root] = make(chan struct{})
	return nil, false
}

func (m *Model) done(root string) {
	m.mu.Lock()
	m.finish(root)
	m.mu.Unlock()
}

func (m *Model) finish(root string) {
	if wait, ok := m.pending[root]; ok {
		close(wait)
		delete(m.pending, root)
	}
}

// linkBase is the URL that links of a document resolve against. Data URLs take the base of their referrer.
func linkBase(root, referrer string) string {
	if isData(root) {
		return referrer
	}
	return root
}

// load returns the document of url, loading it and its links unless already loaded. Only a cancelled context
// returns an error.
func (m *Model) load(ctx context.Context, v view.View, s *session, url, referrer string) (format.Document, error) {
	root := Root(url)
	for {
		wait, loaded := m.claim(root)
		if loaded {
			if s.use(root) {
				doc, _ := m.cached(root)
				if err := m.loadLinks(ctx, v, s, root, linkBase(root, referrer), doc); err != nil {
					return nil, err
				}
			}
			return m.fragment(v, url)
		} else if wait == nil {
			break
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.use(root)
	doc, scan, err := m.fetch(ctx, v, s, root)
	if err != nil {
		return nil, err
	} else if !scan {
		return m.fragment(v, url)
	}
	if err := m.loadLinks(ctx, v, s, root, linkBase(root, referrer), doc); err != nil {
		return nil, err
	}
	if err := m.formats.Open(m, v, doc); err != nil {
		m.Warn(v, format.Warnf(format.CreateWarning, root, "%v", err))
	}

	ev := events.New(events.Load, doc, v, root)
	if !v.Emit(ev) {
		return doc, nil
	} else if replacement, ok := ev.Result.(format.Document); ok && replacement != nil {
		m.store(root, replacement)
	}
	return m.fragment(v, url)
}

func (m *Model) fragment(v view.View, url string) (format.Document, error) {
	doc, err := m.GetDocument(url)
	if err != nil {
		m.Warn(v, format.Warnf(format.ReferenceWarning, url, "%v", err))
		return nil, nil
	}
	return doc, nil
}

// fetch downloads and creates the document of root while holding its pending claim. scan is false when the links
// of the document are not to be loaded: for vetoed, redirected and failed loads.
func (m *Model) fetch(ctx context.Context, v view.View, s *session, root string) (doc format.Document, scan bool, err error) {
	defer m.done(root)

	ev := events.New(events.Download, root, v, nil)
	if !v.Emit(ev) {
		m.store(root, format.NewNull(nil))
		return nil, false, nil
	} else if target, ok := ev.Result.(string); ok && Root(target) != root {
		if v.Emit(events.New(events.Redirect, root, v, target)) {
			doc, err = m.load(ctx, v, s, target, "")
			if err != nil {
				return nil, false, err
			} else if doc != nil {
				m.store(root, doc)
			}
			return nil, false, nil
		}
	}

	data, mimetype, err := m.download.Download(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		m.Warn(v, format.Warnf(format.DownloadWarning, root, "error downloading document: %v", err))
		data, mimetype = nil, download.NullMIME

		ev := events.New(events.Error, nil, v, root)
		if !v.Emit(ev) {
			m.store(root, format.NewNull(err))
			return nil, false, nil
		}
		switch result := ev.Result.(type) {
		case Substitute:
			data, mimetype = result.Data, result.MIME
		case []byte:
			data, mimetype = result, download.DefaultMIME
		case nil:
		default:
			m.Warn(v, format.Warnf(format.ProgrammerWarning, root, "error event result of type %T, expected bytes", result))
		}
	}

	if doc, err = m.formats.Create(data, mimetype); err != nil {
		m.Warn(v, format.Warnf(format.CreateWarning, root, "error creating document: %v", err))
		m.store(root, format.NewNull(err))
		v.Emit(events.New(events.ParseError, data, v, root))
		return nil, false, nil
	}
	m.store(root, doc)

	ev = events.New(events.BeforeLoad, doc, v, root)
	if !v.Emit(ev) {
		return nil, false, nil
	} else if replacement, ok := ev.Result.(format.Document); ok && replacement != nil {
		doc = replacement
		m.store(root, doc)
	}
	return doc, true, nil
}

// loadLinks loads the links of a document concurrently. Data URLs are loaded first, in place.
func (m *Model) loadLinks(ctx context.Context, v view.View, s *session, root, base string, doc format.Document) error {
	links, err := m.formats.Links(doc)
	if err != nil {
		if !errors.Is(err, format.ErrNotImplemented) {
			m.Warn(v, format.Warnf(format.ParseWarning, root, "%v", err))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	visited := map[string]bool{}
	for _, link := range links {
		url := ResolveURL(link, base)
		if Root(url) == root || visited[url] {
			continue
		}
		visited[url] = true
		s.reference(Root(url), root)

		if isData(url) {
			if _, err := m.load(gctx, v, s, url, base); err != nil {
				_ = g.Wait()
				return err
			}
			continue
		}
		g.Go(func() error {
			_, err := m.load(gctx, v, s, url, base)
			return err
		})
	}
	return g.Wait()
}

// unload releases a document of the view and, recursively, the documents only it referenced.
func (m *Model) unload(v view.View, s *session, url, referrer string, released map[string]bool) {
	root := Root(url)
	doc, ok := m.cached(root)
	if !ok || released[root] {
		return
	}
	if !v.Emit(events.New(events.BeforeUnload, doc, v, root)) {
		return
	}
	released[root] = true

	base := linkBase(root, referrer)
	if links, err := m.formats.Links(doc); err == nil {
		for _, link := range links {
			linked := Root(ResolveURL(link, base))
			if linked != root && s.dereference(linked, root) {
				m.unload(v, s, linked, base, released)
			}
		}
	}
	if err := m.formats.Close(m, v, doc); err != nil {
		m.Warn(v, format.Warnf(format.ProgrammerWarning, root, "%v", err))
	}
	v.Emit(events.New(events.Unload, doc, v, root))
}

// release drops the released documents that no other view uses.
func (m *Model) release(v view.View, released map[string]bool) {
	m.mu.Lock()
	for root := range released {
		used := false
		for other, s := range m.sessions {
			if other != v && s.uses(root) {
				used = true
				break
			}
		}
		if !used {
			delete(m.urls, m.documents[root])
			delete(m.documents, root)
		}
	}
	m.mu.Unlock()
	m.formats.Invalidate()
	m.logger.Debug("released documents", "count", len(released))
}
