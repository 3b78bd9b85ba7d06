package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

// session is the state of one view: its document, the references between the documents it loaded, the warnings
// it has been shown and its pointer.
type session struct {
	tracker view.Tracker

	mu         sync.Mutex
	location   string
	doc        format.Document
	cancel     context.CancelFunc
	used       map[string]bool
	referenced map[string]map[string]bool // URL to the URLs referring to it
	warned     map[warningKey]bool
}

type warningKey struct {
	kind    format.WarningKind
	message string
	target  string
}

func newSession() *session {
	return &session{
		cancel:     func() {},
		used:       map[string]bool{},
		referenced: map[string]map[string]bool{},
		warned:     map[warningKey]bool{},
	}
}

func (s *session) current() (string, format.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, s.doc
}

func (s *session) setDocument(doc format.Document) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// use marks a URL as used by the view and returns true if it was not yet.
func (s *session) use(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used[root] {
		return false
	}
	s.used[root] = true
	return true
}

func (s *session) uses(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used[root]
}

func (s *session) reference(root, referrer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.referenced[root] == nil {
		s.referenced[root] = map[string]bool{}
	}
	s.referenced[root][referrer] = true
}

// dereference removes a reference and returns true if it was the last one.
func (s *session) dereference(root, referrer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	referrers := s.referenced[root]
	if !referrers[referrer] {
		return false
	}
	delete(referrers, referrer)
	return len(referrers) == 0
}

// warn returns true the first time a warning is seen.
func (s *session) warn(w format.Warning) bool {
	key := warningKey{w.Kind, w.Message, targetKey(w.Target)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warned[key] {
		return false
	}
	s.warned[key] = true
	return true
}

// targetKey identifies the target of a warning. Elements are identified by key, since overlays are rebuilt on
// every traversal.
func targetKey(target any) string {
	switch t := target.(type) {
	case nil:
		return ""
	case string:
		return t
	case interface{ Key() string }:
		return "key:" + t.Key()
	}
	return fmt.Sprintf("%T@%p", target, target)
}

func (m *Model) begin(v view.View, url string, cancel context.CancelFunc) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[v]
	if !ok {
		s = newSession()
		m.sessions[v] = s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location != "" {
		return nil, ErrAlreadyOpen
	}
	s.location = url
	s.cancel = cancel
	return s, nil
}

func (m *Model) end(v view.View) {
	m.mu.Lock()
	s, ok := m.sessions[v]
	delete(m.sessions, v)
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		cancel()
	}
}

func (m *Model) lookup(v view.View) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[v]
	if !ok {
		return nil, false
	}
	url, _ := s.current()
	return s, url != ""
}

// session returns the session of a view, creating one for views that draw documents without opening them.
func (m *Model) session(v view.View) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[v]
	if !ok {
		s = newSession()
		m.sessions[v] = s
	}
	return s
}
