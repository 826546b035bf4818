package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
)

// RecentLimit caps the unpinned part of the home list.
const RecentLimit = 20

// Snapshot is the observable state recomputed after every mutation: the
// home list (pinned documents by pinned order, then recently used ones) and
// the folder tree.
type Snapshot struct {
	Home    []models.Document
	Folders []models.FolderNode
}

type hub struct {
	mu     sync.Mutex
	subs   map[int]chan Snapshot
	next   int
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Snapshot)}
}

func (h *hub) add() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *hub) active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) > 0
}

// send delivers snap to every subscriber, replacing an unread older value.
func (h *hub) send(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribe returns a channel receiving a Snapshot after each mutation,
// primed with the current one. Only the latest unread snapshot is kept.
// The cancel func unsubscribes and closes the channel.
func (s *Store) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch, cancel := s.hub.add()
	s.publish(ctx)
	return ch, cancel
}

// Snapshot computes the current home list and folder tree.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	dr := documents.NewSQLiteRepository(s.db)

	pinned, err := dr.ListPinned(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	recent, err := dr.ListRecent(ctx, RecentLimit)
	if err != nil {
		return Snapshot{}, err
	}
	tree, err := s.FolderTree(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Home:    s.openDocuments(ctx, append(pinned, recent...)),
		Folders: tree,
	}, nil
}

func (s *Store) publish(ctx context.Context) {
	if !s.hub.active() {
		return
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to compute snapshot", "error", err)
		return
	}
	s.hub.send(snap)
}
