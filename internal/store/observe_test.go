package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
	return Snapshot{}
}

func TestSubscribe_PushesAfterMutation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	ch, cancel := s.Subscribe(ctx)
	defer cancel()

	initial := receive(t, ch)
	assert.Empty(t, initial.Home)
	assert.Len(t, initial.Folders, len(defaultFolders))

	d := docNamed("Passport")
	d.IsPinned = true
	_, err := s.CreateDocument(ctx, d, nil)
	require.NoError(t, err)

	snap := receive(t, ch)
	require.Len(t, snap.Home, 1)
	assert.Equal(t, "Passport", snap.Home[0].Name)
	assert.True(t, snap.Home[0].IsPinned)
}

func TestSubscribe_KeepsLatestOnly(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	ch, cancel := s.Subscribe(ctx)
	defer cancel()

	for _, name := range []string{"A", "B", "C"} {
		_, err := s.CreateDocument(ctx, docNamed(name), nil)
		require.NoError(t, err)
	}

	snap := receive(t, ch)
	assert.Len(t, snap.Home, 3)

	select {
	case <-ch:
		t.Fatal("stale snapshots must be dropped")
	default:
	}
}

func TestSubscribe_CancelAndClose(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	ch, cancel := s.Subscribe(ctx)
	receive(t, ch)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	ch2, _ := s.Subscribe(ctx)
	receive(t, ch2)
	require.NoError(t, s.Close())
	_, ok = <-ch2
	assert.False(t, ok)
}
