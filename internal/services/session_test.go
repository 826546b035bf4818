package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastKDF = cryptox.PBKDF2{Iterations: cryptox.MinPBKDF2Iterations}

func testPaths(dir string) Paths {
	return Paths{
		DataDir:        dir,
		Database:       filepath.Join(dir, "vault.db"),
		AttachmentsDir: filepath.Join(dir, "attachments"),
	}
}

func newTestSession(t *testing.T, dir string, sec secrets.Store) *Session {
	t.Helper()
	s := NewSession(testPaths(dir), sec, fastKDF, logging.Nop())
	t.Cleanup(func() { _ = s.Lock(context.Background()) })
	return s
}

func TestSession_PinScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, t.TempDir(), secrets.NewMemoryStore())

	set, err := s.IsPinSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	_, err = s.Unlock(ctx, []byte("1234"))
	require.ErrorIs(t, err, common.ErrPinNotSet)

	require.NoError(t, s.SetInitialPin(ctx, []byte("1234")))
	require.ErrorIs(t, s.SetInitialPin(ctx, []byte("9999")), common.ErrPinAlreadySet)

	set, err = s.IsPinSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	_, err = s.Unlock(ctx, []byte("0000"))
	require.ErrorIs(t, err, common.ErrIncorrectPin)
	assert.Equal(t, Locked, s.State())

	v, err := s.Unlock(ctx, []byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, Unlocked, s.State())

	doc, err := v.CreateDocument(ctx, models.Document{
		Name:   "Passport",
		Fields: []models.DocumentField{{Name: "Number", Value: "X1234567", IsSecret: true}},
	}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, s.ChangePin(ctx, []byte("0000"), []byte("0000")), common.ErrIncorrectPin)
	require.NoError(t, s.ChangePin(ctx, []byte("1234"), []byte("0000")))
	require.NoError(t, s.Lock(ctx))

	_, err = s.Unlock(ctx, []byte("1234"))
	require.ErrorIs(t, err, common.ErrIncorrectPin)

	v, err = s.Unlock(ctx, []byte("0000"))
	require.NoError(t, err)
	got, err := v.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Passport", got.Name)
	assert.Equal(t, "X1234567", got.Fields[0].Value)
}

func TestSession_MirrorsPinMaterial(t *testing.T) {
	ctx := context.Background()
	sec := secrets.NewMemoryStore()
	s := newTestSession(t, t.TempDir(), sec)

	v, err := s.Open(ctx, []byte("1234"), true)
	require.NoError(t, err)

	hash, err := sec.Get(ctx, secrets.PinHash)
	require.NoError(t, err)
	dbKeySalt, err := sec.Get(ctx, secrets.DBKeySalt)
	require.NoError(t, err)

	st, err := v.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, hash, st.PinHash)
	assert.Equal(t, dbKeySalt, st.DBKeySalt)
	assert.NotEmpty(t, st.KeyCheck)

	require.NoError(t, s.ChangePin(ctx, []byte("1234"), []byte("4321")))
	newHash, err := sec.Get(ctx, secrets.PinHash)
	require.NoError(t, err)
	st, err = v.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, newHash, st.PinHash)
	assert.NotEqual(t, hash, newHash)

	newSalt, err := sec.Get(ctx, secrets.DBKeySalt)
	require.NoError(t, err)
	assert.Equal(t, dbKeySalt, newSalt)
}

func TestSession_KeyMissing(t *testing.T) {
	ctx := context.Background()
	sec := secrets.NewMemoryStore()
	s := newTestSession(t, t.TempDir(), sec)

	require.NoError(t, s.SetInitialPin(ctx, []byte("1234")))
	require.NoError(t, sec.Delete(ctx, secrets.RawDBKey))

	_, err := s.Unlock(ctx, []byte("1234"))
	require.ErrorIs(t, err, common.ErrKeyMissing)
	assert.Equal(t, Locked, s.State())
}

func TestSession_UnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, t.TempDir(), secrets.NewMemoryStore())
	require.NoError(t, s.SetInitialPin(ctx, []byte("1234")))

	var wg sync.WaitGroup
	got := make([]*Vault, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.Unlock(ctx, []byte("1234"))
			if err == nil {
				got[i] = v
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, v := range got {
		assert.Same(t, got[0], v)
	}

	_, err := s.Unlock(ctx, []byte("0000"))
	require.ErrorIs(t, err, common.ErrIncorrectPin)
	assert.Equal(t, Unlocked, s.State())
}

func TestSession_LockAndVault(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, t.TempDir(), secrets.NewMemoryStore())

	_, err := s.Vault()
	require.ErrorIs(t, err, common.ErrLocked)

	_, err = s.Open(ctx, []byte("1234"), true)
	require.NoError(t, err)
	v, err := s.Vault()
	require.NoError(t, err)
	require.NotNil(t, v)

	require.NoError(t, s.Lock(ctx))
	require.NoError(t, s.Lock(ctx))
	assert.Equal(t, Locked, s.State())
	_, err = s.Vault()
	require.ErrorIs(t, err, common.ErrLocked)
}

func TestSession_Reset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestSession(t, dir, secrets.NewMemoryStore())

	v, err := s.Open(ctx, []byte("1234"), true)
	require.NoError(t, err)
	_, err = v.ImportAttachment(ctx, bytesSource("scan.pdf", "%PDF"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, Locked, s.State())

	set, err := s.IsPinSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	_, err = os.Stat(testPaths(dir).Database)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(testPaths(dir).AttachmentsDir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Open(ctx, []byte("5678"), true)
	require.NoError(t, err)
}

func TestSession_RecreatesUnreadableDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestSession(t, dir, secrets.NewMemoryStore())
	require.NoError(t, s.SetInitialPin(ctx, []byte("1234")))
	require.NoError(t, os.WriteFile(testPaths(dir).Database, []byte("definitely not sqlite"), 0o600))

	v, err := s.Unlock(ctx, []byte("1234"))
	require.ErrorIs(t, err, common.ErrDatabaseRecreated)
	require.NotNil(t, v)
	assert.Equal(t, Unlocked, s.State())

	tpls, err := v.ListTemplates(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tpls)
}

func TestPinService_UsesRecordedKDF(t *testing.T) {
	ctx := context.Background()
	sec := secrets.NewMemoryStore()

	require.NoError(t, NewPinService(sec, fastKDF, nil).SetInitial(ctx, []byte("1234")))

	desc, err := sec.Get(ctx, secrets.KDFAlgorithm)
	require.NoError(t, err)
	assert.Equal(t, "pbkdf2-sha256:100000", string(desc))

	other := NewPinService(sec, cryptox.PBKDF2{Iterations: 120_000}, nil)
	key, err := other.Verify(ctx, []byte("1234"))
	require.NoError(t, err)
	assert.Len(t, key, cryptox.KeySize)

	require.ErrorIs(t, other.SetInitial(ctx, nil), common.ErrInvalidArgument)
	require.ErrorIs(t, other.Change(ctx, []byte("1234"), nil), common.ErrInvalidArgument)
}

// flakySecrets fails Set for one name once armed.
type flakySecrets struct {
	*secrets.MemoryStore
	failOn string
	armed  bool
}

func (f *flakySecrets) Set(ctx context.Context, name string, value []byte) error {
	if f.armed && name == f.failOn {
		return common.ErrStoreUnavailable
	}
	return f.MemoryStore.Set(ctx, name, value)
}

func TestPinService_ChangeKeepsOldPinOnWriteFailure(t *testing.T) {
	for _, name := range []string{secrets.PinSalt, secrets.KDFAlgorithm, secrets.PinHash} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sec := &flakySecrets{MemoryStore: secrets.NewMemoryStore(), failOn: name}
			pins := NewPinService(sec, fastKDF, nil)
			require.NoError(t, pins.SetInitial(ctx, []byte("1234")))

			before, err := pins.Verify(ctx, []byte("1234"))
			require.NoError(t, err)

			sec.armed = true
			err = pins.Change(ctx, []byte("1234"), []byte("5678"))
			require.ErrorIs(t, err, common.ErrStoreUnavailable)
			sec.armed = false

			after, err := pins.Verify(ctx, []byte("1234"))
			require.NoError(t, err)
			assert.Equal(t, before, after)

			_, err = pins.Verify(ctx, []byte("5678"))
			require.ErrorIs(t, err, common.ErrIncorrectPin)
		})
	}
}
