package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voterlab/poker-session-service/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.json")
	store, err := NewStore(NewFileStore(path), discardLogger(), WithSynchronousWrites())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store, path
}

func occupiedSession(id string) *model.Session {
	return &model.Session{
		ID:                id,
		Name:              "Sprint 12",
		Facilitator:       "Alice",
		FacilitatorConnID: "conn-alice",
		Cards:             model.Preset(model.DefaultPreset),
		Votes:             map[string]*model.Vote{},
		Participants: []*model.Participant{
			{ConnID: "conn-alice", Name: "Alice", IsFacilitator: true},
		},
		Spectators: []*model.Spectator{},
	}
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope", "games.json"))
	sessions, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCreateAndLookup(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(occupiedSession("g1")))
	sess, err := store.Lookup("g1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint 12", sess.Name)
	assert.Equal(t, 1, store.Count())
}

func TestCreateRejectsCollision(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(occupiedSession("g1")))
	assert.ErrorIs(t, store.Create(occupiedSession("g1")), ErrIDCollision)
}

func TestLookupUnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Lookup("missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestLookupReapedSessionReportsExpired(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(occupiedSession("g1")))
	store.Delete("g1")

	_, err := store.Lookup("g1")
	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.Zero(t, store.Count())
}

func TestPersistWritesOnlyOccupiedSessions(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Create(occupiedSession("g1")))
	empty := occupiedSession("g2")
	empty.Participants = nil
	require.NoError(t, store.Create(empty))

	store.Persist()

	fs := NewFileStore(path)
	persisted, err := fs.Load()
	require.NoError(t, err)
	assert.Contains(t, persisted, "g1")
	assert.NotContains(t, persisted, "g2")
}

func TestLoadResetsVolatileState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	seed := NewFileStore(path)

	sess := occupiedSession("g1")
	sess.Votes["conn-alice"] = &model.Vote{Value: "5", Name: "Alice"}
	sess.Revealed = true
	end := int64(99)
	sess.VoteTimerEnd = &end
	data, err := NewStore(seed, discardLogger(), WithSynchronousWrites())
	require.NoError(t, err)
	require.NoError(t, data.Create(sess))
	data.Persist()
	data.Close()

	store, err := NewStore(NewFileStore(path), discardLogger(), WithSynchronousWrites())
	require.NoError(t, err)
	defer store.Close()

	loaded, ok := store.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "Sprint 12", loaded.Name)
	assert.Empty(t, loaded.Participants)
	assert.Empty(t, loaded.Votes)
	assert.Empty(t, loaded.FacilitatorConnID)
	assert.False(t, loaded.Revealed)
	assert.Nil(t, loaded.VoteTimerEnd)
	assert.Equal(t, model.Preset(model.DefaultPreset), loaded.Cards)
}

func TestCorruptDataFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewStore(NewFileStore(path), discardLogger(), WithSynchronousWrites())
	require.NoError(t, err)
	defer store.Close()
	assert.Zero(t, store.Count())
}
