package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	store := New(time.Minute)

	key := store.Create()
	require.NotEmpty(t, key)
	assert.Equal(t, 1, store.Len())

	sess, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, key, sess.Key)
	assert.Equal(t, model.StateAwaitingMaterial, sess.State)
	assert.Empty(t, sess.Turns)
}

func TestGetUnknownKey(t *testing.T) {
	store := New(time.Minute)

	_, err := store.Get("no-such-session")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.Acquire("no-such-session")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAppendTurnAndMerge(t *testing.T) {
	store := New(time.Minute)
	key := store.Create()

	h, err := store.Acquire(key)
	require.NoError(t, err)

	idx := h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "here is the cheque"})
	assert.Equal(t, 0, idx)
	idx = h.AppendTurn(model.Turn{Actor: model.ActorSystem, Text: "reading it now"})
	assert.Equal(t, 1, idx)

	merged := h.MergeCandidate(model.Candidate{
		ChequeNumber: model.StringField{Value: "4512", Confidence: 0.9, Turn: 0, Set: true},
	})
	assert.Equal(t, "4512", merged.ChequeNumber.Value)
	h.Release()

	sess, err := store.Get(key)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, "here is the cheque", sess.Turns[0].Text)
	assert.Equal(t, "4512", sess.Candidate.ChequeNumber.Value)
}

func TestSnapshotIsolation(t *testing.T) {
	store := New(time.Minute)
	key := store.Create()

	h, err := store.Acquire(key)
	require.NoError(t, err)
	h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "original"})
	snap := h.Snapshot()
	h.Release()

	snap.Turns[0].Text = "tampered"
	snap.State = model.StateCommitted

	sess, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "original", sess.Turns[0].Text)
	assert.Equal(t, model.StateAwaitingMaterial, sess.State)
}

func TestCloseRemovesSession(t *testing.T) {
	store := New(time.Minute)
	key := store.Create()

	h, err := store.Acquire(key)
	require.NoError(t, err)
	h.Close()
	h.Release()

	assert.Equal(t, 0, store.Len())
	_, err = store.Get(key)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := New(10 * time.Millisecond)
	stale := store.Create()
	fresh := store.Create()

	time.Sleep(20 * time.Millisecond)

	// Touch one session so only the other is past the idle cutoff.
	h, err := store.Acquire(fresh)
	require.NoError(t, err)
	h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "still here"})
	h.Release()

	store.sweep()

	_, err = store.Get(stale)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.Get(fresh)
	assert.NoError(t, err)
}

func TestSweepWaitsForInFlightTurn(t *testing.T) {
	store := New(10 * time.Millisecond)
	key := store.Create()

	time.Sleep(20 * time.Millisecond)

	h, err := store.Acquire(key)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		store.sweep()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("sweep finished while a turn held the session")
	case <-time.After(20 * time.Millisecond):
	}

	// Finishing the turn refreshes activity, so the sweep must keep it.
	h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "not idle after all"})
	h.Release()
	<-done

	_, err = store.Get(key)
	assert.NoError(t, err)
}

func TestConcurrentTurnsSerialize(t *testing.T) {
	store := New(time.Minute)
	key := store.Create()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := store.Acquire(key)
			if err != nil {
				return
			}
			h.AppendTurn(model.Turn{Actor: model.ActorCaller, Text: "turn"})
			h.Release()
		}()
	}
	wg.Wait()

	sess, err := store.Get(key)
	require.NoError(t, err)
	assert.Len(t, sess.Turns, workers)
}
