package history

import (
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfelt/cardroom/internal/engine"
	"github.com/openfelt/cardroom/poker"
)

func playHand(t *testing.T, seed int64) *engine.Hand {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	seats := []*engine.Seat{
		{Index: 0, PlayerID: "alice", Stack: 500, Status: engine.SeatActive},
		{Index: 1, PlayerID: "bob", Stack: 500, Status: engine.SeatActive},
		{Index: 2, PlayerID: "carol", Stack: 500, Status: engine.SeatActive},
	}
	cfg := engine.Config{
		HandID:     "01HISTORYTEST",
		TableID:    "t1",
		Variant:    poker.VariantHoldem,
		Structure:  engine.NoLimit,
		Button:     0,
		SmallBlind: 5,
		BigBlind:   10,
	}
	h, err := engine.NewHand(cfg, seats, poker.NewDeck(rng), log.New(io.Discard))
	require.NoError(t, err)

	for steps := 0; !h.Done(); steps++ {
		require.Less(t, steps, 1000, "hand did not terminate")
		opts := h.LegalActions()
		require.NotEmpty(t, opts)
		opt := opts[rng.Intn(len(opts))]
		require.NoError(t, h.Submit(h.ToAct(), opt.Action, opt.Min))
	}
	return h
}

func TestReplayRebuildsIdenticalRecord(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 20; seed++ {
		h := playHand(t, seed)

		stream, err := EncodeEvents(h.Events())
		require.NoError(t, err)
		replayed, err := Replay(stream)
		require.NoError(t, err)

		liveJSON, err := json.Marshal(h.Result())
		require.NoError(t, err)
		replayJSON, err := json.Marshal(replayed)
		require.NoError(t, err)
		assert.Equal(t, string(liveJSON), string(replayJSON), "seed %d", seed)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := DecodeEvents([]byte(`{"seq":1,"type":"mystery","data":{}}`))
	assert.ErrorContains(t, err, "unknown event type")
}

func TestFileWriterRoundTrip(t *testing.T) {
	t.Parallel()

	h := playHand(t, 99)
	dir := t.TempDir()
	w := NewFileWriter(dir)
	require.NoError(t, w.WriteHand(h.Result(), h.Events()))

	_, err := os.Stat(filepath.Join(dir, "hand_01HISTORYTEST.jsonl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "hand_01HISTORYTEST.json"))
	require.NoError(t, err)

	events, err := w.ReadHand("01HISTORYTEST")
	require.NoError(t, err)
	require.Len(t, events, len(h.Events()))

	rec, err := engine.BuildCompletedHand(events)
	require.NoError(t, err)
	assert.Equal(t, h.Result().HandID, rec.HandID)
	assert.Equal(t, h.Result().Payouts, rec.Payouts)
}
