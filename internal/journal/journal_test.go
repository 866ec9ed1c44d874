package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/id"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func secs(v float64) *float64 { return &v }

func TestRecord_AssignsIDAndRoundTrips(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	rec := &domain.ModificationRecord{
		SessionID:  "ses-1",
		ProjectID:  "42",
		Kind:       domain.KindMute,
		Summary:    "mute 1.00-2.00",
		Start:      secs(1),
		End:        secs(2),
		Outcome:    domain.OutcomeSucceeded,
		AudioURL:   "https://cdn/x.mp3",
		DurationMS: 120,
	}
	require.NoError(t, j.Record(ctx, rec))
	assert.True(t, id.HasPrefix(rec.ID, id.Journal))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := j.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Summary, got.Summary)
	assert.Equal(t, domain.KindMute, got.Kind)
	assert.Equal(t, domain.OutcomeSucceeded, got.Outcome)
	require.NotNil(t, got.Start)
	assert.Equal(t, 1.0, *got.Start)
	assert.Equal(t, 2.0, *got.End)
	assert.Equal(t, "https://cdn/x.mp3", got.AudioURL)
	assert.Empty(t, got.BatchID)
	assert.Empty(t, got.Error)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestRecord_NullableFields(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	rec := &domain.ModificationRecord{
		SessionID: "ses-1",
		ProjectID: "42",
		Kind:      domain.KindConvert,
		Summary:   "convert to flac",
		Outcome:   domain.OutcomeFailed,
		Error:     "audio service: server (HTTP 502)",
	}
	require.NoError(t, j.Record(ctx, rec))

	got, err := j.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Start)
	assert.Nil(t, got.End)
	assert.Empty(t, got.AudioURL)
	assert.Equal(t, rec.Error, got.Error)
}

func TestList_FiltersAndOrders(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	add := func(session, batch, word string, offset time.Duration) {
		require.NoError(t, j.Record(ctx, &domain.ModificationRecord{
			SessionID: session,
			ProjectID: "p",
			BatchID:   batch,
			Kind:      domain.KindTTS,
			Summary:   "tts",
			Word:      word,
			Outcome:   domain.OutcomeSucceeded,
			CreatedAt: base.Add(offset),
		}))
	}
	add("ses-a", "bat-1", "one", 0)
	add("ses-a", "bat-1", "two", 100*time.Millisecond)
	add("ses-a", "", "three", 120*time.Millisecond)
	add("ses-b", "", "other", time.Second)

	all, err := j.List(ctx, Filter{SessionID: "ses-a"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"three", "two", "one"}, []string{all[0].Word, all[1].Word, all[2].Word})

	batch, err := j.List(ctx, Filter{BatchID: "bat-1"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	limited, err := j.List(ctx, Filter{ProjectID: "p", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "other", limited[0].Word)
}

func TestGet_NotFound(t *testing.T) {
	j := openTest(t)
	_, err := j.Get(context.Background(), "mod-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), &domain.ModificationRecord{
		SessionID: "s", ProjectID: "p", Kind: domain.KindMute, Summary: "m", Outcome: domain.OutcomeCanceled,
	}))
	require.NoError(t, j.Close())

	j, err = Open(path, nil)
	require.NoError(t, err)
	defer j.Close()
	recs, err := j.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.OutcomeCanceled, recs[0].Outcome)
}
