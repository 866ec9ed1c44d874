package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

func withSelection(t *testing.T, start, end float64) *Controller {
	t.Helper()
	c := New()
	c.SetDuration(60)
	require.True(t, c.Commit(start, end))
	return c
}

func TestCommit_OrdersEndpoints(t *testing.T) {
	c := New()
	c.SetDuration(30)

	require.True(t, c.Commit(12.0, 4.0))
	sel, ok := c.Selection()
	require.True(t, ok)
	assert.Equal(t, domain.Selection{Start: 4, End: 12}, sel)

	st := c.Snapshot()
	assert.Equal(t, "00:04:000", st.StartText)
	assert.Equal(t, "00:12:000", st.EndText)
}

func TestCommit_RefusedWhileSelectionExists(t *testing.T) {
	c := withSelection(t, 2, 5)

	assert.False(t, c.Commit(10, 20))
	sel, _ := c.Selection()
	assert.Equal(t, domain.Selection{Start: 2, End: 5}, sel)
}

func TestCommit_ClampsToDuration(t *testing.T) {
	c := New()
	c.SetDuration(10)

	require.True(t, c.Commit(-3, 99))
	sel, _ := c.Selection()
	assert.Equal(t, domain.Selection{Start: 0, End: 10}, sel)
}

func TestCommit_RejectsEmptyRange(t *testing.T) {
	c := New()
	assert.False(t, c.Commit(3, 3))
	assert.False(t, c.Has())
}

func TestSetEndText_RejectsEndBeforeStart(t *testing.T) {
	c := withSelection(t, 3, 8)

	changed := c.SetEndText("2")

	assert.False(t, changed)
	sel, _ := c.Selection()
	assert.InDelta(t, 8.0, sel.End, 1e-9)
	assert.Equal(t, "2", c.Snapshot().EndText, "the field keeps what the user typed")
}

func TestSetStartText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		changed bool
		want    float64
	}{
		{"plain seconds", "4.5", true, 4.5},
		{"field format", "00:05:250", true, 5.25},
		{"past end", "9", false, 3},
		{"equal to end", "8", false, 3},
		{"garbage", "abc", false, 3},
		{"beyond duration", "99:00:000", false, 3},
		{"minutes overflowing int64", "153722867280912931:00:000", false, 3},
		{"negative", "-1", false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := withSelection(t, 3, 8)
			assert.Equal(t, tt.changed, c.SetStartText(tt.text))
			sel, _ := c.Selection()
			assert.InDelta(t, tt.want, sel.Start, 1e-9)
			assert.Equal(t, tt.text, c.Snapshot().StartText)
		})
	}
}

func TestSetText_NeverCreatesSelection(t *testing.T) {
	c := New()
	c.SetDuration(60)

	assert.False(t, c.SetStartText("1"))
	assert.False(t, c.SetEndText("5"))
	assert.False(t, c.Has())
	assert.Equal(t, "1", c.Snapshot().StartText)
}

func TestClear_ResetsSelectionAndFields(t *testing.T) {
	c := withSelection(t, 3, 8)
	c.SetEndText("bogus")

	c.Clear()

	st := c.Snapshot()
	assert.Nil(t, st.Selection)
	assert.Empty(t, st.StartText)
	assert.Empty(t, st.EndText)
	assert.True(t, c.Commit(1, 2), "a new drag is allowed after clearing")
}

func TestSetDuration_TrimsAndDrops(t *testing.T) {
	c := withSelection(t, 10, 50)

	c.SetDuration(40)
	sel, ok := c.Selection()
	require.True(t, ok)
	assert.Equal(t, domain.Selection{Start: 10, End: 40}, sel)

	c.SetDuration(5)
	assert.False(t, c.Has())

	c.SetDuration(0)
	assert.False(t, c.Has())
}
