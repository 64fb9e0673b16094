package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns_StartAndFinish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r, err := s.StartRun(ctx, "knesset-24")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, r.Status)
	assert.NotEmpty(t, r.ID)

	err = s.FinishRun(ctx, r.ID, RunStatusComplete, map[string]int{"exact": 10, "fallback": 2})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "knesset-24", runs[0].Campaign)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	assert.JSONEq(t, `{"exact":10,"fallback":2}`, runs[0].Stats)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRuns_FinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.FinishRun(context.Background(), "no-such-id", RunStatusFailed, nil)
	assert.Error(t, err)
}

func TestRuns_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"knesset-22", "knesset-23", "knesset-24"} {
		_, err := s.StartRun(ctx, name)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
