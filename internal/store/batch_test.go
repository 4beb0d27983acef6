package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_FlushesAtLimit(t *testing.T) {
	var chunks [][]int
	b := NewBatch(3, func(_ context.Context, rows []int) error {
		chunk := make([]int, len(rows))
		copy(chunk, rows)
		chunks = append(chunks, chunk)
		return nil
	})

	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, b.Add(ctx, i))
	}
	require.NoError(t, b.Flush(ctx))

	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2, 3}, chunks[0])
	assert.Equal(t, []int{4, 5, 6}, chunks[1])
	assert.Equal(t, []int{7}, chunks[2])
}

func TestBatch_FlushEmptyIsNoop(t *testing.T) {
	calls := 0
	b := NewBatch(2, func(_ context.Context, _ []string) error {
		calls++
		return nil
	})
	require.NoError(t, b.Flush(context.Background()))
	assert.Zero(t, calls)
}

func TestBatch_AddPropagatesFlushError(t *testing.T) {
	boom := errors.New("backend down")
	b := NewBatch(1, func(_ context.Context, _ []int) error { return boom })
	assert.ErrorIs(t, b.Add(context.Background(), 1), boom)
}

func TestBatch_NonPositiveLimitUsesDefault(t *testing.T) {
	b := NewBatch[int](0, func(_ context.Context, _ []int) error { return nil })
	assert.Equal(t, DefaultBatchSize, b.limit)
}
