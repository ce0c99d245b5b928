package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSession is a Session that records every call.
type recordingSession[T any] struct {
	batches   [][]T
	staged    []T
	committed []T
	adds      int
	commits   int

	addErr    error
	commitErr error
}

func (r *recordingSession[T]) AddAll(records []T) error {
	r.adds++
	if r.addErr != nil {
		return r.addErr
	}
	batch := append([]T(nil), records...)
	r.batches = append(r.batches, batch)
	r.staged = append(r.staged, batch...)
	return nil
}

func (r *recordingSession[T]) Commit() error {
	r.commits++
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, r.staged...)
	r.staged = nil
	return nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestInsertBuffer_AutoFlushCommitsCeilNOverB(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		n, size, commits int
	}{
		{n: 0, size: 3, commits: 0},
		{n: 1, size: 3, commits: 1},
		{n: 3, size: 3, commits: 1},
		{n: 7, size: 3, commits: 3},
		{n: 9, size: 3, commits: 3},
		{n: 2500, size: DefaultBufferSize, commits: 3},
	} {
		sess := &recordingSession[int]{}
		err := WithInsertBuffer[int](sess, func(b *InsertBuffer[int]) error {
			for _, v := range seq(tc.n) {
				if err := b.Queue(v); err != nil {
					return err
				}
			}
			return nil
		}, WithBufferSize(tc.size))
		require.NoError(t, err)

		assert.Equal(t, tc.commits, sess.commits, "n=%d size=%d", tc.n, tc.size)
		if tc.n == 0 {
			assert.Empty(t, sess.committed)
		} else {
			assert.Equal(t, seq(tc.n), sess.committed, "all records committed in order")
		}
		for _, batch := range sess.batches[:max(len(sess.batches)-1, 0)] {
			assert.Len(t, batch, tc.size, "every batch but the last is full")
		}
	}
}

func TestInsertBuffer_ManualFlushSingleCommit(t *testing.T) {
	t.Parallel()
	sess := &recordingSession[int]{}
	b := NewInsertBuffer[int](sess, WithAutoFlush(false), WithBufferSize(2))

	for _, v := range seq(10) {
		require.NoError(t, b.Queue(v))
	}
	assert.Zero(t, sess.commits, "auto-flush off must not write")
	assert.Equal(t, 10, b.Len())
	assert.Equal(t, seq(10), b.Pending())

	require.NoError(t, b.Flush())
	assert.Equal(t, 1, sess.adds)
	assert.Equal(t, 1, sess.commits)
	assert.Equal(t, seq(10), sess.committed)
	assert.Zero(t, b.Len())
}

func TestInsertBuffer_FlushEmptyIsNoop(t *testing.T) {
	t.Parallel()
	sess := &recordingSession[string]{}
	b := NewInsertBuffer[string](sess)

	require.NoError(t, b.Flush())
	require.NoError(t, b.Flush())
	assert.Zero(t, sess.adds)
	assert.Zero(t, sess.commits)
}

func TestWithInsertBuffer_ErrorDiscardsPending(t *testing.T) {
	t.Parallel()
	sess := &recordingSession[int]{}
	boom := errors.New("boom")

	err := WithInsertBuffer[int](sess, func(b *InsertBuffer[int]) error {
		for _, v := range seq(5) {
			require.NoError(t, b.Queue(v))
		}
		return boom
	}, WithBufferSize(3))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sess.commits, "only the full batch reached storage")
	assert.Equal(t, []int{0, 1, 2}, sess.committed)
}

func TestWithInsertBuffer_PanicDiscardsPending(t *testing.T) {
	t.Parallel()
	sess := &recordingSession[int]{}

	assert.Panics(t, func() {
		_ = WithInsertBuffer[int](sess, func(b *InsertBuffer[int]) error {
			_ = b.Queue(1)
			panic("import aborted")
		})
	})
	assert.Zero(t, sess.commits)
}

func TestInsertBuffer_SessionErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()
	addErr := errors.New("constraint violation")
	sess := &recordingSession[int]{addErr: addErr}
	b := NewInsertBuffer[int](sess, WithBufferSize(2))

	require.NoError(t, b.Queue(1))
	err := b.Queue(2)
	assert.Same(t, addErr, err)
	assert.Zero(t, sess.commits)
	assert.Equal(t, 2, b.Len(), "failed batch is not cleared")

	commitErr := errors.New("connection lost")
	sess = &recordingSession[int]{commitErr: commitErr}
	b = NewInsertBuffer[int](sess)
	require.NoError(t, b.Queue(1))
	assert.Same(t, commitErr, b.Flush())
}

func TestWithBufferSize_IgnoresNonPositive(t *testing.T) {
	t.Parallel()
	b := NewInsertBuffer[int](&recordingSession[int]{}, WithBufferSize(0))
	assert.Equal(t, DefaultBufferSize, b.size)
	assert.True(t, b.autoFlush)
}
