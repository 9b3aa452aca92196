package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *RequestHandler {
	t.Helper()
	h, err := NewRequestHandler(Config{BufferSize: 10})
	require.NoError(t, err)
	t.Cleanup(h.StopProcessing)
	return h
}

func TestHandleRequestBeforeStart(t *testing.T) {
	h := newHandler(t)

	err := h.HandleRequest(func() error { return nil })
	assert.ErrorIs(t, err, ErrNotProcessing)

	// мьютекс должен быть отпущен и после ошибки
	h.Start(0)
	assert.NoError(t, h.HandleRequest(func() error { return nil }))
}

func TestHandleSyncRequestReturnsResult(t *testing.T) {
	h := newHandler(t)
	h.Start(0)

	want := errors.New("quota exceeded")
	err := h.HandleSyncRequest(context.Background(), func() error { return want })
	assert.ErrorIs(t, err, want)

	calls := 0
	err = h.HandleSyncRequest(context.Background(), func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRequestsRunSequentially(t *testing.T) {
	h := newHandler(t)
	h.Start(time.Millisecond)

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.HandleSyncRequest(context.Background(), func() error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestHandleSyncRequestCancelledContext(t *testing.T) {
	h := newHandler(t)
	h.Start(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := h.HandleSyncRequest(ctx, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestStopProcessing(t *testing.T) {
	h := newHandler(t)
	h.Start(0)
	h.StopProcessing()

	err := h.HandleSyncRequest(context.Background(), func() error { return nil })
	assert.Error(t, err)

	// повторный запуск после остановки не возобновляет очередь
	h.Start(0)
	assert.ErrorIs(t, h.HandleRequest(func() error { return nil }), ErrNotProcessing)
}

func TestIncrementPause(t *testing.T) {
	inc := IncrementPause(2, 10*time.Millisecond, 50*time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, inc(time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, inc(20*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, inc(40*time.Millisecond))
}
