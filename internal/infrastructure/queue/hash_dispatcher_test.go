package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type stubHasher struct {
	calls   atomic.Int32
	block   chan struct{}
	hashErr error
}

func (h *stubHasher) Hash(_ context.Context, password string) (string, error) {
	h.calls.Add(1)
	if h.block != nil {
		<-h.block
	}
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *stubHasher) Verify(_ context.Context, password, credential string) (bool, error) {
	h.calls.Add(1)
	return credential == "hashed:"+password, nil
}

func TestHashDispatcher_HashAndVerify(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &stubHasher{}
	d := NewHashDispatcher(2, h, zerolog.Nop())
	d.Start(context.Background())
	defer d.Stop()

	cred, err := d.Hash(context.Background(), "password1")
	require.NoError(t, err)
	assert.Equal(t, "hashed:password1", cred)

	ok, err := d.Verify(context.Background(), "password1", cred)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Verify(context.Background(), "password2", cred)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashDispatcher_PropagatesHasherError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	d := NewHashDispatcher(1, &stubHasher{hashErr: boom}, zerolog.Nop())
	d.Start(context.Background())
	defer d.Stop()

	_, err := d.Hash(context.Background(), "password1")
	assert.ErrorIs(t, err, boom)
}

func TestHashDispatcher_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &stubHasher{}
	d := NewHashDispatcher(4, h, zerolog.Nop())
	d.Start(context.Background())
	defer d.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Hash(context.Background(), "pw")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, h.calls.Load())
}

func TestHashDispatcher_CallerContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &stubHasher{block: make(chan struct{})}
	d := NewHashDispatcher(1, h, zerolog.Nop())
	d.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Hash(ctx, "password1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(h.block)
	d.Stop()
}

func TestHashDispatcher_SubmitAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewHashDispatcher(1, &stubHasher{}, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	_, err := d.Hash(context.Background(), "password1")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestHashDispatcher_WorkersExitOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewHashDispatcher(3, &stubHasher{}, zerolog.Nop())
	d.Start(ctx)
	cancel()
	d.Stop()
}

func TestHashDispatcher_ReportsInjectedMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)

	depth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_hash_queue_depth"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_hash_duration_seconds"}, []string{"op"})

	d := NewHashDispatcher(1, &stubHasher{}, zerolog.Nop(), WithMetrics(Metrics{QueueDepth: depth, Duration: durations}))
	d.Start(context.Background())
	defer d.Stop()

	cred, err := d.Hash(context.Background(), "password1")
	require.NoError(t, err)
	_, err = d.Verify(context.Background(), "password1", cred)
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(durations), "one series per operation")
	assert.Zero(t, testutil.ToFloat64(depth))
}

func TestHashDispatcher_WithoutMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewHashDispatcher(1, &stubHasher{}, zerolog.Nop())
	d.Start(context.Background())
	defer d.Stop()

	_, err := d.Hash(context.Background(), "password1")
	require.NoError(t, err)
}
