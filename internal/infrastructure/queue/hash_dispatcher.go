package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const channelBuffer = 256

// ErrStopped is returned for jobs submitted after Stop.
var ErrStopped = errors.New("hash dispatcher stopped")

type opKind string

const (
	opHash   opKind = "hash"
	opVerify opKind = "verify"
)

type hashJob struct {
	ctx        context.Context
	op         opKind
	password   string
	credential string
	result     chan hashResult
}

type hashResult struct {
	credential string
	ok         bool
	err        error
}

// Metrics are the instruments the dispatcher reports to. Nil fields are skipped.
type Metrics struct {
	QueueDepth prometheus.Gauge
	// Duration is labelled by "op" (hash or verify).
	Duration *prometheus.HistogramVec
}

// Option customises a HashDispatcher.
type Option func(*HashDispatcher)

// WithMetrics reports queue depth and per-operation latency to m.
func WithMetrics(m Metrics) Option {
	return func(d *HashDispatcher) { d.metrics = m }
}

// HashDispatcher runs password hashing on a fixed set of worker goroutines so
// that a burst of logins cannot occupy every scheduler thread. It implements
// ports.CredentialHasher by delegating to the wrapped hasher.
type HashDispatcher struct {
	hasher  ports.CredentialHasher
	jobs    chan hashJob
	workers int
	log     zerolog.Logger
	metrics Metrics

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewHashDispatcher creates a HashDispatcher with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewHashDispatcher(numWorkers int, hasher ports.CredentialHasher, log zerolog.Logger, opts ...Option) *HashDispatcher {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	d := &HashDispatcher{
		hasher:  hasher,
		jobs:    make(chan hashJob, channelBuffer),
		workers: numWorkers,
		log:     log,
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or Stop is called.
func (d *HashDispatcher) Start(ctx context.Context) {
	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.runWorker(ctx, i)
	}
	d.log.Debug().Int("workers", d.workers).Msg("hash dispatcher started")
}

// Stop signals the workers to exit and waits for them.
func (d *HashDispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
}

// Hash implements ports.CredentialHasher.
func (d *HashDispatcher) Hash(ctx context.Context, password string) (string, error) {
	r, err := d.submit(ctx, hashJob{op: opHash, password: password})
	if err != nil {
		return "", err
	}
	return r.credential, r.err
}

// Verify implements ports.CredentialHasher.
func (d *HashDispatcher) Verify(ctx context.Context, password, credential string) (bool, error) {
	r, err := d.submit(ctx, hashJob{op: opVerify, password: password, credential: credential})
	if err != nil {
		return false, err
	}
	return r.ok, r.err
}

func (d *HashDispatcher) submit(ctx context.Context, job hashJob) (hashResult, error) {
	job.ctx = ctx
	job.result = make(chan hashResult, 1)

	select {
	case <-d.quit:
		return hashResult{}, ErrStopped
	default:
	}

	select {
	case d.jobs <- job:
		d.observeDepth()
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	case <-d.quit:
		return hashResult{}, ErrStopped
	}

	select {
	case r := <-job.result:
		return r, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	case <-d.quit:
		return hashResult{}, ErrStopped
	}
}

func (d *HashDispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.quit:
			return
		case job := <-d.jobs:
			d.observeDepth()
			job.result <- d.process(job, id)
		}
	}
}

func (d *HashDispatcher) process(job hashJob, id int) hashResult {
	if err := job.ctx.Err(); err != nil {
		return hashResult{err: err}
	}

	start := time.Now()
	var r hashResult
	switch job.op {
	case opHash:
		r.credential, r.err = d.hasher.Hash(job.ctx, job.password)
	case opVerify:
		r.ok, r.err = d.hasher.Verify(job.ctx, job.password, job.credential)
	}
	if d.metrics.Duration != nil {
		d.metrics.Duration.WithLabelValues(string(job.op)).Observe(time.Since(start).Seconds())
	}

	if r.err != nil && job.ctx.Err() == nil {
		d.log.Debug().Err(r.err).
			Str("op", string(job.op)).
			Int("worker_id", id).
			Msg("credential operation failed")
	}
	return r
}

func (d *HashDispatcher) observeDepth() {
	if d.metrics.QueueDepth != nil {
		d.metrics.QueueDepth.Set(float64(len(d.jobs)))
	}
}
