package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/couchcryptid/dawn-chart-composer/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	events []domain.RawEvent
	index  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	start := int(m.index.Load())
	if start >= len(m.events) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	end := min(start+batchSize, len(m.events))
	m.index.Store(int64(end))
	return m.events[start:end], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	loaded   []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func rawRequest(id string) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(id),
		Value: []byte(`{"request_id":"` + id + `","tool":"gdd","year":2021}`),
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := rawRequest("req-1")

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_Batches(t *testing.T) {
	events := []domain.RawEvent{rawRequest("a"), rawRequest("b"), rawRequest("c")}

	ext := &mockExtractor{events: events}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.snapshot(), 3)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no events, will block
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_ComposeErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int64
	raw := rawRequest("req-2")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad request")}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.snapshot())
	assert.False(t, p.Ready())
	assert.Equal(t, int64(1), commits.Load())
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := atomic.Bool{}

	raw := rawRequest("req-5")
	raw.Topic = "chart-compose-requests"
	raw.Commit = func(_ context.Context) error {
		commitCalled.Store(true)
		return nil
	}

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, commitCalled.Load())
}

func TestPipeline_Run_LoadFailureBacksOff(t *testing.T) {
	var committed atomic.Int64
	first := rawRequest("first")
	first.Commit = func(_ context.Context) error {
		committed.Add(1)
		return nil
	}
	second := rawRequest("second")

	ext := &mockExtractor{events: []domain.RawEvent{first, second}}
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 1)

	fakeClock := clockwork.NewFakeClock()
	p.SetClock(fakeClock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	// The failed load parks the pipeline on a backoff timer.
	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))
	assert.Empty(t, ldr.snapshot())
	fakeClock.Advance(200 * time.Millisecond)

	require.Eventually(t, func() bool { return len(ldr.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []byte("second"), ldr.snapshot()[0].Key)
	assert.Equal(t, int64(0), committed.Load(), "failed batch must not be committed")
}
