package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/learnsprout/sproutlink/internal/clock"
	ingestdomain "github.com/learnsprout/sproutlink/internal/ingest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ingestStub struct {
	calls  int
	report *ingestdomain.Report
	err    error
	block  bool
}

func (s *ingestStub) SyncOrders(ctx context.Context) (*ingestdomain.Report, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func newTestScheduler(t *testing.T, ingest ingestdomain.Service, cfg Config) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewSystemClock(),
		Ingest: ingest,
		Config: cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop(), Clock: clock.NewSystemClock()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceSyncsOrders(t *testing.T) {
	stub := &ingestStub{report: &ingestdomain.Report{Processed: 3}}
	sched := newTestScheduler(t, stub, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, stub.calls)
}

func TestRunOnceWrapsIngestError(t *testing.T) {
	boom := errors.New("commerce down")
	stub := &ingestStub{err: boom}
	sched := newTestScheduler(t, stub, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sync_orders")
}

func TestRunOnceTreatsDeadlineAsSoftTimeout(t *testing.T) {
	stub := &ingestStub{block: true}
	sched := newTestScheduler(t, stub, Config{RunTimeout: 20 * time.Millisecond})

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, time.Minute, cfg.RunTimeout)

	custom := Config{RunInterval: time.Hour, RunTimeout: 5 * time.Second}.withDefaults()
	assert.Equal(t, time.Hour, custom.RunInterval)
	assert.Equal(t, 5*time.Second, custom.RunTimeout)
}
