package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"economy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSettlementService struct {
	mock.Mock
}

func (m *mockSettlementService) RunSettlementSweep(ctx context.Context) (*models.SettlementReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementReport), args.Error(1)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, ErrLockHeld
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, nil
}

func TestSettlementWorker_RunOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sweeps under the lock and releases it", func(t *testing.T) {
		t.Parallel()
		sweeper := new(mockSettlementService)
		locker := &fakeLocker{}
		expected := &models.SettlementReport{Outcomes: []models.SettlementOutcome{{AuctionID: 1}}}
		sweeper.On("RunSettlementSweep", ctx).Return(expected, nil).Once()

		report, err := NewSettlementWorker(sweeper, locker, time.Minute, time.Minute).RunOnce(ctx)
		require.NoError(t, err)
		assert.Same(t, expected, report)
		assert.Equal(t, 1, locker.released)
		assert.False(t, locker.held)
		sweeper.AssertExpectations(t)
	})

	t.Run("skips while another process holds the lock", func(t *testing.T) {
		t.Parallel()
		sweeper := new(mockSettlementService)
		locker := &fakeLocker{held: true}

		report, err := NewSettlementWorker(sweeper, locker, time.Minute, time.Minute).RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
		sweeper.AssertNotCalled(t, "RunSettlementSweep", mock.Anything)
	})

	t.Run("lock backend failure", func(t *testing.T) {
		t.Parallel()
		sweeper := new(mockSettlementService)
		locker := &fakeLocker{err: errors.New("redis unavailable")}

		_, err := NewSettlementWorker(sweeper, locker, time.Minute, time.Minute).RunOnce(ctx)
		assert.Error(t, err)
		sweeper.AssertNotCalled(t, "RunSettlementSweep", mock.Anything)
	})

	t.Run("sweep failure still releases the lock", func(t *testing.T) {
		t.Parallel()
		sweeper := new(mockSettlementService)
		locker := &fakeLocker{}
		sweeper.On("RunSettlementSweep", ctx).Return(nil, errors.New("batch aborted")).Once()

		_, err := NewSettlementWorker(sweeper, locker, time.Minute, time.Minute).RunOnce(ctx)
		assert.ErrorContains(t, err, "batch aborted")
		assert.Equal(t, 1, locker.released)
	})
}

func TestSettlementWorker_Start(t *testing.T) {
	t.Parallel()

	sweeper := new(mockSettlementService)
	var runs atomic.Int32
	sweeper.On("RunSettlementSweep", mock.Anything).
		Run(func(mock.Arguments) { runs.Add(1) }).
		Return(&models.SettlementReport{}, nil)

	worker := NewSettlementWorker(sweeper, LocalLocker{}, 10*time.Millisecond, time.Minute)
	stop := worker.Start(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()

	stopped := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no sweeps after stop returns")
}

func TestSettlementWorker_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	sweeper := new(mockSettlementService)
	var runs atomic.Int32
	sweeper.On("RunSettlementSweep", mock.Anything).
		Run(func(mock.Arguments) { runs.Add(1) }).
		Return(&models.SettlementReport{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stop := NewSettlementWorker(sweeper, LocalLocker{}, time.Hour, time.Minute).Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
