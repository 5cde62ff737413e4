package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestDefaults() {
	b := New("ledger_store")
	s.Equal("ledger_store", b.Name())
	s.Equal(StateClosed, b.State())
	s.False(b.IsOpen())
	s.Equal("closed", b.State().String())
}

func (s *BreakerSuite) TestOpensAfterFailureThreshold() {
	b := New("redis", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		s.False(useFallback)
		s.False(change.Opened)
	}

	useFallback, change := b.RecordFailure()
	s.True(useFallback)
	s.True(change.Opened)
	s.True(b.IsOpen())
	s.Equal("open", b.State().String())

	useFallback, change = b.RecordFailure()
	s.True(useFallback)
	s.False(change.Opened, "already open reports no transition")
}

func (s *BreakerSuite) TestSuccessResetsFailureCountWhileClosed() {
	b := New("redis", WithFailureThreshold(2))

	b.RecordFailure()
	usePrimary, _ := b.RecordSuccess()
	s.True(usePrimary)
	b.RecordFailure()

	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestClosesAfterSuccessThreshold() {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	s.Require().True(b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	s.False(usePrimary)
	s.False(change.Closed)

	usePrimary, change = b.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.False(b.IsOpen())
}

func (s *BreakerSuite) TestFailureWhileRecoveringRestartsCount() {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()

	s.True(b.IsOpen())
}

func (s *BreakerSuite) TestNonPositiveOptionsKeepDefaults() {
	b := New("redis", WithFailureThreshold(0), WithSuccessThreshold(-1), nil)
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	s.False(b.IsOpen())
	b.RecordFailure()
	s.True(b.IsOpen())
}

func (s *BreakerSuite) TestReset() {
	b := New("redis", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	s.Equal(StateClosed, b.State())
}

func (s *BreakerSuite) TestConcurrentFailuresOpenOnce() {
	b := New("redis", WithFailureThreshold(10))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, opened)
}

func (s *BreakerSuite) TestStateListenerSeesTransitions() {
	var seen []State
	b := New("redis",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithStateListener(func(st State) { seen = append(seen, st) }),
	)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()
	b.Reset()

	s.Equal([]State{StateOpen, StateClosed, StateOpen, StateClosed}, seen)
}
