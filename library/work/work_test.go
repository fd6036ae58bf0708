package work

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLogger(log.NewStdLogger(os.Stdout))
}

func TestLoop(t *testing.T) {
	l := NewAntsLoop(2)
	require.NoError(t, l.Start())
	defer l.Stop()

	t.Run("start more times", func(t *testing.T) {
		require.NoError(t, l.Start())
	})

	t.Run("Post simple task", func(t *testing.T) {
		done := make(chan struct{})
		l.Post(func() { close(done) })
		waitForChannel(t, done, time.Second, "task not finished")
	})

	t.Run("panic inside job is recovered", func(t *testing.T) {
		done := make(chan struct{})
		l.Post(func() {
			defer close(done)
			panic("oops")
		})
		waitForChannel(t, done, time.Second, "panic job did not finish")
		require.Eventually(t, func() bool { return l.Stats().Panics == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("canceled context drops job", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool
		l.PostCtx(ctx, func() { ran.Store(true) })
		time.Sleep(50 * time.Millisecond)
		require.False(t, ran.Load())
	})

	t.Run("overflow when stopped", func(t *testing.T) {
		l.Stop()
		require.Zero(t, l.Stats().Cap)
		done := make(chan struct{})
		l.Post(func() { close(done) })
		waitForChannel(t, done, time.Second, "overflow job did not run")
		require.EqualValues(t, 1, l.Stats().Overflow)
		require.NoError(t, l.Start())
	})

	t.Run("overflow when full", func(t *testing.T) {
		block := make(chan struct{})
		for range 2 {
			l.Post(func() { <-block })
		}
		require.Eventually(t, func() bool { return l.Stats().Running == 2 }, time.Second, 5*time.Millisecond)
		done := make(chan struct{})
		l.Post(func() { close(done) })
		waitForChannel(t, done, time.Second, "job blocked on a full pool")
		require.EqualValues(t, 2, l.Stats().Overflow)
		close(block)
	})
}

func TestWheelScheduler(t *testing.T) {
	s := NewWheelScheduler(WithTick(10 * time.Millisecond))
	defer s.Stop()

	t.Run("Once executes", func(t *testing.T) {
		done := make(chan struct{})
		s.Once(20*time.Millisecond, func() { close(done) })
		waitForChannel(t, done, 500*time.Millisecond, "Once task did not execute")
	})

	t.Run("Forever repeats until canceled", func(t *testing.T) {
		var count atomic.Int32
		done := make(chan struct{})
		id := s.Forever(20*time.Millisecond, func() {
			if count.Add(1) == 3 {
				close(done)
			}
		})
		waitForChannel(t, done, time.Second, "Forever task timed out")
		s.Cancel(id)

		time.Sleep(50 * time.Millisecond)
		prev := count.Load()
		time.Sleep(100 * time.Millisecond)
		require.Equal(t, prev, count.Load(), "task continued after cancellation")
	})

	t.Run("Cancel before fire", func(t *testing.T) {
		var executed atomic.Bool
		id := s.Once(50*time.Millisecond, func() { executed.Store(true) })
		s.Cancel(id)
		time.Sleep(120 * time.Millisecond)
		require.False(t, executed.Load())
	})

	t.Run("Cancel from inside callback does not block", func(t *testing.T) {
		done := make(chan struct{})
		var id int64
		var ready = make(chan struct{})
		id = s.Once(20*time.Millisecond, func() {
			<-ready
			s.Cancel(id)
			close(done)
		})
		close(ready)
		waitForChannel(t, done, 500*time.Millisecond, "self cancel blocked")
	})

	t.Run("Len counts pending tasks", func(t *testing.T) {
		a := s.Once(time.Minute, func() {})
		b := s.Forever(time.Minute, func() {})
		require.Equal(t, 2, s.Len())
		s.Cancel(a)
		s.Cancel(a)
		require.Equal(t, 1, s.Len())
		s.Cancel(b)
		require.Zero(t, s.Len())
	})

	t.Run("Once removed after run", func(t *testing.T) {
		done := make(chan struct{})
		s.Once(10*time.Millisecond, func() { close(done) })
		waitForChannel(t, done, 500*time.Millisecond, "Once task did not execute")
		require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("CancelAll", func(t *testing.T) {
		var executed atomic.Int32
		for i := 0; i < 5; i++ {
			s.Once(40*time.Millisecond, func() { executed.Add(1) })
		}
		s.CancelAll()
		time.Sleep(100 * time.Millisecond)
		require.Zero(t, executed.Load())
	})
}

func TestWheelScheduler_Stop(t *testing.T) {
	s := NewWheelScheduler(WithTick(10 * time.Millisecond))
	s.Once(50*time.Millisecond, func() { t.Error("executed after stop") })
	s.Stop()

	require.Equal(t, int64(-1), s.Once(10*time.Millisecond, func() {}))
	time.Sleep(100 * time.Millisecond)
}

func TestWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(ctx, 4, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	done := make(chan struct{})
	w.Once(20*time.Millisecond, func() { close(done) })
	waitForChannel(t, done, 500*time.Millisecond, "work timer did not run on pool")
	require.Equal(t, 4, w.Stats().Cap)
}

func waitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, failMsg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal(failMsg)
	}
}
