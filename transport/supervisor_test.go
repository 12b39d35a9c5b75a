package transport

import (
	stderrors "errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/negotiator/config"
	"github.com/stretchr/testify/require"
)

type transportMock struct {
	stopped     *atomic.Bool
	closed      *atomic.Bool
	bound       bool
	once        bool
	loop        time.Duration
	returnError error
}

func newMock(loop time.Duration, returnError error, once bool) *transportMock {
	return &transportMock{
		stopped:     new(atomic.Bool),
		closed:      new(atomic.Bool),
		once:        once,
		loop:        loop,
		returnError: returnError,
	}
}

func (t *transportMock) Bind(string) error {
	t.bound = true
	return nil
}

func (t *transportMock) Listen(config.NET, func(conn net.Conn)) error {
	if t.once {
		time.Sleep(t.loop)
		return t.returnError
	}

	for !t.stopped.Load() {
		time.Sleep(t.loop)
	}

	return t.returnError
}

func (t *transportMock) Addr() net.Addr {
	return nil
}

func (t *transportMock) Stop() {
	t.stopped.Store(true)
}

func (t *transportMock) Close() {
	t.closed.Store(true)
}

func (t *transportMock) Wait() {}

func runParallel(fn func() error) chan error {
	c := make(chan error, 1)

	go func() {
		c <- fn()
	}()

	return c
}

func runAtMost(sup *Supervisor, timeout time.Duration) error {
	select {
	case err := <-runParallel(func() error {
		return sup.Run(config.Default().NET)
	}):
		return err
	case <-time.After(timeout):
		return fmt.Errorf("supervisor timeouted")
	}
}

func TestSupervisor(t *testing.T) {
	newSupervisor := func(ts ...*transportMock) *Supervisor {
		sup := NewSupervisor()
		for _, transport := range ts {
			require.NoError(t, sup.Add("", transport, nil))
			require.True(t, transport.bound)
		}

		return &sup
	}

	t.Run("die without error", func(t *testing.T) {
		first, second := newMock(10*time.Millisecond, nil, false), newMock(50*time.Millisecond, nil, true)
		sup := newSupervisor(first, second)
		require.NoError(t, runAtMost(sup, 300*time.Millisecond))
		require.True(t, first.stopped.Load())
		require.True(t, first.closed.Load())
	})

	t.Run("die with error", func(t *testing.T) {
		errListen := stderrors.New("listen failed")
		sup := newSupervisor(
			newMock(10*time.Millisecond, nil, false),
			newMock(50*time.Millisecond, errListen, true),
		)
		require.ErrorIs(t, runAtMost(sup, 300*time.Millisecond), errListen)
	})

	t.Run("stop", func(t *testing.T) {
		sup := newSupervisor(
			newMock(10*time.Millisecond, nil, false),
			newMock(20*time.Millisecond, nil, false),
		)
		c := runParallel(func() error {
			return sup.Run(config.Default().NET)
		})
		time.Sleep(50 * time.Millisecond)
		sup.Stop()
		sup.Stop()

		select {
		case err := <-c:
			require.NoError(t, err)
		case <-time.After(300 * time.Millisecond):
			require.Fail(t, "supervisor did not stop running on time")
		}
	})

	t.Run("no transports", func(t *testing.T) {
		sup := NewSupervisor()
		require.NoError(t, sup.Run(config.Default().NET))
	})
}

func TestTCP(t *testing.T) {
	cfg := config.Default().NET
	cfg.AcceptLoopInterruptPeriod = 10 * time.Millisecond

	tcp := NewTCP()
	require.NoError(t, tcp.Bind("localhost:0"))

	accepted := make(chan struct{}, 1)
	done := runParallel(func() error {
		return tcp.Listen(cfg, func(conn net.Conn) {
			_ = conn.Close()
			accepted <- struct{}{}
		})
	})

	conn, err := net.Dial("tcp", tcp.Addr().String())
	require.NoError(t, err)
	_ = conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		require.Fail(t, "connection wasn't accepted")
	}

	tcp.Stop()
	require.NoError(t, <-done)
	tcp.Wait()
	tcp.Close()
}
