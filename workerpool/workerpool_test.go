package workerpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New("bogus", 1)
	assert.Error(t, err)
}

func testPoolRunsAndCollects(t *testing.T, p Pool) {
	t.Helper()
	defer p.Close()

	const n = 20
	futures := make([]Future, n)
	var sum int64
	for i := 0; i < n; i++ {
		i := int64(i)
		futures[i] = p.Launch(func() (int64, error) {
			atomic.AddInt64(&sum, i)
			return i, nil
		})
	}
	var total int64
	for _, f := range futures {
		r := f.Wait()
		require.NoError(t, r.Err)
		total += r.N
	}
	assert.Equal(t, int64(190), total) // sum 0..19
	assert.Equal(t, int64(190), atomic.LoadInt64(&sum))
}

func TestSequentialPool(t *testing.T) {
	p, err := New("sequential", 0)
	require.NoError(t, err)
	testPoolRunsAndCollects(t, p)
}

func TestThreadPool(t *testing.T) {
	p, err := New("thread_pool", 4)
	require.NoError(t, err)
	testPoolRunsAndCollects(t, p)
}

func TestThreadOnDemandPool(t *testing.T) {
	p, err := New("thread_on_demand", 0)
	require.NoError(t, err)
	testPoolRunsAndCollects(t, p)
}

func TestLaunchNoFutureDoesNotBlock(t *testing.T) {
	p := NewThreadPool(2)
	done := make(chan struct{})
	p.LaunchNoFuture(func() (int64, error) {
		close(done)
		return 0, nil
	})
	<-done
	p.Close()
}

func TestSequentialLaunchIsImmediate(t *testing.T) {
	p := NewSequential()
	ran := false
	f := p.Launch(func() (int64, error) {
		ran = true
		return 42, nil
	})
	assert.True(t, ran)
	r := f.Wait()
	assert.Equal(t, int64(42), r.N)
}
