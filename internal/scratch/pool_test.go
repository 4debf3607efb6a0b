package scratch

import (
	"sync"
	"testing"

	"github.com/born-ml/castcopy/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, Small, Classify(0))
	assert.Equal(t, Small, Classify(4095))
	assert.Equal(t, Medium, Classify(4096))
	assert.Equal(t, Medium, Classify(1024*1024-1))
	assert.Equal(t, Large, Classify(1024*1024))
	assert.Equal(t, "medium", Medium.String())
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, 8, roundUp(0))
	assert.Equal(t, 8, roundUp(5))
	assert.Equal(t, 64, roundUp(33))
	assert.Equal(t, 4096, roundUp(4096))
	assert.Equal(t, 8192, roundUp(4097))
	assert.Equal(t, 3*1024*1024, roundUp(3*1024*1024))
}

func TestAcquireReuses(t *testing.T) {
	p := New(4)
	b, err := p.Acquire(100, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b.Len(), 100)
	require.NoError(t, p.Release(b))

	again, err := p.Acquire(120, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	assert.Same(t, b, again, "128-byte block satisfies a 120-byte request")

	s := p.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Zero(t, s.Pooled)
}

func TestAcquireReusesAcrossClassBoundary(t *testing.T) {
	p := New(4)
	b, err := p.Acquire(3000, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, 4096, b.Len())
	require.NoError(t, p.Release(b))

	again, err := p.Acquire(3500, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	assert.Same(t, b, again)
}

func TestAcquireKeysByKindAndDevice(t *testing.T) {
	p := New(4)
	b, err := p.Acquire(64, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, p.Release(b))

	other, err := p.Acquire(64, tensor.Shared, tensor.CPU)
	require.NoError(t, err)
	defer other.Close()
	assert.NotSame(t, b, other)
	assert.Equal(t, tensor.Shared, other.Kind())
}

func TestReleaseClosesOverflow(t *testing.T) {
	p := New(1)
	a, err := p.Acquire(32, tensor.Host, tensor.CPU)
	require.NoError(t, err)
	b, err := p.Acquire(32, tensor.Host, tensor.CPU)
	require.NoError(t, err)

	require.NoError(t, p.Release(a))
	require.NoError(t, p.Release(b))
	assert.False(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Equal(t, 1, p.Stats().Pooled)

	require.NoError(t, p.Clear())
	assert.True(t, a.Closed())
	assert.Zero(t, p.Stats().Pooled)
	assert.NoError(t, p.Release(a), "releasing a closed block is a no-op")
}

func TestConcurrentUse(t *testing.T) {
	p := New(8)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b, err := p.Acquire(256, tensor.Host, tensor.CPU)
				if !assert.NoError(t, err) {
					return
				}
				b.Bytes()[0] = 1
				assert.NoError(t, p.Release(b))
			}
		}()
	}
	wg.Wait()
	s := p.Stats()
	assert.Equal(t, uint64(16*50), s.Hits+s.Misses)
	assert.LessOrEqual(t, s.Pooled, 8)
}

func TestAcquireNegative(t *testing.T) {
	_, err := New(0).Acquire(-1, tensor.Host, tensor.CPU)
	assert.Error(t, err)
}
