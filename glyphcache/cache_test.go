package glyphcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/fontsrc/fonttest"
	"github.com/gogpu/rendertext/raster"
)

func alpha(w, h int, fill uint8) *raster.Bitmap {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = fill
	}
	return &raster.Bitmap{Width: w, Height: h, Stride: w, Pix: pix}
}

func key(glyph int) Key {
	return MakeKey(1, fontsrc.GlyphID(glyph), 16, 0, false, false)
}

func TestGetOrCreateIdempotent(t *testing.T) {
	c := New()
	var calls int
	create := func() (*raster.Bitmap, error) {
		calls++
		return alpha(4, 4, uint8(40+calls)), nil
	}

	h1, err := c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	h2, err := c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	defer h1.Release()
	defer h2.Release()

	assert.Equal(t, 1, calls)
	assert.Equal(t, h1.Bitmap().Pix, h2.Bitmap().Pix)
	assert.Equal(t, key(1), h2.Key())

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(1), s.Creations)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestConcurrentMissesRasterizeOnce(t *testing.T) {
	c := New()
	f := fonttest.Latin("latin")
	r := raster.New()
	k := MakeKey(f.ID(), f.Glyph('g'), 24, 1, false, false)

	var calls atomic.Int64
	start := make(chan struct{})
	create := func() (*raster.Bitmap, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return r.Rasterize(f, k.Glyph, k.SizePx(), k.Phase, k.Hinting)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([][]uint8, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			h, err := c.GetOrCreate(k, create)
			if !assert.NoError(t, err) {
				return
			}
			results[i] = h.Bitmap().Pix
			h.Release()
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), f.OutlineCalls())
	for _, pix := range results {
		assert.Equal(t, results[0], pix)
	}
}

func TestErrorsAreSharedNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, err := c.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())

	h, err := c.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return alpha(1, 1, 1), nil })
	require.NoError(t, err)
	h.Release()
	assert.Equal(t, 1, c.Len())
}

func TestCreatePanicBecomesError(t *testing.T) {
	c := New()
	_, err := c.GetOrCreate(key(1), func() (*raster.Bitmap, error) { panic("bad glyph") })
	require.Error(t, err)

	_, err = c.GetOrCreate(key(2), func() (*raster.Bitmap, error) { return nil, nil })
	require.Error(t, err)

	_, err = c.GetOrCreate(key(3), func() (*raster.Bitmap, error) {
		return &raster.Bitmap{Width: 2, Height: 2, Stride: 2, Pix: make([]uint8, 1)}, nil
	})
	assert.ErrorIs(t, err, raster.ErrInvalidBitmap)
}

func TestBudgetEvictsLeastRecentlyUsed(t *testing.T) {
	// Each 10x10 entry costs 100 bytes plus overhead.
	c := New(WithBudget(3 * (100 + entryOverhead)))
	get := func(g int) {
		h, err := c.GetOrCreate(key(g), func() (*raster.Bitmap, error) { return alpha(10, 10, 1), nil })
		require.NoError(t, err)
		h.Release()
	}

	get(1)
	get(2)
	get(3)
	get(1) // 1 becomes most recent
	get(4)

	assert.Equal(t, 3, c.Len())
	c.mu.Lock()
	_, has2 := c.entries[key(2)]
	_, has1 := c.entries[key(1)]
	c.mu.Unlock()
	assert.False(t, has2, "least recently used entry is evicted")
	assert.True(t, has1)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
	assert.LessOrEqual(t, c.Stats().Bytes, c.Budget())
}

func TestPinnedEntriesSurviveEviction(t *testing.T) {
	c := New(WithBudget(100 + entryOverhead))
	create := func() (*raster.Bitmap, error) { return alpha(10, 10, 7), nil }

	pinned, err := c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	other, err := c.GetOrCreate(key(2), create)
	require.NoError(t, err)
	other.Release()

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint8(7), pinned.Bitmap().Pix[0])

	pinned.Release()
	pinned.Release()
	h, err := c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	h.Release()
}

func TestCorruptEntryIsRecreated(t *testing.T) {
	c := New(WithChecksums())
	var calls int
	create := func() (*raster.Bitmap, error) {
		calls++
		return alpha(3, 3, 9), nil
	}

	h, err := c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	h.Bitmap().Pix[4] = 0
	h.Release()

	h, err = c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), h.Bitmap().Pix[4])
	h.Release()
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), c.Stats().Corruptions)

	h, err = c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	h.Bitmap().Pix = h.Bitmap().Pix[:2]
	h.Release()

	h, err = c.GetOrCreate(key(1), create)
	require.NoError(t, err)
	h.Release()
	assert.Equal(t, 3, calls, "structurally broken entries are recreated without checksums too")
}

func TestResetAndEvictFont(t *testing.T) {
	c := New()
	create := func() (*raster.Bitmap, error) { return alpha(2, 2, 1), nil }
	for _, k := range []Key{
		MakeKey(1, 1, 12, 0, false, false),
		MakeKey(1, 2, 12, 0, false, false),
		MakeKey(2, 1, 12, 0, false, false),
	} {
		h, err := c.GetOrCreate(k, create)
		require.NoError(t, err)
		h.Release()
	}

	c.EvictFont(1)
	assert.Equal(t, 1, c.Len())

	live, err := c.GetOrCreate(MakeKey(2, 1, 12, 0, false, false), create)
	require.NoError(t, err)
	c.Reset()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Stats().Bytes)
	assert.Len(t, live.Bitmap().Pix, 4, "handles outlive a reset")
	live.Release()
}

func TestResetDuringCreateDoesNotPublish(t *testing.T) {
	c := New()
	h, err := c.GetOrCreate(key(1), func() (*raster.Bitmap, error) {
		c.Reset()
		return alpha(1, 1, 1), nil
	})
	require.NoError(t, err)
	h.Release()
	assert.Zero(t, c.Len())
}

func TestKeyDistinguishesPhaseAndColor(t *testing.T) {
	c := New()
	var calls int
	create := func() (*raster.Bitmap, error) {
		calls++
		return alpha(1, 1, 1), nil
	}
	for _, k := range []Key{
		MakeKey(1, 1, 12, 0, false, false),
		MakeKey(1, 1, 12, 1, false, false),
		MakeKey(1, 1, 12, 0, true, false),
		MakeKey(1, 1, 12.5, 0, false, false),
		MakeKey(1, 1, 12, 0, false, true),
	} {
		h, err := c.GetOrCreate(k, create)
		require.NoError(t, err)
		h.Release()
	}
	assert.Equal(t, 5, calls)
	assert.InDelta(t, 12.5, MakeKey(1, 1, 12.5, 0, false, false).SizePx(), 1e-9)
}

func TestSetBudgetShrinks(t *testing.T) {
	c := New()
	for g := range 4 {
		h, err := c.GetOrCreate(key(g), func() (*raster.Bitmap, error) { return alpha(10, 10, 1), nil })
		require.NoError(t, err)
		h.Release()
	}
	c.SetBudget(100 + entryOverhead)
	assert.Equal(t, 1, c.Len())
	c.SetBudget(-1)
	assert.Equal(t, int64(100+entryOverhead), c.Budget())
}

func TestClose(t *testing.T) {
	c := New()
	c.Close()
	c.Close()
	_, err := c.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return alpha(1, 1, 1), nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDefaultLifecycle(t *testing.T) {
	prev := SetDefault(nil)
	t.Cleanup(func() { SetDefault(prev) })

	d := Default()
	assert.Same(t, d, Default())

	h, err := d.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return alpha(1, 1, 1), nil })
	require.NoError(t, err)
	h.Release()

	EvictFont(1)
	assert.Zero(t, d.Len())

	h, err = d.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return alpha(1, 1, 1), nil })
	require.NoError(t, err)
	h.Release()
	Reset()
	assert.Zero(t, d.Len())

	Shutdown()
	_, err = d.GetOrCreate(key(1), func() (*raster.Bitmap, error) { return alpha(1, 1, 1), nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotSame(t, d, Default())
}
