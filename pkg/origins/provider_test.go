package origins

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpx/pkg/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock { return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func TestProvider_GetDeduplicatesCaseInsensitively(t *testing.T) {
	dal := store.NewMemory(nil, []string{
		"http://localhost:5173",
		"http://LOCALHOST:5173",
		"https://app.example.com",
	})
	p := NewProvider(dal)

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, s.Values())
}

func TestProvider_GetReturnsSameInstanceWhileWarm(t *testing.T) {
	dal := store.NewMemory(nil, []string{"http://localhost:5173", "https://app.example.com"})
	p := NewProvider(dal)

	a, err := p.Get(context.Background())
	require.NoError(t, err)
	b, err := p.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, dal.Calls(store.ProcAllowedOrigins))
}

func TestProvider_IsAllowedIgnoresCase(t *testing.T) {
	p := NewProvider(store.NewMemory(nil, []string{"https://portal.example.com"}))

	ok, err := p.IsAllowed(context.Background(), "https://PORTAL.EXAMPLE.COM")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.IsAllowed(context.Background(), "https://other.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_IsAllowedDoesNotStripTrailingSlash(t *testing.T) {
	p := NewProvider(store.NewMemory(nil, []string{"http://x"}))

	ok, err := p.IsAllowed(context.Background(), "http://x/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_RefreshesAfterTTL(t *testing.T) {
	clk := newClock()
	dal := store.NewMemory(nil, []string{"https://old.example.com"})
	p := NewProvider(dal, WithClock(clk.Now))

	first, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://old.example.com"}, first.Values())

	dal.SetOrigins("https://new.example.com")

	clk.Advance(DefaultTTL - time.Second)
	warm, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, warm)

	clk.Advance(time.Second)
	fresh, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, []string{"https://new.example.com"}, fresh.Values())
	assert.Equal(t, 2, dal.Calls(store.ProcAllowedOrigins))
}

func TestProvider_DropsBlankAndNullRows(t *testing.T) {
	p := NewProvider(store.NewMemory(nil, []string{"", "  ", "https://a.example.com"}))

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com"}, s.Values())
}

func TestProvider_PreservesStoreOrder(t *testing.T) {
	p := NewProvider(store.NewMemory(nil, []string{"https://z.example.com", "https://a.example.com", "https://Z.example.com"}))

	s, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://z.example.com", "https://a.example.com"}, s.Values())
}

func TestProvider_ErrorsAreNotCached(t *testing.T) {
	dal := store.NewMemory(nil, []string{"https://a.example.com"})
	dal.Fail(errors.New("timeout"))
	p := NewProvider(dal)

	_, err := p.Get(context.Background())
	require.Error(t, err)
	_, err = p.IsAllowed(context.Background(), "https://a.example.com")
	require.Error(t, err)

	dal.Fail(nil)
	ok, err := p.IsAllowed(context.Background(), "https://a.example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProvider_Invalidate(t *testing.T) {
	dal := store.NewMemory(nil, []string{"https://a.example.com"})
	p := NewProvider(dal)

	a, err := p.Get(context.Background())
	require.NoError(t, err)
	p.Invalidate()
	b, err := p.Get(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, dal.Calls(store.ProcAllowedOrigins))
}

func TestProvider_ConcurrentGets(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithSingleFlight()}} {
		dal := store.NewMemory(nil, []string{"https://a.example.com", "https://b.example.com"})
		p := NewProvider(dal, opts...)

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := p.Get(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, 2, s.Len())
			}()
		}
		wg.Wait()
		assert.GreaterOrEqual(t, dal.Calls(store.ProcAllowedOrigins), 1)
	}
}

func TestProvider_SingleFlightFetchIgnoresLeaderCancellation(t *testing.T) {
	dal := store.NewMemory(nil, []string{"https://a.example.com"})
	p := NewProvider(dal, WithSingleFlight())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := p.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.Contains("https://a.example.com"))

	again, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestProvider_CancelledCallerWithoutSingleFlightFails(t *testing.T) {
	p := NewProvider(store.NewMemory(nil, []string{"https://a.example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
