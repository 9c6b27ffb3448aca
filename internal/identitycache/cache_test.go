package identitycache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tapday/internal/registrar"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type fakeLister struct {
	mu      sync.Mutex
	records []registrar.Subname
	err     error
	calls   atomic.Int32
	block   chan struct{}
	gotSize int
}

func (f *fakeLister) List(_ context.Context, _ string, size int) ([]registrar.Subname, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotSize = size
	if f.err != nil {
		return nil, f.err
	}
	return append([]registrar.Subname(nil), f.records...), nil
}

func (f *fakeLister) set(records []registrar.Subname, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

type CacheSuite struct {
	suite.Suite
	lister *fakeLister
	clock  time.Time
	cache  *Cache
	ctx    context.Context
}

func (s *CacheSuite) SetupTest() {
	s.lister = &fakeLister{records: []registrar.Subname{
		{FullName: "amy.deptofagri.eth", Owner: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Texts: map[string]string{
			"avatar": "https://img/amy.png", "url": "https://farcaster.xyz/amy", "fid": "11",
		}},
		{FullName: "bob.deptofagri.eth", Owner: addrB, Texts: map[string]string{"avatar": ""}},
		{FullName: "ghost.deptofagri.eth", Owner: ""},
	}}
	s.clock = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.cache = New(s.lister, "deptofagri.eth",
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithRefreshInterval(time.Minute),
		WithClock(func() time.Time { return s.clock }),
	)
	s.ctx = context.Background()
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

// =============================================================================
// Lookup shape
// =============================================================================

func (s *CacheSuite) TestLookupPreservesOrderAndDuplicates() {
	input := []string{addrC, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", addrB, addrC}

	out := s.cache.Lookup(s.ctx, input)

	s.Require().Len(out, 4)
	for i, e := range out {
		s.Equal(input[i], e.Address, "address echoed as given")
	}
	s.Nil(out[0].Name)
	s.Equal("amy.deptofagri.eth", *out[1].Name)
	s.Equal("https://img/amy.png", *out[1].Avatar)
	s.Equal("https://farcaster.xyz/amy", *out[1].URL)
	s.Equal("11", *out[1].FID)
	s.True(out[1].HasProfile())
	s.Equal("bob.deptofagri.eth", *out[2].Name)
	s.Nil(out[2].Avatar, "empty text records are absent")
	s.False(out[2].HasProfile())
	s.Equal(out[0], out[3])
	s.Equal(1000, s.lister.gotSize)
}

func (s *CacheSuite) TestLookupWithoutSnapshotIsAllAbsent() {
	s.lister.set(nil, errors.New("registrar down"))

	out := s.cache.Lookup(s.ctx, []string{addrA, addrB})

	s.Require().Len(out, 2)
	for _, e := range out {
		s.Nil(e.Name)
		s.Nil(e.Avatar)
		s.Nil(e.URL)
		s.Nil(e.FID)
	}
}

// =============================================================================
// Refresh
// =============================================================================

func (s *CacheSuite) TestSnapshotReusedWithinInterval() {
	s.cache.Lookup(s.ctx, []string{addrA})
	s.clock = s.clock.Add(30 * time.Second)
	s.cache.Lookup(s.ctx, []string{addrA})

	s.Equal(int32(1), s.lister.calls.Load())

	s.clock = s.clock.Add(time.Minute)
	s.cache.Lookup(s.ctx, []string{addrA})
	s.Equal(int32(2), s.lister.calls.Load())
}

func (s *CacheSuite) TestInvalidateForcesRebuild() {
	s.cache.Lookup(s.ctx, []string{addrC})
	s.lister.set([]registrar.Subname{{FullName: "cat.deptofagri.eth", Owner: addrC}}, nil)

	s.Require().NoError(s.cache.Invalidate(s.ctx))
	out := s.cache.Lookup(s.ctx, []string{addrC})

	s.Require().NotNil(out[0].Name)
	s.Equal("cat.deptofagri.eth", *out[0].Name)
}

func (s *CacheSuite) TestFailedRebuildKeepsPreviousSnapshot() {
	first, err := s.cache.Rebuild(s.ctx)
	s.Require().NoError(err)

	s.lister.set(nil, errors.New("registrar down"))
	_, err = s.cache.Rebuild(s.ctx)
	s.Require().Error(err)

	s.Same(first, s.cache.current.Load())
	out := s.cache.Lookup(s.ctx, []string{addrB})
	s.Require().NotNil(out[0].Name, "stale snapshot still serves")
	s.Equal("bob.deptofagri.eth", *out[0].Name)
}

func (s *CacheSuite) TestWarm() {
	s.Require().NoError(s.cache.Warm(s.ctx))
	s.Equal(2, s.cache.current.Load().Len())

	s.lister.set(nil, errors.New("boom"))
	s.ErrorContains(s.cache.Warm(s.ctx), "warm identity cache")
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentRebuildsCollapse(t *testing.T) {
	lister := &fakeLister{
		records: []registrar.Subname{{FullName: "amy.deptofagri.eth", Owner: addrA}},
		block:   make(chan struct{}),
	}
	cache := New(lister, "deptofagri.eth", WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	const readers = 8
	var wg sync.WaitGroup
	results := make([][]Entry, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Lookup(context.Background(), []string{addrA})
		}(i)
	}

	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(lister.block)
	wg.Wait()

	assert.Equal(t, int32(1), lister.calls.Load())
	for _, r := range results {
		require.Len(t, r, 1)
		require.NotNil(t, r[0].Name)
		assert.Equal(t, "amy.deptofagri.eth", *r[0].Name)
	}
}

func TestNilSnapshotGet(t *testing.T) {
	var snap *Snapshot
	e := snap.Get(addrA)
	assert.Equal(t, addrA, e.Address)
	assert.Nil(t, e.Name)
	assert.Zero(t, snap.Len())
	assert.True(t, snap.BuiltAt().IsZero())
}
