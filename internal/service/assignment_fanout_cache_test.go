package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

type fakeUpcomingSource struct {
	classes        []models.Class
	classesErr     error
	meetings       map[string][]models.Meeting
	meetingErrs    map[string]error
	assignments    map[string][]models.Assignment
	assignmentErrs map[string]error
	gate           chan struct{}
	panicOn        string

	classCalls      int32
	meetingCalls    int32
	assignmentCalls int32
}

func (f *fakeUpcomingSource) GetStudentClasses(ctx context.Context, _ string) ([]models.Class, error) {
	atomic.AddInt32(&f.classCalls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.panicOn == "classes" {
		panic("classes payload")
	}
	return f.classes, f.classesErr
}

func (f *fakeUpcomingSource) GetMeetings(_ context.Context, classID string) ([]models.Meeting, error) {
	atomic.AddInt32(&f.meetingCalls, 1)
	if f.panicOn == classID {
		panic("meetings payload")
	}
	if err := f.meetingErrs[classID]; err != nil {
		return nil, err
	}
	return f.meetings[classID], nil
}

func (f *fakeUpcomingSource) GetMeetingAssignments(_ context.Context, meetingID, _ string) ([]models.Assignment, error) {
	atomic.AddInt32(&f.assignmentCalls, 1)
	if err := f.assignmentErrs[meetingID]; err != nil {
		return nil, err
	}
	return f.assignments[meetingID], nil
}

func (f *fakeUpcomingSource) networkCalls() int32 {
	return atomic.LoadInt32(&f.classCalls) + atomic.LoadInt32(&f.meetingCalls) + atomic.LoadInt32(&f.assignmentCalls)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func twoClassSource() *fakeUpcomingSource {
	return &fakeUpcomingSource{
		classes: []models.Class{{ID: "math"}, {ID: "bio"}},
		meetings: map[string][]models.Meeting{
			"math": {{ID: "math-1"}, {ID: "math-2"}},
			"bio":  {{ID: "bio-1"}},
		},
		assignments: map[string][]models.Assignment{
			"math-1": {{AssignmentID: "a-old", DueAt: day(1)}, {AssignmentID: "a-3", DueAt: day(13)}},
			"math-2": {{AssignmentID: "a-2", DueAt: day(12)}},
			"bio-1":  {{AssignmentID: "a-1", DueAt: day(11)}, {AssignmentID: "a-0", DueAt: day(12)}},
		},
	}
}

func newTestFanout(source upcomingSource, clock *manualClock) *AssignmentFanoutCache {
	return NewAssignmentFanoutCache(AssignmentFanoutCacheParams{
		Source:      source,
		Clock:       clock.Now,
		TTL:         2 * time.Minute,
		Concurrency: 2,
	})
}

func TestAssignmentFanoutCacheSelectsNearestUpcoming(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	cache := newTestFanout(source, clock)

	items, cached, err := cache.Get(context.Background(), "student-1", 3)

	require.NoError(t, err)
	assert.False(t, cached)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.AssignmentID)
	}
	assert.Equal(t, []string{"a-1", "a-0", "a-2"}, ids)
	assert.Equal(t, "bio", items[0].ClassID)
	assert.Equal(t, "bio-1", items[0].MeetingID)
}

func TestAssignmentFanoutCacheDeduplicatesConcurrentCalls(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	source.gate = make(chan struct{})
	cache := newTestFanout(source, clock)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]models.Assignment, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = cache.Get(context.Background(), "student-1", 2)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.classCalls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(source.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&source.classCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.meetingCalls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&source.assignmentCalls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestAssignmentFanoutCacheFreshness(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	cache := newTestFanout(source, clock)
	ctx := context.Background()

	_, _, err := cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	callsAfterFirst := source.networkCalls()

	clock.Advance(time.Minute)
	_, cached, err := cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, callsAfterFirst, source.networkCalls())

	clock.Advance(90 * time.Second)
	_, cached, err = cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2*callsAfterFirst, source.networkCalls())
}

func TestAssignmentFanoutCacheKeysByLimit(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	cache := newTestFanout(source, clock)

	short, _, err := cache.Get(context.Background(), "student-1", 1)
	require.NoError(t, err)
	long, _, err := cache.Get(context.Background(), "student-1", 10)
	require.NoError(t, err)

	assert.Len(t, short, 1)
	assert.Len(t, long, 4)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.classCalls))
}

func TestAssignmentFanoutCachePerItemFailures(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	source.meetingErrs = map[string]error{"bio": errors.New("timeout")}
	source.assignmentErrs = map[string]error{"math-2": errors.New("500")}
	cache := newTestFanout(source, clock)

	items, _, err := cache.Get(context.Background(), "student-1", 5)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a-3", items[0].AssignmentID)
}

func TestAssignmentFanoutCacheDoesNotCacheFailures(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	source.classesErr = errors.New("unreachable")
	cache := newTestFanout(source, clock)

	_, _, err := cache.Get(context.Background(), "student-1", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUpstream)

	source.classesErr = nil
	items, cached, err := cache.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, items, 4)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.classCalls))
}

func TestAssignmentFanoutCacheCallerCancellation(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	source.gate = make(chan struct{})
	cache := newTestFanout(source, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(ctx, "student-1", 5)
		done <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.classCalls) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(source.gate)
	require.Eventually(t, func() bool {
		_, cached, err := cache.Get(context.Background(), "student-1", 5)
		return err == nil && cached
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.classCalls))
}

func TestAssignmentFanoutCacheValidationAndInvalidate(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	cache := newTestFanout(source, clock)
	ctx := context.Background()

	_, _, err := cache.Get(ctx, " ", 5)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = cache.Get(ctx, "student-1", 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	cache.Invalidate(ctx, "student-1")
	_, cached, err := cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestAssignmentFanoutCacheSharedLayer(t *testing.T) {
	clock := &manualClock{now: day(10)}
	repo := newStubCacheRepo()
	shared := NewCacheService(repo, nil, time.Minute, nil, true)

	first := NewAssignmentFanoutCache(AssignmentFanoutCacheParams{Source: twoClassSource(), Shared: shared, Clock: clock.Now})
	_, _, err := first.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.Contains(t, repo.keys(), fmt.Sprintf("upcoming:%s:%d", "student-1", 5))

	otherSource := twoClassSource()
	second := NewAssignmentFanoutCache(AssignmentFanoutCacheParams{Source: otherSource, Shared: shared, Clock: clock.Now})
	items, cached, err := second.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, items, 4)
	assert.Equal(t, int32(0), otherSource.networkCalls())
}

func TestAssignmentFanoutCacheSharedEntryKeepsOriginalAge(t *testing.T) {
	clock := &manualClock{now: day(10)}
	repo := newStubCacheRepo()
	shared := NewCacheService(repo, nil, time.Minute, nil, true)
	params := func(source upcomingSource) AssignmentFanoutCacheParams {
		return AssignmentFanoutCacheParams{Source: source, Shared: shared, Clock: clock.Now, TTL: 2 * time.Minute, SharedTTL: 10 * time.Minute}
	}

	first := NewAssignmentFanoutCache(params(twoClassSource()))
	_, _, err := first.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, repo.ttls["upcoming:student-1:5"])

	clock.Advance(110 * time.Second)
	replicaSource := twoClassSource()
	replica := NewAssignmentFanoutCache(params(replicaSource))
	_, cached, err := replica.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(0), replicaSource.networkCalls())

	clock.Advance(110 * time.Second)
	_, cached, err = replica.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Greater(t, replicaSource.networkCalls(), int32(0))
}

func TestAssignmentFanoutCacheIgnoresExpiredSharedEntry(t *testing.T) {
	clock := &manualClock{now: day(10)}
	repo := newStubCacheRepo()
	shared := NewCacheService(repo, nil, time.Minute, nil, true)

	first := NewAssignmentFanoutCache(AssignmentFanoutCacheParams{Source: twoClassSource(), Shared: shared, Clock: clock.Now})
	_, _, err := first.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	replicaSource := twoClassSource()
	replica := NewAssignmentFanoutCache(AssignmentFanoutCacheParams{Source: replicaSource, Shared: shared, Clock: clock.Now})
	_, cached, err := replica.Get(context.Background(), "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&replicaSource.classCalls))
}

func TestAssignmentFanoutCacheInvalidateDuringComputation(t *testing.T) {
	clock := &manualClock{now: day(10)}
	source := twoClassSource()
	source.gate = make(chan struct{})
	cache := newTestFanout(source, clock)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(ctx, "student-1", 5)
		done <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.classCalls) == 1 }, time.Second, time.Millisecond)

	cache.Invalidate(ctx, "student-1")
	close(source.gate)
	require.NoError(t, <-done)

	_, cached, err := cache.Get(ctx, "student-1", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.classCalls))
}

func TestAssignmentFanoutCacheRecoversPanics(t *testing.T) {
	for _, panicOn := range []string{"classes", "bio"} {
		panicOn := panicOn
		t.Run(panicOn, func(t *testing.T) {
			clock := &manualClock{now: day(10)}
			source := twoClassSource()
			source.panicOn = panicOn
			cache := newTestFanout(source, clock)

			_, _, err := cache.Get(context.Background(), "student-1", 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrInternal)

			source.panicOn = ""
			items, cached, err := cache.Get(context.Background(), "student-1", 5)
			require.NoError(t, err)
			assert.False(t, cached)
			assert.Len(t, items, 4)
		})
	}
}
