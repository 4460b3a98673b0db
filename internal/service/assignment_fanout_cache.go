package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

// DefaultFanoutTTL is how long a computed upcoming list is served without new I/O.
const DefaultFanoutTTL = 2 * time.Minute

type upcomingSource interface {
	GetStudentClasses(ctx context.Context, studentID string) ([]models.Class, error)
	GetMeetings(ctx context.Context, classID string) ([]models.Meeting, error)
	GetMeetingAssignments(ctx context.Context, meetingID, studentID string) ([]models.Assignment, error)
}

type fanoutKey struct {
	studentID string
	limit     int
}

func (k fanoutKey) String() string {
	return fmt.Sprintf("upcoming:%s:%d", k.studentID, k.limit)
}

type cachedUpcoming struct {
	items      []models.Assignment
	computedAt time.Time
}

// sharedUpcoming is the shared cache payload. ComputedAt travels with the items so
// every replica measures freshness from the original fan-out.
type sharedUpcoming struct {
	Items      []models.Assignment `json:"items"`
	ComputedAt time.Time           `json:"computedAt"`
}

// AssignmentFanoutCache returns a student's nearest upcoming assignments across all
// classes. At most one computation per (student, limit) runs at a time; concurrent
// callers share it. Successful results are served for TTL without network calls.
type AssignmentFanoutCache struct {
	source      upcomingSource
	shared      *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	ttl         time.Duration
	sharedTTL   time.Duration
	concurrency int

	inflight singleflight.Group

	mu          sync.Mutex
	results     map[fanoutKey]cachedUpcoming
	generations map[string]uint64
}

// AssignmentFanoutCacheParams groups constructor dependencies.
type AssignmentFanoutCacheParams struct {
	Source      upcomingSource
	Shared      *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Clock       func() time.Time
	TTL         time.Duration
	SharedTTL   time.Duration
	Concurrency int
}

// NewAssignmentFanoutCache constructs the cache. Shared is optional.
func NewAssignmentFanoutCache(params AssignmentFanoutCacheParams) *AssignmentFanoutCache {
	if params.TTL <= 0 {
		params.TTL = DefaultFanoutTTL
	}
	if params.SharedTTL <= 0 {
		params.SharedTTL = params.TTL
	}
	if params.Concurrency <= 0 {
		params.Concurrency = 8
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &AssignmentFanoutCache{
		source:      params.Source,
		shared:      params.Shared,
		metrics:     params.Metrics,
		logger:      params.Logger,
		now:         params.Clock,
		ttl:         params.TTL,
		sharedTTL:   params.SharedTTL,
		concurrency: params.Concurrency,
		results:     make(map[fanoutKey]cachedUpcoming),
		generations: make(map[string]uint64),
	}
}

// Get returns up to limit upcoming assignments. The boolean reports whether the result
// came from cache without a new fan-out. The computation keeps running when ctx ends;
// only this caller stops waiting.
func (c *AssignmentFanoutCache) Get(ctx context.Context, studentID string, limit int) ([]models.Assignment, bool, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if limit <= 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "limit must be positive")
	}
	key := fanoutKey{studentID: studentID, limit: limit}

	detached := context.WithoutCancel(ctx)
	gen := c.generation(studentID)
	ch := c.inflight.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("upcoming fan-out aborted", zap.String("student_id", studentID), zap.Any("panic", r))
				result, err = nil, appErrors.CloneWrap(appErrors.ErrInternal, fmt.Errorf("panic: %v", r))
			}
		}()
		if items, ok := c.lookup(key); ok {
			return fanoutResult{items: items, cached: true}, nil
		}
		if entry, ok := c.lookupShared(detached, key); ok {
			c.store(key, gen, entry)
			c.metrics.RecordFanoutLookup(FanoutLookupShared)
			return fanoutResult{items: entry.items, cached: true}, nil
		}
		c.metrics.RecordFanoutLookup(FanoutLookupMiss)
		computedAt := c.now()
		items, err := c.compute(detached, key)
		if err != nil {
			return nil, err
		}
		entry := cachedUpcoming{items: items, computedAt: computedAt}
		if c.store(key, gen, entry) {
			c.persistShared(detached, key, entry)
		}
		return fanoutResult{items: items}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out := res.Val.(fanoutResult)
		switch {
		case res.Shared:
			c.metrics.RecordFanoutLookup(FanoutLookupCoalesced)
		case out.cached:
			c.metrics.RecordFanoutLookup(FanoutLookupHit)
		}
		return cloneAssignments(out.items), out.cached, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

type fanoutResult struct {
	items  []models.Assignment
	cached bool
}

// Invalidate drops every cached list of a student, locally and in the shared cache.
// Computations already running for the student finish for their waiters but are not
// stored, and later calls start a new fan-out instead of joining them.
func (c *AssignmentFanoutCache) Invalidate(ctx context.Context, studentID string) {
	studentID = strings.TrimSpace(studentID)
	c.mu.Lock()
	c.generations[studentID]++
	for key := range c.results {
		if key.studentID == studentID {
			delete(c.results, key)
		}
	}
	c.mu.Unlock()
	if c.shared.Enabled() {
		_ = c.shared.Invalidate(ctx, fmt.Sprintf("upcoming:%s:*", studentID))
	}
}

func (c *AssignmentFanoutCache) generation(studentID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[studentID]
}

func (c *AssignmentFanoutCache) fresh(computedAt time.Time) bool {
	return c.now().Sub(computedAt) < c.ttl
}

func (c *AssignmentFanoutCache) lookup(key fanoutKey) ([]models.Assignment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.results[key]
	if !ok {
		return nil, false
	}
	if !c.fresh(entry.computedAt) {
		delete(c.results, key)
		return nil, false
	}
	return entry.items, true
}

// store keeps entry unless the student was invalidated since gen was read.
func (c *AssignmentFanoutCache) store(key fanoutKey, gen uint64, entry cachedUpcoming) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key.studentID] != gen {
		return false
	}
	c.results[key] = entry
	return true
}

func (c *AssignmentFanoutCache) lookupShared(ctx context.Context, key fanoutKey) (cachedUpcoming, bool) {
	if !c.shared.Enabled() {
		return cachedUpcoming{}, false
	}
	var payload sharedUpcoming
	hit, err := c.shared.Get(ctx, key.String(), &payload)
	if err != nil || !hit || payload.ComputedAt.IsZero() || !c.fresh(payload.ComputedAt) {
		return cachedUpcoming{}, false
	}
	now := c.now()
	items := make([]models.Assignment, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.DueAt.After(now) {
			items = append(items, item)
		}
	}
	return cachedUpcoming{items: items, computedAt: payload.ComputedAt}, true
}

func (c *AssignmentFanoutCache) persistShared(ctx context.Context, key fanoutKey, entry cachedUpcoming) {
	if !c.shared.Enabled() {
		return
	}
	ttl := c.sharedTTL
	if ttl > c.ttl {
		ttl = c.ttl
	}
	_ = c.shared.Set(ctx, key.String(), sharedUpcoming{Items: entry.items, ComputedAt: entry.computedAt}, ttl)
}

// compute runs classes -> meetings -> assignments with bounded parallelism. Only the class
// list is required; a failed class or meeting contributes nothing.
func (c *AssignmentFanoutCache) compute(ctx context.Context, key fanoutKey) ([]models.Assignment, error) {
	if c.source == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "assignment source unavailable")
	}
	start := time.Now()
	defer func() { c.metrics.ObserveFanout(time.Since(start)) }()

	classes, err := c.source.GetStudentClasses(ctx, key.studentID)
	if err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrUpstream, err)
	}

	type classMeeting struct {
		classID string
		meeting models.Meeting
	}
	perClass := make([][]classMeeting, len(classes))
	var classGroup errgroup.Group
	classGroup.SetLimit(c.concurrency)
	for i, class := range classes {
		i, class := i, class
		classGroup.Go(recovered(func() {
			meetings, err := c.source.GetMeetings(ctx, class.ID)
			if err != nil {
				c.logger.Warn("class meetings unavailable", zap.String("class_id", class.ID), zap.Error(err))
				return
			}
			for _, meeting := range meetings {
				perClass[i] = append(perClass[i], classMeeting{classID: class.ID, meeting: meeting})
			}
		}))
	}
	if err := classGroup.Wait(); err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrInternal, err)
	}

	var meetings []classMeeting
	for _, list := range perClass {
		meetings = append(meetings, list...)
	}

	perMeeting := make([][]models.Assignment, len(meetings))
	var meetingGroup errgroup.Group
	meetingGroup.SetLimit(c.concurrency)
	for i, item := range meetings {
		i, item := i, item
		meetingGroup.Go(recovered(func() {
			assignments, err := c.source.GetMeetingAssignments(ctx, item.meeting.ID, key.studentID)
			if err != nil {
				c.logger.Warn("meeting assignments unavailable", zap.String("meeting_id", item.meeting.ID), zap.Error(err))
				return
			}
			for _, assignment := range assignments {
				if assignment.MeetingID == "" {
					assignment.MeetingID = item.meeting.ID
				}
				if assignment.ClassID == "" {
					assignment.ClassID = item.classID
				}
				perMeeting[i] = append(perMeeting[i], assignment)
			}
		}))
	}
	if err := meetingGroup.Wait(); err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrInternal, err)
	}

	return selectUpcoming(perMeeting, c.now(), key.limit), nil
}

// selectUpcoming keeps assignments due after now, nearest first, truncated to limit.
func selectUpcoming(groups [][]models.Assignment, now time.Time, limit int) []models.Assignment {
	upcoming := make([]models.Assignment, 0)
	for _, group := range groups {
		for _, assignment := range group {
			if assignment.DueAt.After(now) {
				upcoming = append(upcoming, assignment)
			}
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].DueAt.Equal(upcoming[j].DueAt) {
			return upcoming[i].AssignmentID < upcoming[j].AssignmentID
		}
		return upcoming[i].DueAt.Before(upcoming[j].DueAt)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

func cloneAssignments(items []models.Assignment) []models.Assignment {
	out := make([]models.Assignment, len(items))
	copy(out, items)
	return out
}
