package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

type stubCoveredTopics struct {
	mu     sync.Mutex
	topics map[string]*string
	errs   map[string]error
	calls  []string
}

func (s *stubCoveredTopics) GetCoveredTopic(_ context.Context, meetingID string) (*string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, meetingID)
	s.mu.Unlock()
	if err := s.errs[meetingID]; err != nil {
		return nil, err
	}
	return s.topics[meetingID], nil
}

type stubCatalog struct {
	topics []string
	err    error
	calls  int32
}

func (s *stubCatalog) ListTopics(context.Context, string) ([]string, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.topics, s.err
}

func TestIsMilestoneTopic(t *testing.T) {
	for _, topic := range []string{"Mid-term Exam", "Mock exams", "Unit TEST 3", "Final assessment"} {
		assert.True(t, IsMilestoneTopic(topic), topic)
	}
	for _, topic := range []string{"Contest preparation", "Examples of limits", "Attestation", ""} {
		assert.False(t, IsMilestoneTopic(topic), topic)
	}
}

func TestTopicResolverFallbackChain(t *testing.T) {
	sessions := NormalizeSchedule([]models.Meeting{meeting("m1", 0), meeting("m2", 7), meeting("m3", 14), meeting("m4", 21)})
	covered := &stubCoveredTopics{
		topics: map[string]*string{"m1": strPtr("Limits"), "m2": strPtr("   ")},
		errs:   map[string]error{"m3": errors.New("timeout")},
	}
	catalog := &stubCatalog{topics: []string{"Catalog 1", "Catalog 2", "Catalog 3"}}
	resolver := NewTopicResolver(TopicResolverParams{CoveredTopics: covered, Catalog: catalog, Concurrency: 2})

	attendance := map[string]models.AttendanceSignal{
		"m2": {MeetingID: "m2", Status: models.AttendanceStatusPresent, Topic: strPtr("Derivatives")},
	}
	results, err := resolver.ResolveAll(context.Background(), "class-1", sessions, attendance)
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, "Limits", *results[0].Topic)
	assert.Equal(t, models.TopicSourceCoveredTopic, results[0].Source)
	assert.Equal(t, "Derivatives", *results[1].Topic)
	assert.Equal(t, models.TopicSourceAttendance, results[1].Source)
	assert.Equal(t, "Catalog 3", *results[2].Topic)
	assert.Equal(t, models.TopicSourceCatalog, results[2].Source)
	assert.Nil(t, results[3].Topic)
	assert.Equal(t, models.TopicSourceNone, results[3].Source)

	assert.Equal(t, int32(1), atomic.LoadInt32(&catalog.calls))
	assert.Len(t, covered.calls, 4)
}

func TestTopicResolverCatalogFailureIsTolerated(t *testing.T) {
	sessions := NormalizeSchedule([]models.Meeting{meeting("m1", 0)})
	resolver := NewTopicResolver(TopicResolverParams{Catalog: &stubCatalog{err: errors.New("db down")}})

	results, err := resolver.ResolveAll(context.Background(), "class-1", sessions, nil)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Topic)
}

func TestTopicResolverEmptySchedule(t *testing.T) {
	catalog := &stubCatalog{}
	resolver := NewTopicResolver(TopicResolverParams{Catalog: catalog})

	results, err := resolver.ResolveAll(context.Background(), "class-1", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), catalog.calls)
}

type panickingTopicSource struct{}

func (panickingTopicSource) Name() models.TopicSource { return models.TopicSourceCoveredTopic }

func (panickingTopicSource) Resolve(context.Context, TopicRequest) (string, bool, error) {
	panic("nil payload")
}

func TestTopicResolverPanicAbortsBatch(t *testing.T) {
	sessions := NormalizeSchedule([]models.Meeting{meeting("m1", 0), meeting("m2", 7)})
	resolver := NewTopicResolver(TopicResolverParams{Sources: []TopicSource{panickingTopicSource{}}})

	results, err := resolver.ResolveAll(context.Background(), "class-1", sessions, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil payload")
	assert.Nil(t, results)
}
