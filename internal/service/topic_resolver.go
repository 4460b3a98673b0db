package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

var milestonePattern = regexp.MustCompile(`(?i)\b(exam|exams|mock|mocks|test|tests|assessment|assessments)\b`)

// IsMilestoneTopic reports whether a topic names an exam-like session.
func IsMilestoneTopic(topic string) bool {
	return milestonePattern.MatchString(topic)
}

// TopicRequest carries what a topic source may use for one session.
type TopicRequest struct {
	ClassID    string
	Session    models.Session
	Attendance *models.AttendanceSignal
	Catalog    []string
}

// TopicSource is one step of the topic fallback chain. ok=false or a non-nil error
// both mean the next source should be tried.
type TopicSource interface {
	Name() models.TopicSource
	Resolve(ctx context.Context, req TopicRequest) (topic string, ok bool, err error)
}

type coveredTopicLookup interface {
	GetCoveredTopic(ctx context.Context, meetingID string) (*string, error)
}

type topicCatalogReader interface {
	ListTopics(ctx context.Context, classID string) ([]string, error)
}

// CoveredTopicSource asks the upstream for the topic recorded against the meeting.
type CoveredTopicSource struct {
	lookup coveredTopicLookup
}

// NewCoveredTopicSource constructs the per-meeting covered topic step.
func NewCoveredTopicSource(lookup coveredTopicLookup) *CoveredTopicSource {
	return &CoveredTopicSource{lookup: lookup}
}

func (s *CoveredTopicSource) Name() models.TopicSource { return models.TopicSourceCoveredTopic }

func (s *CoveredTopicSource) Resolve(ctx context.Context, req TopicRequest) (string, bool, error) {
	if s.lookup == nil {
		return "", false, nil
	}
	title, err := s.lookup.GetCoveredTopic(ctx, req.Session.Meeting.ID)
	if err != nil {
		return "", false, err
	}
	return nonEmpty(title)
}

// AttendanceTopicSource uses the topic embedded in the reconciled attendance record.
type AttendanceTopicSource struct{}

func (AttendanceTopicSource) Name() models.TopicSource { return models.TopicSourceAttendance }

func (AttendanceTopicSource) Resolve(_ context.Context, req TopicRequest) (string, bool, error) {
	if req.Attendance == nil {
		return "", false, nil
	}
	return nonEmpty(req.Attendance.Topic)
}

// CatalogTopicSource reads the pre-seeded per-class topic list by session position.
type CatalogTopicSource struct{}

func (CatalogTopicSource) Name() models.TopicSource { return models.TopicSourceCatalog }

func (CatalogTopicSource) Resolve(_ context.Context, req TopicRequest) (string, bool, error) {
	idx := req.Session.SessionNumber - 1
	if idx < 0 || idx >= len(req.Catalog) {
		return "", false, nil
	}
	topic := req.Catalog[idx]
	return nonEmpty(&topic)
}

func nonEmpty(value *string) (string, bool, error) {
	if value == nil {
		return "", false, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return "", false, nil
	}
	return trimmed, true, nil
}

// ResolvedTopic is the outcome of the chain for one session.
type ResolvedTopic struct {
	Topic  *string
	Source models.TopicSource
}

// TopicResolver runs the fallback chain for every session of a class.
type TopicResolver struct {
	sources     []TopicSource
	catalog     topicCatalogReader
	concurrency int
	logger      *zap.Logger
}

// TopicResolverParams groups constructor dependencies.
type TopicResolverParams struct {
	CoveredTopics coveredTopicLookup
	Catalog       topicCatalogReader
	Sources       []TopicSource
	Concurrency   int
	Logger        *zap.Logger
}

// NewTopicResolver builds the default chain: covered topic, attendance topic, catalog.
func NewTopicResolver(params TopicResolverParams) *TopicResolver {
	sources := params.Sources
	if len(sources) == 0 {
		sources = []TopicSource{
			NewCoveredTopicSource(params.CoveredTopics),
			AttendanceTopicSource{},
			CatalogTopicSource{},
		}
	}
	if params.Concurrency <= 0 {
		params.Concurrency = 8
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicResolver{sources: sources, catalog: params.Catalog, concurrency: params.Concurrency, logger: logger}
}

// ResolveAll resolves topics for all sessions concurrently. The result is index-aligned with sessions.
// Source errors fall through the chain; only a panicking source aborts the batch.
func (r *TopicResolver) ResolveAll(ctx context.Context, classID string, sessions []models.Session, attendance map[string]models.AttendanceSignal) ([]ResolvedTopic, error) {
	results := make([]ResolvedTopic, len(sessions))
	if len(sessions) == 0 {
		return results, nil
	}
	catalog := r.loadCatalog(ctx, classID)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range sessions {
		i := i
		req := TopicRequest{ClassID: classID, Session: sessions[i], Catalog: catalog}
		if signal, ok := attendance[sessions[i].Meeting.ID]; ok {
			signal := signal
			req.Attendance = &signal
		}
		g.Go(recovered(func() {
			results[i] = r.Resolve(ctx, req)
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Resolve walks the chain for one session and stops at the first topic found.
func (r *TopicResolver) Resolve(ctx context.Context, req TopicRequest) ResolvedTopic {
	for _, source := range r.sources {
		topic, ok, err := source.Resolve(ctx, req)
		if err != nil {
			r.logger.Warn("topic source failed",
				zap.String("source", string(source.Name())),
				zap.String("meeting_id", req.Session.Meeting.ID),
				zap.Error(err))
			continue
		}
		if ok {
			return ResolvedTopic{Topic: &topic, Source: source.Name()}
		}
	}
	return ResolvedTopic{}
}

func (r *TopicResolver) loadCatalog(ctx context.Context, classID string) []string {
	if r.catalog == nil {
		return nil
	}
	topics, err := r.catalog.ListTopics(ctx, classID)
	if err != nil {
		r.logger.Warn("topic catalog unavailable", zap.String("class_id", classID), zap.Error(err))
		return nil
	}
	return topics
}
