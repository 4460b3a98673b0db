package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
	"github.com/noah-isme/sma-progress-api/pkg/middleware/requestid"
)

// Source names used when a fetch degrades to its empty default.
const (
	degradedMeetings          = "meetings"
	degradedAttendanceSummary = "attendance_summary"
	degradedCourseAttendance  = "course_attendance"
)

type progressSource interface {
	GetMeetings(ctx context.Context, classID string) ([]models.Meeting, error)
	GetAttendanceSummary(ctx context.Context, studentID string) ([]models.ClassAttendance, error)
	GetCourseAttendance(ctx context.Context, courseID, studentID string) ([]models.AttendanceSignal, error)
}

// ProgressServiceConfig tunes the reconciliation and metrics.
type ProgressServiceConfig struct {
	AttendancePolicy AttendancePolicy
	Thresholds       WarningThresholds
	WindowWeeks      int
	WindowSessions   int
}

// ProgressService builds session timelines and progress metrics for one enrollment.
type ProgressService struct {
	source      progressSource
	topics      *TopicResolver
	assignments *AssignmentAggregator
	upcoming    *AssignmentFanoutCache
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         ProgressServiceConfig
}

// ProgressServiceParams groups constructor dependencies.
type ProgressServiceParams struct {
	Source      progressSource
	Topics      *TopicResolver
	Assignments *AssignmentAggregator
	Upcoming    *AssignmentFanoutCache
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      ProgressServiceConfig
}

// NewProgressService constructs a ProgressService with sane defaults.
func NewProgressService(params ProgressServiceParams) *ProgressService {
	cfg := params.Config
	if cfg.AttendancePolicy == nil {
		cfg.AttendancePolicy = PreferPrimary
	}
	if cfg.WindowWeeks <= 0 {
		cfg.WindowWeeks = DefaultWindowWeeks
	}
	if cfg.WindowSessions <= 0 {
		cfg.WindowSessions = DefaultWindowSessions
	}
	cfg.Thresholds = cfg.Thresholds.withDefaults()
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	topics := params.Topics
	if topics == nil {
		topics = NewTopicResolver(TopicResolverParams{Logger: logger})
	}
	assignments := params.Assignments
	if assignments == nil {
		assignments = NewAssignmentAggregator(nil, logger)
	}
	return &ProgressService{
		source:      params.Source,
		topics:      topics,
		assignments: assignments,
		upcoming:    params.Upcoming,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// DefaultWindow returns the configured window for a kind.
func (s *ProgressService) DefaultWindow(kind models.WindowKind) models.WindowMode {
	if kind == models.WindowKindWeeks {
		return models.LastNWeeks(s.cfg.WindowWeeks)
	}
	return models.LastNSessions(s.cfg.WindowSessions)
}

// ResolveSessions builds the ordered, annotated session timeline of a student in a class.
// Individual source failures degrade to empty data; only an unexpected failure of the
// whole run (a panic or the caller's context ending) is returned as an error.
func (s *ProgressService) ResolveSessions(ctx context.Context, classID, studentID, courseID string) (timeline *models.SessionTimeline, err error) {
	classID = strings.TrimSpace(classID)
	studentID = strings.TrimSpace(studentID)
	courseID = strings.TrimSpace(courseID)
	switch {
	case classID == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	case studentID == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	case courseID == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseId is required")
	}

	runID := uuid.NewString()
	logger := s.logger.With(
		zap.String("run_id", runID),
		zap.String("class_id", classID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
	)
	if reqID := requestid.FromContext(ctx); reqID != "" {
		logger = logger.With(zap.String("request_id", reqID))
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session resolution aborted", zap.Any("panic", r))
			timeline = nil
			err = appErrors.CloneWrap(appErrors.ErrSessionsUnavailable, fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()
	var (
		meetings  []models.Meeting
		primary   []models.AttendanceSignal
		secondary []models.AttendanceSignal
		lookup    AssignmentLookup
	)
	var g errgroup.Group
	g.Go(recovered(func() {
		meetings = s.fetchMeetings(ctx, logger, classID)
	}))
	g.Go(recovered(func() {
		primary = s.fetchPrimaryAttendance(ctx, logger, classID, studentID)
	}))
	g.Go(recovered(func() {
		secondary = s.fetchSecondaryAttendance(ctx, logger, courseID, studentID)
	}))
	g.Go(recovered(func() {
		lookup = s.assignments.Aggregate(ctx, studentID, courseID)
	}))
	if waitErr := g.Wait(); waitErr != nil {
		logger.Error("session resolution aborted", zap.Error(waitErr))
		return nil, appErrors.CloneWrap(appErrors.ErrSessionsUnavailable, waitErr)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrSessionsUnavailable, ctxErr)
	}

	sessions := NormalizeSchedule(meetings)
	if stale := StaleAttendanceIDs(sessions, primary, secondary); len(stale) > 0 {
		logger.Debug("dropping attendance for unknown meetings", zap.Strings("meeting_ids", stale))
	}
	reconciled := ReconcileAttendance(sessions, primary, secondary, s.cfg.AttendancePolicy)
	topics, err := s.topics.ResolveAll(ctx, classID, sessions, reconciled.ByMeeting)
	if err != nil {
		logger.Error("topic resolution aborted", zap.Error(err))
		return nil, appErrors.CloneWrap(appErrors.ErrSessionsUnavailable, err)
	}

	unknown, reordered := CrossCheckOrder(sessions, lookup)
	if len(unknown) > 0 {
		logger.Debug("assignment groups for unknown meetings", zap.Strings("meeting_ids", unknown))
	}
	if reordered {
		logger.Debug("assignment group order differs from schedule order")
	}

	for i := range sessions {
		meetingID := sessions[i].Meeting.ID
		if signal, ok := reconciled.ByMeeting[meetingID]; ok {
			signal := signal
			sessions[i].Attendance = &signal
			sessions[i].IsCompleted = signal.Present()
		}
		if topic := topics[i]; topic.Topic != nil {
			sessions[i].CoveredTopic = topic.Topic
			sessions[i].TopicSource = topic.Source
			sessions[i].IsMilestone = IsMilestoneTopic(*topic.Topic)
		}
		sessions[i].Assignments = lookup.For(meetingID)
	}

	timeline = &models.SessionTimeline{
		ClassID:      classID,
		StudentID:    studentID,
		CourseID:     courseID,
		Sessions:     sessions,
		CurrentIndex: ResolveCurrentSession(sessions, reconciled.LastAttended),
		LastAttended: reconciled.LastAttended,
	}
	logger.Info("sessions resolved",
		zap.Int("sessions", len(sessions)),
		zap.Int("current_index", timeline.CurrentIndex),
		zap.Duration("latency", time.Since(start)))
	return timeline, nil
}

// ComputeMetrics derives progress metrics for a window over an already resolved timeline.
func (s *ProgressService) ComputeMetrics(sessions []models.Session, window models.WindowMode) models.ProgressMetrics {
	metrics := ComputeMetrics(sessions, window, s.now(), s.cfg.Thresholds)
	level := "none"
	if metrics.WarningLevel != nil {
		level = string(*metrics.WarningLevel)
	}
	s.metrics.RecordWarningLevel(level)
	return metrics
}

// UpcomingAssignments returns the student's nearest upcoming assignments across classes.
// A failed fan-out degrades to an empty list; it is not cached, so the next call retries.
func (s *ProgressService) UpcomingAssignments(ctx context.Context, studentID string, limit int) ([]models.Assignment, bool, error) {
	if s.upcoming == nil {
		return nil, false, appErrors.Clone(appErrors.ErrInternal, "upcoming assignments unavailable")
	}
	items, hit, err := s.upcoming.Get(ctx, studentID, limit)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrValidation.Code || ctx.Err() != nil {
			return nil, false, err
		}
		s.logger.Warn("upcoming assignments degraded", zap.String("student_id", studentID), zap.Error(err))
		return []models.Assignment{}, false, nil
	}
	return items, hit, nil
}

// RefreshUpcoming drops the student's cached upcoming lists so the next read recomputes them.
func (s *ProgressService) RefreshUpcoming(ctx context.Context, studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if s.upcoming == nil {
		return appErrors.Clone(appErrors.ErrInternal, "upcoming assignments unavailable")
	}
	s.upcoming.Invalidate(ctx, studentID)
	s.logger.Info("upcoming assignments invalidated", zap.String("student_id", studentID))
	return nil
}

func (s *ProgressService) fetchMeetings(ctx context.Context, logger *zap.Logger, classID string) []models.Meeting {
	if s.source == nil {
		return nil
	}
	meetings, err := s.source.GetMeetings(ctx, classID)
	if err != nil {
		s.degrade(logger, degradedMeetings, err)
		return nil
	}
	return meetings
}

func (s *ProgressService) fetchPrimaryAttendance(ctx context.Context, logger *zap.Logger, classID, studentID string) []models.AttendanceSignal {
	if s.source == nil {
		return nil
	}
	summaries, err := s.source.GetAttendanceSummary(ctx, studentID)
	if err != nil {
		s.degrade(logger, degradedAttendanceSummary, err)
		return nil
	}
	var records []models.AttendanceSignal
	for _, summary := range summaries {
		if summary.ClassID == classID {
			records = append(records, summary.Records...)
		}
	}
	return records
}

func (s *ProgressService) fetchSecondaryAttendance(ctx context.Context, logger *zap.Logger, courseID, studentID string) []models.AttendanceSignal {
	if s.source == nil {
		return nil
	}
	records, err := s.source.GetCourseAttendance(ctx, courseID, studentID)
	if err != nil {
		s.degrade(logger, degradedCourseAttendance, err)
		return nil
	}
	return records
}

// recovered turns a panic in a fetch goroutine into an error for the group.
func recovered(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		fn()
		return nil
	}
}

func (s *ProgressService) degrade(logger *zap.Logger, source string, err error) {
	logger.Warn("source fetch failed, using empty default", zap.String("source", source), zap.Error(err))
	s.metrics.RecordDegradedSource(source)
}
