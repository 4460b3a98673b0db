package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progress-api/pkg/config"
	"github.com/noah-isme/sma-progress-api/pkg/middleware/requestid"
)

// Source labels used for metrics and logs.
const (
	SourceMeetings           = "meetings"
	SourceCoveredTopic       = "covered_topic"
	SourceAttendanceSummary  = "attendance_summary"
	SourceCourseAttendance   = "course_attendance"
	SourceCourseAssignments  = "course_assignments"
	SourceStudentClasses     = "student_classes"
	SourceMeetingAssignments = "meeting_assignments"
)

const maxErrorBody = 512

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstream(source, outcome string, duration time.Duration)
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s responded %d: %s", e.Source, e.StatusCode, e.Body)
}

// NotFound reports whether the upstream answered 404.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client talks JSON over HTTP to the academic backend. It never retries; each call is
// bounded by the configured timeout and a failure is final for that call.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// ClientParams groups constructor dependencies.
type ClientParams struct {
	Config     config.UpstreamConfig
	HTTPClient *http.Client
	Observer   Observer
	Logger     *zap.Logger
}

// NewClient constructs an upstream client.
func NewClient(params ClientParams) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  params.Config.BaseURL,
		token:    params.Config.Token,
		http:     httpClient,
		observer: params.Observer,
		logger:   logger,
	}
}

func (c *Client) getJSON(ctx context.Context, source, path string, dest interface{}) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(source, outcome, time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("build %s request: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("call %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		outcome = fmt.Sprintf("status_%d", resp.StatusCode)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		outcome = "decode_error"
		return fmt.Errorf("decode %s response: %w", source, err)
	}
	c.logger.Debug("upstream call", zap.String("source", source), zap.String("path", path), zap.Duration("latency", time.Since(start)))
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
