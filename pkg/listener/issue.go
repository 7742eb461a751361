package listener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/krux/aws-analysis-tools/internal/models"
	"github.com/krux/aws-analysis-tools/pkg/jira"
	"github.com/krux/aws-analysis-tools/pkg/utils"
)

const (
	// DefaultLookbackDays bounds how old a matching maintenance issue may be
	DefaultLookbackDays = 30

	// DefaultIssueType is the issue type maintenance tickets are filed under
	DefaultIssueType = "Maintenance Task"

	// DefaultTimezone is the zone downtime windows are written in
	DefaultTimezone = "America/Los_Angeles"

	// CommentTimeLayout formats downtime boundaries, e.g. 2030-01-01 00:00:00 PST
	CommentTimeLayout = "2006-01-02 15:04:05 MST"

	jqlDateLayout = "2006/01/02"
)

// IssueTracker is the part of the issue tracker the listener needs
type IssueTracker interface {
	Search(ctx context.Context, jql string) ([]jira.Issue, error)
	Comments(ctx context.Context, issueKey string) ([]jira.Comment, error)
	AddComment(ctx context.Context, issueKey, body string) error
}

// IssueListener comments on recent maintenance issues that mention an instance
// with an event, once per issue
type IssueListener struct {
	tracker   IssueTracker
	lookback  int
	issueType string
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// IssueOption configures an IssueListener
type IssueOption func(*IssueListener)

// WithLookbackDays sets how far back issues are searched
func WithLookbackDays(days int) IssueOption {
	return func(l *IssueListener) {
		l.lookback = days
	}
}

// WithIssueType sets the issue type searched for
func WithIssueType(issueType string) IssueOption {
	return func(l *IssueListener) {
		if issueType != "" {
			l.issueType = issueType
		}
	}
}

// WithLocation sets the timezone downtime windows are written in
func WithLocation(loc *time.Location) IssueOption {
	return func(l *IssueListener) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithIssueClock sets the clock the search window is computed from
func WithIssueClock(now func() time.Time) IssueOption {
	return func(l *IssueListener) {
		l.now = now
	}
}

// WithIssueLogger sets the listener's logger
func WithIssueLogger(logger *slog.Logger) IssueOption {
	return func(l *IssueListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewIssueListener creates an issue listener on tracker
func NewIssueListener(tracker IssueTracker, opts ...IssueOption) (*IssueListener, error) {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone %s: %w", DefaultTimezone, err)
	}
	l := &IssueListener{
		tracker:   tracker,
		lookback:  DefaultLookbackDays,
		issueType: DefaultIssueType,
		location:  loc,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name implements checker.Named
func (l *IssueListener) Name() string { return "jira" }

// HandleEvent adds a downtime comment to every matching issue that does not
// mention the instance yet
func (l *IssueListener) HandleEvent(ctx context.Context, instance models.Instance, event models.MaintenanceEvent) error {
	issues, err := l.tracker.Search(ctx, l.query(instance.ID))
	if err != nil {
		return err
	}

	name := instance.DisplayName()
	for _, issue := range issues {
		comments, err := l.tracker.Comments(ctx, issue.Key)
		if err != nil {
			return err
		}
		if mentions(comments, name) {
			continue
		}

		l.logger.Info("Adding comment", "issue", issue.Key, "instance", name)
		if err := l.tracker.AddComment(ctx, issue.Key, l.comment(name, event)); err != nil {
			return err
		}
	}
	return nil
}

// HandleComplete does nothing; comments are written as events arrive
func (l *IssueListener) HandleComplete(_ context.Context) error {
	return nil
}

func (l *IssueListener) query(instanceID string) string {
	since := utils.DaysBefore(l.now(), l.lookback).In(l.location)
	return fmt.Sprintf(`description ~ "%s" AND type = "%s" AND createdDate >= "%s"`,
		jqlEscape(instanceID), jqlEscape(l.issueType), since.Format(jqlDateLayout))
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// jqlEscape makes s safe inside a double quoted JQL string
func jqlEscape(s string) string {
	return jqlEscaper.Replace(s)
}

func (l *IssueListener) comment(name string, event models.MaintenanceEvent) string {
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, l.location)
	if event.NotAfter != nil {
		end = event.NotAfter.In(l.location)
	}
	return fmt.Sprintf("%s\r\n\r\nPlease schedule downtime from %s to %s.",
		name,
		event.NotBefore.In(l.location).Format(CommentTimeLayout),
		end.Format(CommentTimeLayout),
	)
}

func mentions(comments []jira.Comment, name string) bool {
	for _, c := range comments {
		if strings.Contains(c.Body, name) {
			return true
		}
	}
	return false
}
