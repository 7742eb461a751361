package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/krux/aws-analysis-tools/internal/models"
	"github.com/krux/aws-analysis-tools/pkg/chat"
	"github.com/krux/aws-analysis-tools/pkg/stats"
	"github.com/krux/aws-analysis-tools/pkg/utils"
)

const (
	// DefaultUrgentThresholdHours is how close an event has to be to be escalated
	DefaultUrgentThresholdHours = 120

	// DefaultDisplayName is the name chat posts appear under
	DefaultDisplayName = "ec2-event-checker"
)

// DefaultChatTags are attached to every chat post
var DefaultChatTags = []string{"#ec2_events"}

// ChatListener collects events into a regular and an urgent batch and posts
// each non-empty batch once the check completes
type ChatListener struct {
	poster      chat.Poster
	threshold   int
	displayName string
	tags        []string
	now         func() time.Time
	stats       *stats.Counters
	logger      *slog.Logger

	regular []string
	urgent  []string
}

// ChatOption configures a ChatListener
type ChatOption func(*ChatListener)

// WithUrgentThreshold sets the number of hours under which events are escalated
func WithUrgentThreshold(hours int) ChatOption {
	return func(l *ChatListener) {
		l.threshold = hours
	}
}

// WithDisplayName sets the name posts appear under
func WithDisplayName(name string) ChatOption {
	return func(l *ChatListener) {
		if name != "" {
			l.displayName = name
		}
	}
}

// WithTags replaces the default chat tags
func WithTags(tags ...string) ChatOption {
	return func(l *ChatListener) {
		l.tags = tags
	}
}

// WithChatClock sets the clock used to classify events
func WithChatClock(now func() time.Time) ChatOption {
	return func(l *ChatListener) {
		l.now = now
	}
}

// WithStats sets the counters incremented for every event
func WithStats(counters *stats.Counters) ChatOption {
	return func(l *ChatListener) {
		l.stats = counters
	}
}

// WithChatLogger sets the listener's logger
func WithChatLogger(logger *slog.Logger) ChatOption {
	return func(l *ChatListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewChatListener creates a chat listener posting through poster
func NewChatListener(poster chat.Poster, opts ...ChatOption) *ChatListener {
	l := &ChatListener{
		poster:      poster,
		threshold:   DefaultUrgentThresholdHours,
		displayName: DefaultDisplayName,
		tags:        DefaultChatTags,
		now:         time.Now,
		stats:       stats.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements checker.Named
func (l *ChatListener) Name() string { return "chat" }

// Stats returns the listener's event counters
func (l *ChatListener) Stats() *stats.Counters { return l.stats }

// HandleEvent counts the event and queues its message in the matching batch
func (l *ChatListener) HandleEvent(_ context.Context, instance models.Instance, event models.MaintenanceEvent) error {
	l.stats.Incr(StatKey(instance.Region, event.Code))

	msg := FormatChatMessage(instance, event)
	deadline := event.NotBefore.Add(-utils.HoursToDuration(l.threshold))
	if deadline.After(l.now()) {
		l.regular = append(l.regular, msg)
	} else {
		l.urgent = append(l.urgent, msg)
	}
	return nil
}

// HandleComplete posts the regular batch, then the urgent batch. Empty batches
// are not posted. Both posts are attempted even if the first fails.
func (l *ChatListener) HandleComplete(ctx context.Context) error {
	var errs []error
	if len(l.regular) > 0 {
		if err := l.post(ctx, strings.Join(l.regular, "\n")); err != nil {
			errs = append(errs, fmt.Errorf("error posting events: %w", err))
		}
	}
	if len(l.urgent) > 0 {
		body := fmt.Sprintf("@team, the following will happen within %d hours:\n%s", l.threshold, strings.Join(l.urgent, "\n"))
		if err := l.post(ctx, body); err != nil {
			errs = append(errs, fmt.Errorf("error posting urgent events: %w", err))
		}
	}
	l.regular, l.urgent = nil, nil
	return errors.Join(errs...)
}

func (l *ChatListener) post(ctx context.Context, body string) error {
	l.logger.Debug("Posting to chat", "lines", strings.Count(body, "\n")+1)
	return l.poster.Post(ctx, body, l.displayName, l.tags)
}

// StatKey is the counter name for an event of code in region
func StatKey(region, code string) string {
	return fmt.Sprintf("event.%s.%s", region, code)
}

// FormatChatMessage renders one event as a chat line
func FormatChatMessage(instance models.Instance, event models.MaintenanceEvent) string {
	return fmt.Sprintf("%s: %s (%s) - %s between %s and %s",
		instance.Placement,
		instance.DisplayName(),
		instance.ID,
		event.Description,
		utils.FormatEventTime(event.NotBefore),
		utils.FormatEventEnd(event.NotAfter),
	)
}
