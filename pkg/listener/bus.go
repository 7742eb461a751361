package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krux/aws-analysis-tools/internal/models"
)

// DefaultSubjectPrefix prefixes every subject the bus listener publishes to
const DefaultSubjectPrefix = "ec2.events"

// Publisher is the part of a NATS connection the bus listener needs.
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// EventMessage is published to {prefix}.{region} for every event
type EventMessage struct {
	Region      string            `json:"region"`
	Zone        string            `json:"zone"`
	InstanceID  string            `json:"instance_id"`
	Name        string            `json:"name,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Code        string            `json:"code"`
	Description string            `json:"description"`
	NotBefore   time.Time         `json:"not_before"`
	NotAfter    *time.Time        `json:"not_after,omitempty"`
}

// CompleteMessage is published to {prefix}.complete once the check is over
type CompleteMessage struct {
	Events      int       `json:"events"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BusListener publishes events to a message bus as they are found
type BusListener struct {
	pub    Publisher
	prefix string
	now    func() time.Time
	events int
}

// BusOption configures a BusListener
type BusOption func(*BusListener)

// WithSubjectPrefix sets the subject prefix
func WithSubjectPrefix(prefix string) BusOption {
	return func(l *BusListener) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithBusClock sets the clock stamped on the completion message
func WithBusClock(now func() time.Time) BusOption {
	return func(l *BusListener) {
		l.now = now
	}
}

// NewBusListener creates a bus listener publishing through pub
func NewBusListener(pub Publisher, opts ...BusOption) *BusListener {
	l := &BusListener{
		pub:    pub,
		prefix: DefaultSubjectPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements checker.Named
func (l *BusListener) Name() string { return "nats" }

// HandleEvent publishes the event to the subject of its region
func (l *BusListener) HandleEvent(_ context.Context, instance models.Instance, event models.MaintenanceEvent) error {
	msg := EventMessage{
		Region:      instance.Region,
		Zone:        instance.Placement,
		InstanceID:  instance.ID,
		Name:        instance.Name,
		Tags:        instance.Tags,
		Code:        event.Code,
		Description: event.Description,
		NotBefore:   event.NotBefore,
		NotAfter:    event.NotAfter,
	}
	if err := l.publish(l.prefix+"."+instance.Region, msg); err != nil {
		return err
	}
	l.events++
	return nil
}

// HandleComplete publishes the run summary and flushes the connection
func (l *BusListener) HandleComplete(_ context.Context) error {
	msg := CompleteMessage{Events: l.events, GeneratedAt: l.now().UTC()}
	if err := l.publish(l.prefix+".complete", msg); err != nil {
		return err
	}
	if err := l.pub.Flush(); err != nil {
		return fmt.Errorf("error flushing bus connection: %w", err)
	}
	return nil
}

func (l *BusListener) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding message for %s: %w", subject, err)
	}
	if err := l.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}
	return nil
}
