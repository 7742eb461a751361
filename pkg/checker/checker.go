package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/krux/aws-analysis-tools/internal/models"
)

// Name identifies the checker in logs and chat posts
const Name = "ec2-event-checker"

var (
	// ErrAlreadyRun is returned when Check is called on a used Checker
	ErrAlreadyRun = errors.New("checker has already run")

	// ErrNotIdle is returned when a listener is added after the check started
	ErrNotIdle = errors.New("listeners can only be added before the check starts")
)

type state int

const (
	stateIdle state = iota
	stateScanning
	stateCompleting
	stateDone
)

// Checker scans every reachable region for scheduled maintenance events and
// fans each applicable one out to its listeners, in registration order.
// A Checker runs once.
type Checker struct {
	source    *eventSource
	listeners []Listener
	logger    *slog.Logger
	failFast  bool

	state  state
	events int
}

// Option configures a Checker
type Option func(*Checker)

// WithLogger sets the logger used for scan progress and failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFilters replaces the default region and event filters. Patterns left
// unset in f keep their defaults.
func WithFilters(f Filters) Option {
	return func(c *Checker) {
		c.source.filters = f.withDefaults()
	}
}

// WithFailFast aborts the run on the first listener error instead of
// isolating it. No completion is delivered after such an abort.
func WithFailFast() Option {
	return func(c *Checker) {
		c.failFast = true
	}
}

// New creates a Checker reading from cloud
func New(cloud Cloud, opts ...Option) *Checker {
	c := &Checker{
		source: &eventSource{
			cloud:   cloud,
			filters: DefaultFilters(),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.source.logger = c.logger
	return c
}

// AddListener registers l. Listeners can only be added before Check.
func (c *Checker) AddListener(l Listener) error {
	if c.state != stateIdle {
		return ErrNotIdle
	}
	c.listeners = append(c.listeners, l)
	return nil
}

// Events returns how many applicable events were forwarded to the listeners
func (c *Checker) Events() int {
	return c.events
}

// NotifyEvent hands the event to every listener. Unless the checker fails
// fast, a failing listener is logged and skipped and the others still run;
// all failures are returned joined.
func (c *Checker) NotifyEvent(ctx context.Context, instance models.Instance, event models.MaintenanceEvent) error {
	var errs []error
	for _, l := range c.listeners {
		if err := l.HandleEvent(ctx, instance, event); err != nil {
			err = fmt.Errorf("listener %s failed on %s: %w", listenerName(l), instance.ID, err)
			if c.failFast {
				return err
			}
			c.logger.Error("Listener failed to handle event", "listener", listenerName(l), "instance", instance.ID, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyComplete signals every listener that the scan is over
func (c *Checker) NotifyComplete(ctx context.Context) error {
	var errs []error
	for _, l := range c.listeners {
		if err := l.HandleComplete(ctx); err != nil {
			err = fmt.Errorf("listener %s failed to complete: %w", listenerName(l), err)
			if c.failFast {
				return err
			}
			c.logger.Error("Listener failed to complete", "listener", listenerName(l), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Check scans all regions, notifies the listeners of every applicable event
// and then signals completion once. Region query failures are logged and
// skipped. Listener failures are returned after completion has been delivered.
func (c *Checker) Check(ctx context.Context) error {
	if c.state != stateIdle {
		return ErrAlreadyRun
	}
	c.state = stateScanning
	defer func() { c.state = stateDone }()

	regions, err := c.source.regions(ctx)
	if err != nil {
		return fmt.Errorf("error listing regions: %w", err)
	}

	var errs []error
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.source.eachEvent(ctx, region, func(instance models.Instance, event models.MaintenanceEvent) error {
			c.events++
			if err := c.NotifyEvent(ctx, instance, event); err != nil {
				if c.failFast {
					return err
				}
				errs = append(errs, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.state = stateCompleting
	if err := c.NotifyComplete(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
