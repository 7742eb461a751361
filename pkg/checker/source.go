package checker

import (
	"context"
	"log/slog"

	"github.com/krux/aws-analysis-tools/internal/models"
)

// Cloud is the provider capability the checker scans
type Cloud interface {
	Regions(ctx context.Context) ([]string, error)
	InstanceStatuses(ctx context.Context, region string) ([]models.InstanceStatus, error)
	Instance(ctx context.Context, region, instanceID string) (models.Instance, error)
}

// eventSource turns the Cloud into a filtered stream of (instance, event) pairs
type eventSource struct {
	cloud   Cloud
	filters Filters
	logger  *slog.Logger
}

// regions returns the regions to scan, in provider order
func (s *eventSource) regions(ctx context.Context) ([]string, error) {
	all, err := s.cloud.Regions(ctx)
	if err != nil {
		return nil, err
	}

	var allowed []string
	for _, region := range all {
		if s.filters.RegionAllowed(region) {
			allowed = append(allowed, region)
		}
	}
	return allowed, nil
}

// eachEvent calls fn for every applicable event in region. A failure to query
// the region is logged and swallowed; only errors returned by fn stop the walk.
func (s *eventSource) eachEvent(ctx context.Context, region string, fn func(models.Instance, models.MaintenanceEvent) error) error {
	s.logger.Debug("Checking region", "region", region)

	statuses, err := s.cloud.InstanceStatuses(ctx, region)
	if err != nil {
		s.logger.Error("Unable to query region", "region", region, "err", err)
		return nil
	}

	for _, status := range statuses {
		var events []models.MaintenanceEvent
		for _, event := range status.Events {
			if s.filters.Applicable(event) {
				events = append(events, event)
			}
		}
		if len(events) == 0 {
			continue
		}

		instance, err := s.cloud.Instance(ctx, region, status.InstanceID)
		if err != nil {
			s.logger.Error("Unable to look up instance", "region", region, "instance", status.InstanceID, "err", err)
			continue
		}

		for _, event := range events {
			s.logger.Debug("Found event", "instance", instance.DisplayName(), "description", event.Description)
			if err := fn(instance, event); err != nil {
				return err
			}
		}
	}
	return nil
}
