package aws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/krux/aws-analysis-tools/internal/models"
	"github.com/krux/aws-analysis-tools/pkg/utils"
)

// EC2API is the subset of the EC2 client used to find scheduled events
type EC2API interface {
	ec2.DescribeInstanceStatusAPIClient
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// ClientFactory returns the EC2 client for a region
type ClientFactory func(region string) EC2API

// EventSource reads scheduled maintenance events from EC2, one region at a time
type EventSource struct {
	homeRegion string
	newClient  ClientFactory
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[string]EC2API
}

// EventSourceOption configures an EventSource
type EventSourceOption func(*EventSource)

// WithLogger sets the logger used for API calls
func WithLogger(logger *slog.Logger) EventSourceOption {
	return func(s *EventSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClientFactory replaces the SDK client constructor
func WithClientFactory(f ClientFactory) EventSourceOption {
	return func(s *EventSource) {
		s.newClient = f
	}
}

// NewEventSource loads the default AWS configuration and lists regions from homeRegion
func NewEventSource(ctx context.Context, homeRegion string, opts ...EventSourceOption) (*EventSource, error) {
	if homeRegion == "" {
		homeRegion = utils.GetDefaultRegion()
	}

	s := &EventSource{
		homeRegion: homeRegion,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		clients:    make(map[string]EC2API),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newClient == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(homeRegion))
		if err != nil {
			return nil, fmt.Errorf("error loading AWS config: %w", err)
		}
		s.newClient = func(region string) EC2API {
			return ec2.NewFromConfig(cfg, func(o *ec2.Options) {
				o.Region = region
			})
		}
	}
	return s, nil
}

func (s *EventSource) client(region string) EC2API {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[region]
	if !ok {
		c = s.newClient(region)
		s.clients[region] = c
	}
	return c
}

// Regions returns the regions enabled for the account, in API order
func (s *EventSource) Regions(ctx context.Context) ([]string, error) {
	result, err := s.client(s.homeRegion).DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("error querying regions from %s: %w", s.homeRegion, err)
	}

	regions := make([]string, 0, len(result.Regions))
	for _, r := range result.Regions {
		if name := utils.SafeDeref(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	s.logger.Debug("Listed regions", "home", s.homeRegion, "count", len(regions))
	return regions, nil
}

// InstanceStatuses returns every instance status in region that carries events
func (s *EventSource) InstanceStatuses(ctx context.Context, region string) ([]models.InstanceStatus, error) {
	paginator := ec2.NewDescribeInstanceStatusPaginator(s.client(region), &ec2.DescribeInstanceStatusInput{})

	var statuses []models.InstanceStatus
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying instance status in %s: %w", region, err)
		}

		for _, status := range page.InstanceStatuses {
			if len(status.Events) == 0 {
				continue
			}
			statuses = append(statuses, models.InstanceStatus{
				Region:           region,
				InstanceID:       utils.SafeDeref(status.InstanceId),
				AvailabilityZone: utils.SafeDeref(status.AvailabilityZone),
				Events:           convertEvents(status.Events),
			})
		}
	}
	return statuses, nil
}

// Instance looks up a single instance by id
func (s *EventSource) Instance(ctx context.Context, region, instanceID string) (models.Instance, error) {
	result, err := s.client(region).DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return models.Instance{}, fmt.Errorf("error querying EC2 instance %s: %w", instanceID, err)
	}

	for _, reservation := range result.Reservations {
		for _, instance := range reservation.Instances {
			if utils.SafeDeref(instance.InstanceId) != instanceID {
				continue
			}
			return convertInstance(region, instance), nil
		}
	}
	return models.Instance{}, fmt.Errorf("instance %s not found in %s", instanceID, region)
}

func convertEvents(events []types.InstanceStatusEvent) []models.MaintenanceEvent {
	converted := make([]models.MaintenanceEvent, 0, len(events))
	for _, e := range events {
		converted = append(converted, models.MaintenanceEvent{
			Code:        string(e.Code),
			Description: utils.SafeDeref(e.Description),
			NotBefore:   aws.ToTime(e.NotBefore),
			NotAfter:    e.NotAfter,
		})
	}
	return converted
}

func convertInstance(region string, instance types.Instance) models.Instance {
	var zone string
	if instance.Placement != nil {
		zone = utils.SafeDeref(instance.Placement.AvailabilityZone)
	}
	return models.Instance{
		ID:        utils.SafeDeref(instance.InstanceId),
		Name:      utils.GetName(instance.Tags),
		Placement: zone,
		Region:    region,
		Tags:      utils.GetTagsMap(instance.Tags),
	}
}
