package models

import "time"

// Instance represents the EC2 instance an event is scheduled against
type Instance struct {
	ID        string
	Name      string // Name tag, empty when untagged
	Placement string // availability zone, e.g. us-east-1a
	Region    string
	Tags      map[string]string
}

// DisplayName returns the Name tag, falling back to the instance ID
func (i Instance) DisplayName() string {
	if i.Name == "" {
		return i.ID
	}
	return i.Name
}

// MaintenanceEvent represents a scheduled event reported by DescribeInstanceStatus
type MaintenanceEvent struct {
	Code        string
	Description string
	NotBefore   time.Time
	NotAfter    *time.Time // nil when the event is open-ended
}

// InstanceStatus groups the scheduled events of a single instance
type InstanceStatus struct {
	Region           string
	InstanceID       string
	AvailabilityZone string
	Events           []MaintenanceEvent
}
