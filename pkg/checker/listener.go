package checker

import (
	"context"
	"fmt"

	"github.com/krux/aws-analysis-tools/internal/models"
)

// Listener receives every applicable maintenance event found by a Checker.
// HandleComplete is called exactly once after all regions have been scanned,
// whether or not any event was found. Listeners are single use: a new set
// must be built for every check.
type Listener interface {
	HandleEvent(ctx context.Context, instance models.Instance, event models.MaintenanceEvent) error
	HandleComplete(ctx context.Context) error
}

// Named is implemented by listeners that want a readable name in logs and errors
type Named interface {
	Name() string
}

func listenerName(l Listener) string {
	if n, ok := l.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", l)
}
