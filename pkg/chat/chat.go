package chat

import "context"

// Poster delivers a single message to a chat room
type Poster interface {
	Post(ctx context.Context, body, displayName string, tags []string) error
}
