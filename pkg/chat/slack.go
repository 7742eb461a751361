package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/krux/aws-analysis-tools/pkg/transport"
)

// Slack posts chat messages to an incoming webhook
type Slack struct {
	webhookURL string
	client     *transport.Client
}

type slackMessage struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// NewSlack creates a Slack poster for the given incoming webhook URL
func NewSlack(webhookURL string, client *transport.Client) (*Slack, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	if client == nil {
		client = transport.New()
	}
	return &Slack{webhookURL: webhookURL, client: client}, nil
}

// Post sends body to the webhook. Slack has no message tags, so they are
// appended as a trailing line.
func (s *Slack) Post(ctx context.Context, body, displayName string, tags []string) error {
	text := body
	if len(tags) > 0 {
		text += "\n" + strings.Join(tags, " ")
	}
	msg := slackMessage{Text: text, Username: displayName}
	if err := s.client.DoJSON(ctx, http.MethodPost, s.webhookURL, msg, nil); err != nil {
		return fmt.Errorf("error posting to slack: %w", err)
	}
	return nil
}
