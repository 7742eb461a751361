package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/krux/aws-analysis-tools/pkg/transport"
)

// DefaultFlowdockURL is the public Flowdock API endpoint
const DefaultFlowdockURL = "https://api.flowdock.com"

// Flowdock posts chat messages to a flow identified by its API token
type Flowdock struct {
	baseURL string
	token   string
	client  *transport.Client
}

type flowdockMessage struct {
	Content          string   `json:"content"`
	ExternalUserName string   `json:"external_user_name"`
	Tags             []string `json:"tags,omitempty"`
}

// NewFlowdock creates a Flowdock poster. An empty baseURL selects DefaultFlowdockURL.
func NewFlowdock(baseURL, token string, client *transport.Client) (*Flowdock, error) {
	if token == "" {
		return nil, errors.New("flowdock token is required")
	}
	if baseURL == "" {
		baseURL = DefaultFlowdockURL
	}
	if client == nil {
		client = transport.New()
	}
	return &Flowdock{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}, nil
}

// Post sends body as a chat message shown as coming from displayName
func (f *Flowdock) Post(ctx context.Context, body, displayName string, tags []string) error {
	endpoint := fmt.Sprintf("%s/v1/messages/chat/%s", f.baseURL, url.PathEscape(f.token))
	msg := flowdockMessage{
		Content: body,
		// Flowdock rejects user names containing whitespace
		ExternalUserName: strings.Join(strings.Fields(displayName), "-"),
		Tags:             tags,
	}
	if err := f.client.DoJSON(ctx, http.MethodPost, endpoint, msg, nil); err != nil {
		return fmt.Errorf("error posting to flowdock: %w", err)
	}
	return nil
}
