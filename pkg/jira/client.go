package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/krux/aws-analysis-tools/pkg/transport"
)

// Issue is a search hit. Jira omits comment bodies from search results.
type Issue struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Comment is a single issue comment
type Comment struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	MaxResults int      `json:"maxResults,omitempty"`
}

type searchResponse struct {
	Issues []Issue `json:"issues"`
}

type commentsResponse struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Comments   []Comment `json:"comments"`
}

type addCommentRequest struct {
	Body string `json:"body"`
}

// Client talks to the Jira REST API v2
type Client struct {
	baseURL string
	http    *transport.Client
}

// NewClient creates a Jira client authenticated with basic credentials
func NewClient(baseURL, username, password string, opts ...transport.Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("jira base url is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("jira username and password are required")
	}
	opts = append(opts, transport.WithBasicAuth(username, password))
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    transport.New(opts...),
	}, nil
}

// Search returns the issues matching jql
func (c *Client) Search(ctx context.Context, jql string) ([]Issue, error) {
	var resp searchResponse
	req := searchRequest{JQL: jql, Fields: []string{}}
	// search is read only, so it is retried even though it is a POST
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/rest/api/2/search", req, &resp, transport.Idempotent()); err != nil {
		return nil, fmt.Errorf("error searching issues: %w", err)
	}
	return resp.Issues, nil
}

// Comments returns every comment on the issue, following the endpoint's paging
func (c *Client) Comments(ctx context.Context, issueKey string) ([]Comment, error) {
	var comments []Comment
	for {
		var resp commentsResponse
		pageURL := fmt.Sprintf("%s?startAt=%d", c.commentURL(issueKey), len(comments))
		if err := c.http.DoJSON(ctx, http.MethodGet, pageURL, nil, &resp); err != nil {
			return nil, fmt.Errorf("error fetching comments of %s: %w", issueKey, err)
		}
		comments = append(comments, resp.Comments...)

		if len(resp.Comments) == 0 || len(comments) >= resp.Total {
			return comments, nil
		}
	}
}

// AddComment appends a comment to the issue. It is sent once: a lost
// response must not turn into a duplicate comment.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	if err := c.http.DoJSON(ctx, http.MethodPost, c.commentURL(issueKey), addCommentRequest{Body: body}, nil); err != nil {
		return fmt.Errorf("error commenting on %s: %w", issueKey, err)
	}
	return nil
}

func (c *Client) commentURL(issueKey string) string {
	return fmt.Sprintf("%s/rest/api/2/issue/%s/comment", c.baseURL, url.PathEscape(issueKey))
}
