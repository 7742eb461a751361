package main

import (
	"io"
	"log/slog"

	"github.com/krux/aws-analysis-tools/internal/config"
	"github.com/krux/aws-analysis-tools/pkg/chat"
	"github.com/krux/aws-analysis-tools/pkg/checker"
	"github.com/krux/aws-analysis-tools/pkg/jira"
	"github.com/krux/aws-analysis-tools/pkg/listener"
	"github.com/krux/aws-analysis-tools/pkg/transport"
)

// buildListeners creates the listeners enabled by cfg, in fan-out order:
// report, chat, jira, nats. pub is nil when no bus is configured.
func buildListeners(cfg *config.Config, logger *slog.Logger, out io.Writer, pub listener.Publisher) ([]checker.Listener, error) {
	var listeners []checker.Listener
	retryOpt := transport.WithRetry(cfg.HTTP.Attempts, transport.DefaultRetryDelay)

	if !cfg.Quiet {
		listeners = append(listeners, listener.NewReportListener(out))
	}

	if cfg.Chat.Enabled() {
		poster, err := newPoster(cfg.Chat, transport.New(retryOpt))
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, listener.NewChatListener(poster,
			listener.WithUrgentThreshold(cfg.Chat.UrgentThresholdHours),
			listener.WithDisplayName(cfg.Chat.DisplayName),
			listener.WithChatLogger(logger),
		))
	}

	if cfg.Jira.Enabled() {
		client, err := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.Username, cfg.Jira.Password, retryOpt)
		if err != nil {
			return nil, err
		}
		issues, err := listener.NewIssueListener(client,
			listener.WithLookbackDays(cfg.Jira.LookbackDays),
			listener.WithIssueType(cfg.Jira.IssueType),
			listener.WithIssueLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, issues)
	}

	if pub != nil {
		listeners = append(listeners, listener.NewBusListener(pub, listener.WithSubjectPrefix(cfg.NATS.SubjectPrefix)))
	}

	return listeners, nil
}

func newPoster(cfg config.ChatConfig, client *transport.Client) (chat.Poster, error) {
	if cfg.FlowdockToken != "" {
		return chat.NewFlowdock(cfg.FlowdockURL, cfg.FlowdockToken, client)
	}
	return chat.NewSlack(cfg.SlackWebhookURL, client)
}
