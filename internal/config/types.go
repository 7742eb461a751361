package config

// Config is the full configuration of one ec2-events run
type Config struct {
	Region   string   `mapstructure:"region"`
	Regions  []string `mapstructure:"regions"`
	Debug    bool     `mapstructure:"debug"`
	Quiet    bool     `mapstructure:"quiet"`
	FailFast bool     `mapstructure:"fail_fast"`

	Chat ChatConfig `mapstructure:"chat"`
	Jira JiraConfig `mapstructure:"jira"`
	NATS NATSConfig `mapstructure:"nats"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// ChatConfig holds the chat listener settings. Flowdock and Slack are
// alternatives; Flowdock wins when both are set.
type ChatConfig struct {
	FlowdockToken        string `mapstructure:"flowdock_token"`
	FlowdockURL          string `mapstructure:"flowdock_url"`
	SlackWebhookURL      string `mapstructure:"slack_webhook_url"`
	UrgentThresholdHours int    `mapstructure:"urgent_threshold_hours"`
	DisplayName          string `mapstructure:"display_name"`
}

// Enabled reports whether a chat transport is configured
func (c ChatConfig) Enabled() bool {
	return c.FlowdockToken != "" || c.SlackWebhookURL != ""
}

// JiraConfig holds the issue tracker listener settings
type JiraConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	BaseURL      string `mapstructure:"base_url"`
	LookbackDays int    `mapstructure:"lookback_days"`
	IssueType    string `mapstructure:"issue_type"`
}

// Enabled reports whether any Jira credential is set
func (c JiraConfig) Enabled() bool {
	return c.Username != "" || c.Password != "" || c.BaseURL != ""
}

// NATSConfig holds the bus listener settings
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Enabled reports whether a NATS server is configured
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// HTTPConfig tunes the chat and Jira transports
type HTTPConfig struct {
	Attempts uint `mapstructure:"attempts"`
}
