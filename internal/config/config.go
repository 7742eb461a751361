package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. EC2_EVENTS_JIRA_PASSWORD
const EnvPrefix = "EC2_EVENTS"

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"region":                 "region",
	"regions":                "regions",
	"debug":                  "debug",
	"quiet":                  "quiet",
	"fail-fast":              "fail_fast",
	"flowdock-token":         "chat.flowdock_token",
	"flowdock-url":           "chat.flowdock_url",
	"slack-webhook-url":      "chat.slack_webhook_url",
	"urgent-threshold-hours": "chat.urgent_threshold_hours",
	"display-name":           "chat.display_name",
	"jira-username":          "jira.username",
	"jira-password":          "jira.password",
	"jira-base-url":          "jira.base_url",
	"jira-lookback-days":     "jira.lookback_days",
	"jira-issue-type":        "jira.issue_type",
	"nats-url":               "nats.url",
	"nats-subject-prefix":    "nats.subject_prefix",
	"http-attempts":          "http.attempts",
}

// New returns a viper instance with defaults and environment lookup set up
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// BindFlags binds every known flag present in flags to its configuration key
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and returns the merged configuration.
// Flags take precedence over the environment, which takes precedence over the file.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects partially configured listeners and out of range values
func (c *Config) Validate() error {
	var errs []error

	if c.Jira.Enabled() {
		if c.Jira.Username == "" || c.Jira.Password == "" || c.Jira.BaseURL == "" {
			errs = append(errs, errors.New("jira needs username, password and base url together"))
		}
		if c.Jira.LookbackDays < 0 {
			errs = append(errs, fmt.Errorf("jira lookback days must not be negative, got %d", c.Jira.LookbackDays))
		}
	}
	if c.Chat.Enabled() && c.Chat.UrgentThresholdHours < 0 {
		errs = append(errs, fmt.Errorf("urgent threshold must not be negative, got %d", c.Chat.UrgentThresholdHours))
	}
	if c.HTTP.Attempts == 0 {
		errs = append(errs, errors.New("http attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

// setDefaults populates viper with the out-of-the-box values
func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "us-east-1")
	v.SetDefault("regions", []string{})
	v.SetDefault("debug", false)
	v.SetDefault("quiet", false)
	v.SetDefault("fail_fast", false)

	v.SetDefault("chat.flowdock_token", "")
	v.SetDefault("chat.flowdock_url", "https://api.flowdock.com")
	v.SetDefault("chat.slack_webhook_url", "")
	v.SetDefault("chat.urgent_threshold_hours", 120)
	v.SetDefault("chat.display_name", "ec2-event-checker")

	v.SetDefault("jira.username", "")
	v.SetDefault("jira.password", "")
	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.lookback_days", 30)
	v.SetDefault("jira.issue_type", "Maintenance Task")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "ec2.events")

	v.SetDefault("http.attempts", 3)
}
