package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuotos/broadcastbot/handler"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	SlackAppToken      string `envconfig:"SLACK_APP_TOKEN"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`

	BroadcastChannels   IDList        `envconfig:"BROADCAST_CHANNEL_IDS"`
	AllowedBroadcasters IDList        `envconfig:"ALLOWED_BROADCASTERS"`
	SlashCommand        string        `envconfig:"SLASH_COMMAND" default:"/partner_broadcast"`
	SendInterval        time.Duration `envconfig:"SEND_INTERVAL" default:"200ms"`
	AutoJoinChannels    bool          `envconfig:"AUTO_JOIN_CHANNELS" default:"false"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	LogLevel   string `envconfig:"LOG_LEVEL" default:"INFO"`
	HealthAddr string `envconfig:"HEALTH_ADDR" default:":3000"`
}

// IDList is a comma separated list of Slack ids. Blank entries are dropped and order is kept.
type IDList []string

func (l *IDList) Decode(value string) error {
	ids := IDList{}
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	*l = ids
	return nil
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the credentials needed by the chosen transport.
func (c Config) Validate(lambdaMode bool) error {
	if c.SlackBotToken == "" {
		return errors.New("required key SLACK_BOT_TOKEN missing value")
	}

	if lambdaMode {
		if c.SlackSigningSecret == "" {
			return errors.New("required key SLACK_SIGNING_SECRET missing value")
		}
		// the reply is the HTTP response, so the whole broadcast has to fit before slack times out
		if took := time.Duration(len(c.BroadcastChannels)) * c.SendInterval; took > handler.ResponseBudget {
			return fmt.Errorf("broadcasting to %d channel(s) every %s takes %s, longer than the %s a lambda reply may take. use socket mode or lower SEND_INTERVAL",
				len(c.BroadcastChannels), c.SendInterval, took, handler.ResponseBudget)
		}
		return nil
	}

	if c.SlackAppToken == "" {
		return errors.New("required key SLACK_APP_TOKEN missing value")
	}
	if !strings.HasPrefix(c.SlackAppToken, "xapp-") {
		return errors.New("SLACK_APP_TOKEN must be an app-level token starting with \"xapp-\"")
	}
	return nil
}
