package main

import (
	"context"
	"log"

	"github.com/slack-go/slack"
)

type SlackChannelJoiner interface {
	JoinConversationContext(context.Context, string) (*slack.Channel, string, []string, error)
}

// EnsureMembership joins every broadcast channel so posts are not refused with not_in_channel.
// Failures are logged and the remaining channels are still tried. It returns how many were joined.
func EnsureMembership(ctx context.Context, j SlackChannelJoiner, channels []string) int {
	joined := 0

	for _, channel := range channels {
		log.Printf("[TRACE] joining channel %s", channel)
		_, warning, warnings, err := j.JoinConversationContext(ctx, channel)
		if err != nil {
			log.Printf("[ERROR] failed to join channel %s: %s", channel, err)
			continue
		}

		if warning != "" {
			log.Printf("[WARN] joining channel %s: %s %v", channel, warning, warnings)
		}
		joined++
	}

	log.Printf("[INFO] member of %d/%d broadcast channel(s)", joined, len(channels))
	return joined
}
