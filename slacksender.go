package main

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

type SlackSender struct {
	client *slack.Client
}

func NewSlackSender(botToken string, appToken string) (*SlackSender, error) {
	client := slack.New(botToken, slack.OptionDebug(false), slack.OptionAppLevelToken(appToken))
	auth, err := client.AuthTest()

	if err != nil {
		return nil, fmt.Errorf("auth failed: %w", err)
	}
	log.Printf("[INFO] authenticated as %s in team %s", auth.User, auth.Team)

	return &SlackSender{
		client: client,
	}, nil
}

func (s *SlackSender) PostMessageContext(ctx context.Context, channel string, options ...slack.MsgOption) (string, string, error) {
	return s.client.PostMessageContext(ctx, channel, options...)
}

func (s *SlackSender) JoinConversationContext(ctx context.Context, channel string) (*slack.Channel, string, []string, error) {
	return s.client.JoinConversationContext(ctx, channel)
}
