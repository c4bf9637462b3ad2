package main

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

type MockSlackChannelJoiner struct {
	joinFn func(string) error
}

func (mscj MockSlackChannelJoiner) JoinConversationContext(_ context.Context, channel string) (*slack.Channel, string, []string, error) {
	if err := mscj.joinFn(channel); err != nil {
		return nil, "", nil, err
	}
	return &slack.Channel{}, "", nil, nil
}

func TestEnsureMembershipJoinsEveryChannel(t *testing.T) {
	var providedChannels []string

	channelJoiner := &MockSlackChannelJoiner{
		joinFn: func(s string) error {
			providedChannels = append(providedChannels, s)
			return nil
		},
	}

	joined := EnsureMembership(context.Background(), channelJoiner, []string{"C1", "C2"})

	assert.Equal(t, 2, joined)
	assert.Equal(t, []string{"C1", "C2"}, providedChannels)
}

func TestEnsureMembershipCarriesOnAfterAFailure(t *testing.T) {
	var providedChannels []string

	channelJoiner := &MockSlackChannelJoiner{
		joinFn: func(s string) error {
			providedChannels = append(providedChannels, s)
			if s == "C1" {
				return errors.New("channel_not_found")
			}
			return nil
		},
	}

	joined := EnsureMembership(context.Background(), channelJoiner, []string{"C1", "C2", "C3"})

	assert.Equal(t, 2, joined)
	assert.Equal(t, []string{"C1", "C2", "C3"}, providedChannels)
}
