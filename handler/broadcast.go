package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cuotos/broadcastbot/database"
	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

const (
	ConfirmPrefix       = "CONFIRM:"
	DefaultCommand      = "/partner_broadcast"
	DefaultSendInterval = 200 * time.Millisecond
)

// Poster posts a single message to a channel. *slack.Client satisfies it.
type Poster interface {
	PostMessageContext(context.Context, string, ...slack.MsgOption) (string, string, error)
}

// Commander turns one slash command invocation into the text shown back to the invoking user.
type Commander interface {
	Handle(ctx context.Context, userID string, text string) string
}

type BroadcastConfig struct {
	Command             string
	Channels            []string
	AllowedBroadcasters []string
	SendInterval        time.Duration
}

type ParsedCommand struct {
	IsConfirmed bool
	MessageBody string
}

type BroadcastResult struct {
	SentCount      int
	FailedChannels []string
}

type BroadcastHandler struct {
	command      string
	channels     []string
	allowed      map[string]struct{}
	sendInterval time.Duration
	poster       Poster
	counters     database.Database
	now          func() time.Time
}

// NewBroadcastHandler copies the config, the handler never changes it afterwards.
// counters is optional and may be nil.
func NewBroadcastHandler(cfg BroadcastConfig, poster Poster, counters database.Database) *BroadcastHandler {
	h := &BroadcastHandler{
		command:      cfg.Command,
		channels:     append([]string(nil), cfg.Channels...),
		allowed:      make(map[string]struct{}, len(cfg.AllowedBroadcasters)),
		sendInterval: cfg.SendInterval,
		poster:       poster,
		counters:     counters,
		now:          time.Now,
	}

	if h.command == "" {
		h.command = DefaultCommand
	}
	if h.sendInterval <= 0 {
		h.sendInterval = DefaultSendInterval
	}
	for _, u := range cfg.AllowedBroadcasters {
		h.allowed[u] = struct{}{}
	}

	return h
}

// ParseCommand trims the text and strips a case-insensitive CONFIRM: marker.
func ParseCommand(text string) ParsedCommand {
	text = strings.TrimSpace(text)

	if len(text) >= len(ConfirmPrefix) && strings.EqualFold(text[:len(ConfirmPrefix)], ConfirmPrefix) {
		return ParsedCommand{
			IsConfirmed: true,
			MessageBody: strings.TrimSpace(text[len(ConfirmPrefix):]),
		}
	}

	return ParsedCommand{MessageBody: text}
}

func (h *BroadcastHandler) IsAllowed(userID string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	_, ok := h.allowed[userID]
	return ok
}

func (h *BroadcastHandler) Handle(ctx context.Context, userID string, text string) string {
	if !h.IsAllowed(userID) {
		log.Printf("[DEBUG] user %s is not an allowed broadcaster", userID)
		return fmt.Sprintf("You are not allowed to use `%s`.", h.command)
	}

	if strings.TrimSpace(text) == "" {
		return h.usageText()
	}

	cmd := ParseCommand(text)
	if cmd.IsConfirmed && cmd.MessageBody == "" {
		return fmt.Sprintf("Your message is empty after the CONFIRM prefix.\nUsage: `%s %s Your message here`", h.command, ConfirmPrefix)
	}

	if len(h.channels) == 0 {
		return "No broadcast channels are configured.\n\n" +
			"Ask the maintainer to set BROADCAST_CHANNEL_IDS in the environment to a comma-separated list of channel IDs."
	}

	if !cmd.IsConfirmed {
		return h.previewText(cmd.MessageBody)
	}

	log.Printf("[INFO] user %s started a broadcast to %d channel(s)", userID, len(h.channels))
	result := h.Broadcast(ctx, cmd.MessageBody)
	h.count(ctx, userID)

	msg := fmt.Sprintf("Broadcast complete. Sent to %d channel(s).", result.SentCount)
	if len(result.FailedChannels) > 0 {
		msg += fmt.Sprintf(" Failed on %d channel(s): %s", len(result.FailedChannels), strings.Join(result.FailedChannels, ", "))
	}

	return msg
}

// Broadcast posts body to every configured channel in order, one at a time, waiting
// sendInterval between attempts. A failed channel never stops the rest.
// If ctx ends mid way the channels not yet attempted are reported as failed.
func (h *BroadcastHandler) Broadcast(ctx context.Context, body string) BroadcastResult {
	result := BroadcastResult{}
	limiter := rate.NewLimiter(rate.Every(h.sendInterval), 1)

	for i, channel := range h.channels {
		if err := limiter.Wait(ctx); err != nil {
			log.Printf("[WARN] broadcast stopped before %s: %s", channel, err)
			result.FailedChannels = append(result.FailedChannels, h.channels[i:]...)
			return result
		}

		_, _, err := h.poster.PostMessageContext(ctx, channel, slack.MsgOptionText(body, false))
		if err != nil {
			logDeliveryError(channel, err)
			result.FailedChannels = append(result.FailedChannels, channel)
			continue
		}

		log.Printf("[TRACE] posted broadcast to %s", channel)
		result.SentCount++
	}

	return result
}

func logDeliveryError(channel string, err error) {
	var apiErr slack.SlackErrorResponse
	var rateLimitErr *slack.RateLimitedError

	switch {
	case errors.As(err, &rateLimitErr):
		log.Printf("[ERROR] rate limited posting to %s, slack asked to retry after %s", channel, rateLimitErr.RetryAfter)
	case errors.As(err, &apiErr):
		log.Printf("[ERROR] failed to post to %s: %s", channel, apiErr.Err)
	default:
		log.Printf("[ERROR] unexpected error posting to %s: %s", channel, err)
	}
}

func (h *BroadcastHandler) count(ctx context.Context, userID string) {
	if h.counters == nil {
		return
	}

	key := fmt.Sprintf("broadcast_%s_%s", userID, h.now().UTC().Format("20060102"))
	total, err := h.counters.Incr(ctx, key)
	if err != nil {
		log.Printf("[WARN] failed to count broadcast for %s: %s", userID, err)
		return
	}
	log.Printf("[INFO] user %s has sent %d broadcast(s) today", userID, total)
}

func (h *BroadcastHandler) usageText() string {
	return fmt.Sprintf("Usage:\n• Preview: `%s Your message here`\n• Confirm: `%s %s Your message here`", h.command, h.command, ConfirmPrefix)
}

func (h *BroadcastHandler) previewText(body string) string {
	return fmt.Sprintf("Preview only — nothing has been sent yet.\n\n"+
		"This message:\n\n%s\n\n"+
		"Would be sent to %d channel(s):\n%s\n\n"+
		"If this looks correct, send:\n`%s %s %s`",
		body, len(h.channels), strings.Join(h.channels, ", "), h.command, ConfirmPrefix, body)
}
