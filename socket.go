package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cuotos/broadcastbot/handler"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type socketAcker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

type responder func(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error

// SocketListener receives slash commands over Socket Mode. Every envelope is acked as soon as it
// arrives, the command runs afterwards and its reply goes to the command's response_url.
type SocketListener struct {
	client    *socketmode.Client
	command   string
	commander handler.Commander
	respond   responder
	inflight  sync.WaitGroup
}

func NewSocketListener(api *slack.Client, command string, commander handler.Commander) *SocketListener {
	return &SocketListener{
		client: socketmode.New(api,
			socketmode.OptionDebug(false),
			socketmode.OptionLog(log.Default()),
		),
		command:   command,
		commander: commander,
		respond:   slack.PostWebhookContext,
	}
}

// Run blocks until ctx is cancelled or the connection fails for good. Commands already
// running are allowed to finish before it returns.
func (l *SocketListener) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.client.RunContext(ctx)
	}()
	defer l.inflight.Wait()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		case evt := <-l.client.Events:
			l.dispatch(ctx, l.client, evt)
		}
	}
}

func (l *SocketListener) dispatch(ctx context.Context, acker socketAcker, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Println("[INFO] connecting to slack with socket mode")
	case socketmode.EventTypeConnectionError:
		log.Printf("[WARN] socket mode connection failed, retrying: %v", evt.Data)
	case socketmode.EventTypeConnected:
		log.Println("[INFO] connected to slack with socket mode")
	case socketmode.EventTypeSlashCommand:
		if evt.Request != nil {
			acker.Ack(*evt.Request)
		}

		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			log.Printf("[DEBUG] ignored slash command event with data %T", evt.Data)
			return
		}

		l.inflight.Add(1)
		go func() {
			defer l.inflight.Done()

			if cmd.Command != l.command {
				log.Printf("[WARN] unknown slash command %s from user %s", cmd.Command, cmd.UserID)
				l.reply(ctx, cmd, fmt.Sprintf("Unknown command `%s`. Use `%s`.", cmd.Command, l.command))
				return
			}

			// shutting down must not cut a broadcast short half way through the channel list
			l.runCommand(context.WithoutCancel(ctx), cmd)
		}()
	default:
		if evt.Request != nil {
			acker.Ack(*evt.Request)
		}
		log.Printf("[DEBUG] unhandled socket mode event %s", evt.Type)
	}
}

func (l *SocketListener) runCommand(ctx context.Context, cmd slack.SlashCommand) {
	log.Printf("[TRACE] running %s for user %s", cmd.Command, cmd.UserID)

	l.reply(ctx, cmd, l.commander.Handle(ctx, cmd.UserID, cmd.Text))
}

func (l *SocketListener) reply(ctx context.Context, cmd slack.SlashCommand, text string) {
	err := l.respond(ctx, cmd.ResponseURL, &slack.WebhookMessage{
		Text:         text,
		ResponseType: slack.ResponseTypeEphemeral,
	})
	if err != nil {
		log.Printf("[ERROR] failed to reply to user %s: %s", cmd.UserID, err)
	}
}
