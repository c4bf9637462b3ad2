package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

type SlackHandlerResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// ResponseBudget is how long a slash command may run before its HTTP response is due.
// Slack gives up on the request after 3 seconds.
const ResponseBudget = 2500 * time.Millisecond

type SlackHandler interface {
	HandleEvent(context.Context, []byte, http.Header) (SlackHandlerResponse, error)
}

// RealSlackHandler serves slash commands delivered over HTTP. The reply is the HTTP response
// itself, so the command is cut off at Budget and channels it never reached are reported as failed.
type RealSlackHandler struct {
	Command       string
	SigningSecret string
	Commander     Commander
	Budget        time.Duration
}

func NewRealSlackHandler(commander Commander, command string, signingSecret string) SlackHandler {
	if command == "" {
		command = DefaultCommand
	}
	return &RealSlackHandler{
		Command:       command,
		SigningSecret: signingSecret,
		Commander:     commander,
		Budget:        ResponseBudget,
	}
}

func (sh *RealSlackHandler) HandleEvent(ctx context.Context, body []byte, header http.Header) (SlackHandlerResponse, error) {
	log.Printf("[TRACE] handling slash command: %s", body)

	// create an empty default response
	resp := SlackHandlerResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte{},
		Headers:    map[string]string{},
	}

	if len(body) == 0 {
		log.Println("[DEBUG] no body provided in request")
		return resp, nil
	}

	if sh.SigningSecret != "" {
		if err := verifySignature(body, header, sh.SigningSecret); err != nil {
			resp.StatusCode = http.StatusUnauthorized
			return resp, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		return resp, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	cmd, err := slack.SlashCommandParse(req)
	if err != nil {
		resp.Body = []byte(err.Error())
		return resp, fmt.Errorf("unable to parse slash command: %w", err)
	}

	if cmd.Command != sh.Command {
		resp.Body = []byte("unknown command")
		return resp, fmt.Errorf("invalid request. unknown command %q", cmd.Command)
	}

	budget := sh.Budget
	if budget <= 0 {
		budget = ResponseBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	text := sh.Commander.Handle(ctx, cmd.UserID, cmd.Text)

	msg, err := json.Marshal(&slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         text,
	})
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		return resp, err
	}

	resp.Headers = map[string]string{"Content-Type": "application/json"}
	resp.Body = msg
	resp.StatusCode = http.StatusOK

	return resp, nil
}

func verifySignature(body []byte, header http.Header, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("unable to verify request: %w", err)
	}

	if _, err := sv.Write(body); err != nil {
		return err
	}

	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("request signature mismatch: %w", err)
	}

	return nil
}
