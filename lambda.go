package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cuotos/broadcastbot/handler"
)

type lambdaFunc func(context.Context, events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error)

func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// LambdaHandler serves slash commands posted to a Lambda Function URL.
func LambdaHandler(h handler.SlackHandler) lambdaFunc {
	return func(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
		body := []byte(req.Body)

		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				log.Printf("[ERROR] failed to decode base64 body: %s", err)
				return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest}, nil
			}
			body = decoded
		}

		header := http.Header{}
		for k, v := range req.Headers {
			header.Set(k, v)
		}

		resp, err := h.HandleEvent(ctx, body, header)
		if err != nil {
			// slack only needs the status code, a lambda error would turn it into a 502
			log.Printf("[ERROR] %s", err)
		}

		return events.LambdaFunctionURLResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       string(resp.Body),
		}, nil
	}
}
