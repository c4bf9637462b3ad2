package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cuotos/broadcastbot/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Testing happy path only...
func TestCorrectlyDecodesBase64Requests(t *testing.T) {
	tcs := []struct {
		InputBody string
		IsBase64  bool
		Expected  string
	}{
		{
			"dGhpc19pc19hX3Rlc3RfYm9keQ==",
			true,
			"this_is_a_test_body",
		},
		{
			"plain_text_string",
			false,
			"plain_text_string",
		},
	}

	for _, tc := range tcs {
		mockSlackHandler := &MockSlackHandler{}

		lambdaFunc := LambdaHandler(mockSlackHandler)

		mockRequest := events.LambdaFunctionURLRequest{
			Body:            tc.InputBody,
			IsBase64Encoded: tc.IsBase64,
		}

		actualResp, err := lambdaFunc(context.Background(), mockRequest)

		require.NoError(t, err)
		assert.Equal(t, tc.Expected, actualResp.Body)
	}
}

func TestBadBase64IsABadRequest(t *testing.T) {
	mockSlackHandler := &MockSlackHandler{}
	lambdaFunc := LambdaHandler(mockSlackHandler)
	mockRequest := events.LambdaFunctionURLRequest{
		Body:            "this_is_bad_base64",
		IsBase64Encoded: true,
	}
	actualResp, err := lambdaFunc(context.Background(), mockRequest)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, actualResp.StatusCode)
	assert.False(t, mockSlackHandler.called)
}

func TestLambdaDeadlineIsPassedToTheHandler(t *testing.T) {
	mockSlackHandler := &MockSlackHandler{}
	lambdaFunc := LambdaHandler(mockSlackHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := lambdaFunc(ctx, events.LambdaFunctionURLRequest{Body: "body"})
	require.NoError(t, err)

	_, ok := mockSlackHandler.ctx.Deadline()
	assert.True(t, ok)
}

func TestRequestHeadersArePassedToTheHandler(t *testing.T) {
	mockSlackHandler := &MockSlackHandler{}
	lambdaFunc := LambdaHandler(mockSlackHandler)
	mockRequest := events.LambdaFunctionURLRequest{
		Body: "body",
		Headers: map[string]string{
			"x-slack-signature":         "v0=abc",
			"x-slack-request-timestamp": "1650644028",
		},
	}

	_, err := lambdaFunc(context.Background(), mockRequest)
	require.NoError(t, err)

	assert.Equal(t, "v0=abc", mockSlackHandler.header.Get("X-Slack-Signature"))
	assert.Equal(t, "1650644028", mockSlackHandler.header.Get("X-Slack-Request-Timestamp"))
}

func TestHandlerErrorsAreReturnedAsStatusCodes(t *testing.T) {
	lambdaFunc := LambdaHandler(handler.NewRealSlackHandler(nil, "/partner_broadcast", "secret"))
	mockRequest := events.LambdaFunctionURLRequest{
		Body: "command=%2Fpartner_broadcast&text=hi",
	}

	actualResp, err := lambdaFunc(context.Background(), mockRequest)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, actualResp.StatusCode)
}

type MockSlackHandler struct {
	called bool
	ctx    context.Context
	header http.Header
}

func (msh *MockSlackHandler) HandleEvent(ctx context.Context, body []byte, header http.Header) (handler.SlackHandlerResponse, error) {
	msh.called = true
	msh.ctx = ctx
	msh.header = header
	// just echo back the body that was passed in to check if it was decoded from base64 before calling Handle
	return handler.SlackHandlerResponse{StatusCode: http.StatusOK, Body: body}, nil
}
