package mq_telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fyersbot/go_src/rest_client"
)

const DefaultTelegramBaseURL = "https://api.telegram.org"

// TelegramResponse is the envelope every Bot API method answers with.
type TelegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// TelegramBot sends to one chat through the Bot API.
type TelegramBot struct {
	executor rest_client.Executor
	token    string
	chatID   string
	baseURL  string
}

// NewTelegramBot returns an error when the token or chat id is missing.
func NewTelegramBot(executor rest_client.Executor, token, chatID, baseURL string) (*TelegramBot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}
	if chatID == "" {
		return nil, errors.New("telegram chat ID cannot be empty")
	}
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &TelegramBot{executor: executor, token: token, chatID: chatID, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (b *TelegramBot) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
}

// SendMessageRequest builds sendMessage with chat_id and text as query parameters.
func (b *TelegramBot) SendMessageRequest(text string) *rest_client.Request {
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    b.methodURL("sendMessage"),
		Params: url.Values{"chat_id": {b.chatID}, "text": {text}},
	}
}

// SendDocumentRequest uploads the file at path as the document field.
func (b *TelegramBot) SendDocumentRequest(path, caption string) *rest_client.Request {
	return b.uploadRequest("sendDocument", "document", path, caption)
}

func (b *TelegramBot) SendPhotoRequest(path, caption string) *rest_client.Request {
	return b.uploadRequest("sendPhoto", "photo", path, caption)
}

func (b *TelegramBot) uploadRequest(method, field, path, caption string) *rest_client.Request {
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    b.methodURL(method),
		Params: url.Values{"chat_id": {b.chatID}, "caption": {caption}},
		Files:  map[string]string{field: path},
	}
}

func (b *TelegramBot) SendMessage(ctx context.Context, text string) error {
	return b.send(ctx, b.SendMessageRequest(text))
}

func (b *TelegramBot) SendDocument(ctx context.Context, path, caption string) error {
	return b.send(ctx, b.SendDocumentRequest(path, caption))
}

func (b *TelegramBot) SendPhoto(ctx context.Context, path, caption string) error {
	return b.send(ctx, b.SendPhotoRequest(path, caption))
}

func (b *TelegramBot) send(ctx context.Context, req *rest_client.Request) error {
	resp, err := b.executor.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request to telegram API: %w", redactToken(err, b.token))
	}
	var out TelegramResponse
	if err := resp.Decode(&out); err != nil {
		return fmt.Errorf("failed to decode telegram API response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Ok {
		return fmt.Errorf("telegram API error (HTTP Status %d): %s", resp.StatusCode, out.Description)
	}
	return nil
}

// redactToken keeps the bot token out of error text, since request paths embed it.
func redactToken(err error, token string) error {
	if !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
