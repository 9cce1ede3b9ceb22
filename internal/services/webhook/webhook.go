package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/omnikdao/governance/pkg/governor"
)

const sendTimeout = 10 * time.Second

var ErrSendFailed = errors.New("error sending message")

type Message struct {
	Content string `json:"content"`
}

type Messager struct {
	BaseURL   string
	ChainName string

	notify bool
	client *http.Client
}

func NewMessager(baseURL, chainName string, notify bool) governor.WebhookMessager {
	return &Messager{
		BaseURL:   baseURL,
		ChainName: chainName,
		notify:    notify && baseURL != "",
		client:    &http.Client{Timeout: sendTimeout},
	}
}

func (b *Messager) Notify(ctx context.Context, message string) error {
	return b.post(ctx, message)
}

func (b *Messager) NotifyWarning(ctx context.Context, errorMessage error) error {
	return b.post(ctx, fmt.Sprintf("warning: %s", errorMessage.Error()))
}

func (b *Messager) NotifyError(ctx context.Context, errorMessage error) error {
	return b.post(ctx, fmt.Sprintf("error: %s", errorMessage.Error()))
}

func (b *Messager) post(ctx context.Context, content string) error {
	if !b.notify {
		return nil
	}

	data, err := json.Marshal(Message{Content: fmt.Sprintf("[%s] %s", b.ChainName, content)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	// discord answers 204 on success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %d", ErrSendFailed, resp.StatusCode)
	}

	return nil
}
