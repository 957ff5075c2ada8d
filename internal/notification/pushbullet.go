package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/subtrackr/subtrackr/internal/errors"
)

const (
	defaultPushbulletURL = "https://api.pushbullet.com/v2/pushes"

	// maxErrorBodySize limits how much of a provider error response is
	// read for diagnostics
	maxErrorBodySize = 1024
)

// PushbulletAdapter delivers note pushes through the Pushbullet HTTP API.
// A single access token authenticates all pushes; an empty Device targets
// every device on the account.
type PushbulletAdapter struct {
	mu    sync.RWMutex
	token string

	url    string
	client *http.Client
	log    *slog.Logger
}

// NewPushbulletAdapter builds the adapter. An empty url selects the real
// Pushbullet endpoint.
func NewPushbulletAdapter(url string, log *slog.Logger) *PushbulletAdapter {
	if url == "" {
		url = defaultPushbulletURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &PushbulletAdapter{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

func (a *PushbulletAdapter) Name() Channel { return ChannelPushbullet }

// Initialize stores the access token. An empty token is rejected and the
// previous token is kept.
func (a *PushbulletAdapter) Initialize(creds Credentials) error {
	if creds.Token == "" {
		return errors.Newf("pushbullet access token is empty").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = creds.Token
	return nil
}

func (a *PushbulletAdapter) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != ""
}

type pushbulletPush struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	DeviceIden string `json:"device_iden,omitempty"`
}

func (a *PushbulletAdapter) Send(ctx context.Context, msg *Message) error {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()

	if token == "" {
		return errNotInitialized(ChannelPushbullet)
	}

	payload, err := json.Marshal(pushbulletPush{
		Type:       "note",
		Title:      msg.Title,
		Body:       msg.Body,
		DeviceIden: msg.Device,
	})
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryNetwork).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Access-Token", token)

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("channel", string(ChannelPushbullet)).
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.log.Debug("failed to close pushbullet response body", "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return errors.Newf("pushbullet API returned status %d: %s", resp.StatusCode, string(body)).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("status_code", resp.StatusCode).
			Build()
	}
	return nil
}
