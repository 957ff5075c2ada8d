package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/subtrackr/subtrackr/internal/errors"
)

const (
	defaultPushoverURL = "https://api.pushover.net/1/messages.json"

	// minPushoverKeyLen is the shortest credential half Pushover issues
	minPushoverKeyLen = 10
)

// SplitCredential parses the combined "token:userkey" form a Pushover
// credential is stored in. The string is split on the first colon and both
// halves are trimmed; each half must be at least ten characters and the user
// key half must not itself contain a colon.
func SplitCredential(combined string) (token, userKey string, err error) {
	idx := strings.Index(combined, ":")
	if idx < 0 {
		return "", "", errors.Newf("pushover credential must be in token:userkey format").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	token = strings.TrimSpace(combined[:idx])
	userKey = strings.TrimSpace(combined[idx+1:])

	if len(token) < minPushoverKeyLen || len(userKey) < minPushoverKeyLen {
		return "", "", errors.Newf("pushover token and user key must each be at least %d characters", minPushoverKeyLen).
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	if strings.Contains(userKey, ":") {
		return "", "", errors.Newf("pushover user key must not contain a colon").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	return token, userKey, nil
}

// PushoverAdapter delivers messages through the Pushover HTTP API using an
// application token and a user key.
type PushoverAdapter struct {
	mu      sync.RWMutex
	token   string
	userKey string

	url    string
	client *http.Client
	log    *slog.Logger
}

// NewPushoverAdapter builds the adapter. An empty url selects the real
// Pushover endpoint.
func NewPushoverAdapter(url string, log *slog.Logger) *PushoverAdapter {
	if url == "" {
		url = defaultPushoverURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &PushoverAdapter{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

func (a *PushoverAdapter) Name() Channel { return ChannelPushover }

// Initialize stores the token and user key pair. Both halves are validated
// with the same rules SplitCredential applies; on error the previous pair is
// kept.
func (a *PushoverAdapter) Initialize(creds Credentials) error {
	token := strings.TrimSpace(creds.Token)
	userKey := strings.TrimSpace(creds.UserKey)

	if len(token) < minPushoverKeyLen || len(userKey) < minPushoverKeyLen {
		return errors.Newf("pushover token and user key must each be at least %d characters", minPushoverKeyLen).
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	if strings.Contains(token, ":") || strings.Contains(userKey, ":") {
		return errors.Newf("pushover token and user key must not contain a colon").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.userKey = userKey
	return nil
}

func (a *PushoverAdapter) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != "" && a.userKey != ""
}

type pushoverMessage struct {
	Token    string `json:"token"`
	User     string `json:"user"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	URL      string `json:"url,omitempty"`
	URLTitle string `json:"url_title,omitempty"`
	Priority int    `json:"priority"`
	Sound    string `json:"sound,omitempty"`
	Device   string `json:"device,omitempty"`
}

func (a *PushoverAdapter) Send(ctx context.Context, msg *Message) error {
	a.mu.RLock()
	token, userKey := a.token, a.userKey
	a.mu.RUnlock()

	if token == "" || userKey == "" {
		return errNotInitialized(ChannelPushover)
	}

	urlTitle := ""
	if msg.URL != "" {
		urlTitle = "Open Dashboard"
	}
	payload, err := json.Marshal(pushoverMessage{
		Token:    token,
		User:     userKey,
		Title:    msg.Title,
		Message:  msg.Body,
		URL:      msg.URL,
		URLTitle: urlTitle,
		Priority: msg.Priority,
		Sound:    msg.Sound,
		Device:   msg.Device,
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

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("channel", string(ChannelPushover)).
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.log.Debug("failed to close pushover response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return errors.Newf("pushover API returned status %d: %s", resp.StatusCode, string(body)).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("status_code", resp.StatusCode).
			Build()
	}
	return nil
}
