package notification

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/subtrackr/subtrackr/internal/errors"
)

// webPushPayload is the JSON body handed to the browser service worker.
type webPushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	URL   string         `json:"url,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// WebPushAdapter delivers browser push notifications. The VAPID key pair is
// process-wide state set once at startup; the push subscription itself is
// per-user and travels in the Message.
type WebPushAdapter struct {
	mu      sync.RWMutex
	public  string
	private string
	contact string

	log *slog.Logger
}

func NewWebPushAdapter(log *slog.Logger) *WebPushAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &WebPushAdapter{log: log}
}

// GenerateVAPIDKeys creates a fresh VAPID key pair for first-run setups that
// have none configured.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}
	return privateKey, publicKey, nil
}

func (a *WebPushAdapter) Name() Channel { return ChannelWebPush }

// Initialize stores the VAPID key pair and contact address. All three fields
// are required.
func (a *WebPushAdapter) Initialize(creds Credentials) error {
	if creds.VAPIDPublicKey == "" || creds.VAPIDPrivateKey == "" || creds.Contact == "" {
		return errors.Newf("web push requires VAPID public key, private key and contact").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.public = creds.VAPIDPublicKey
	a.private = creds.VAPIDPrivateKey
	a.contact = creds.Contact
	return nil
}

func (a *WebPushAdapter) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.public != "" && a.private != ""
}

// PublicKey returns the VAPID public key browsers subscribe with, or the
// empty string before initialization.
func (a *WebPushAdapter) PublicKey() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.public
}

func (a *WebPushAdapter) Send(ctx context.Context, msg *Message) error {
	a.mu.RLock()
	public, private, contact := a.public, a.private, a.contact
	a.mu.RUnlock()

	if public == "" || private == "" {
		return errNotInitialized(ChannelWebPush)
	}
	if len(msg.PushSub) == 0 {
		return errors.Newf("no push subscription for user").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	var sub webpush.Subscription
	if err := json.Unmarshal(msg.PushSub, &sub); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("channel", string(ChannelWebPush)).
			Build()
	}
	if sub.Endpoint == "" {
		return errors.Newf("push subscription has no endpoint").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}

	payload, err := json.Marshal(webPushPayload{
		Title: msg.Title,
		Body:  msg.Body,
		Icon:  msg.Icon,
		Tag:   msg.Tag,
		URL:   msg.URL,
		Data:  msg.Data,
	})
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		Subscriber:      contact,
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		TTL:             60,
	})
	if err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("channel", string(ChannelWebPush)).
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.log.Debug("failed to close push response body", "error", err)
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return errors.Newf("push endpoint returned status %d: %s", resp.StatusCode, string(body)).
			Component("notification").
			Category(errors.CategoryPushDelivery).
			Context("status_code", resp.StatusCode).
			Build()
	}
	return nil
}
