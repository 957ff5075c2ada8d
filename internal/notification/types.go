// Package notification implements the multi-channel notification dispatch
// core: it fans a single logical event (a subscription payment reminder) out
// to email, browser push and two third-party push providers, keeping per-user
// channel configuration and process-wide adapter health separate.
package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/subtrackr/subtrackr/internal/errors"
)

// Channel identifies one notification delivery mechanism.
// The set is closed; adding a channel means adding a constant here plus an
// Adapter implementation registered with the Manager.
type Channel string

const (
	// ChannelEmail delivers through an SMTP-like mail transport
	ChannelEmail Channel = "email"
	// ChannelWebPush delivers to a browser push subscription
	ChannelWebPush Channel = "webpush"
	// ChannelPushbullet delivers through the Pushbullet API
	ChannelPushbullet Channel = "pushbullet"
	// ChannelPushover delivers through the Pushover API
	ChannelPushover Channel = "pushover"
)

// AllChannels returns every supported channel kind in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelWebPush, ChannelPushbullet, ChannelPushover}
}

// ParseChannel converts a string into a Channel, rejecting unknown kinds.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelWebPush, ChannelPushbullet, ChannelPushover:
		return Channel(s), nil
	default:
		return "", errors.Newf("unknown notification channel: %q", s).
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
}

// Status describes the process-wide readiness of a single channel.
// Enabled implies Initialized for every channel kind.
type Status struct {
	Initialized bool   `json:"initialized"`
	Enabled     bool   `json:"enabled"`
	Error       string `json:"error,omitempty"`
}

// Credentials holds channel-specific credential material. Each adapter reads
// only the fields it understands and ignores the rest.
type Credentials struct {
	Token           string // Pushbullet access token or Pushover API token
	UserKey         string // Pushover user key
	VAPIDPublicKey  string // web push VAPID public key
	VAPIDPrivateKey string // web push VAPID private key
	Contact         string // contact email for VAPID claims
}

// Reminder carries the subscription facts a payment reminder is built from.
// It is a transient value constructed fresh per dispatch call.
type Reminder struct {
	SubscriptionName string
	DueDate          time.Time
	Amount           float64
}

// Message is the channel-agnostic notification content plus the per-user
// delivery targets. Adapters read only the fields relevant to them.
type Message struct {
	Title string
	Body  string

	// Email fields; Subject/Text fall back to Title/Body when empty
	To      string
	Subject string
	Text    string
	HTML    string

	// Web push fields
	PushSub json.RawMessage
	Icon    string
	Tag     string
	URL     string
	Data    map[string]any

	// Pushbullet device targeting; empty sends to all devices
	Device string

	// Pushover fields
	Priority int
	Sound    string
}

const appName = "SubTrackr"

func formatDueDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// NewReminderMessage builds the payment reminder content for all channels
// from a subscription record.
func NewReminderMessage(rem *Reminder, dashboardURL string) *Message {
	date := formatDueDate(rem.DueDate)
	amount := formatAmount(rem.Amount)

	body := fmt.Sprintf("Your %s subscription payment of %s is due on %s.",
		rem.SubscriptionName, amount, date)

	text := fmt.Sprintf(`Hello,

This is a reminder that your %s subscription payment of %s is due on %s.

To view more details or update this subscription, please visit your %s dashboard.

Best regards,
The %s Team
`, rem.SubscriptionName, amount, date, appName, appName)

	html := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">Subscription Payment Reminder</h2>
  <p>Hello,</p>
  <p>This is a reminder that your <strong>%s</strong> subscription payment is due soon.</p>
  <div style="background-color: #f8fafc; border: 1px solid #e2e8f0; border-radius: 4px; padding: 16px; margin: 20px 0;">
    <p><strong>Subscription:</strong> %s</p>
    <p><strong>Amount:</strong> %s</p>
    <p><strong>Due Date:</strong> %s</p>
  </div>
  <p>To view more details or update this subscription, please visit your %s dashboard.</p>
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #e2e8f0; color: #64748b; font-size: 12px;">
    <p>Best regards,<br>The %s Team</p>
  </div>
</div>`, rem.SubscriptionName, rem.SubscriptionName, amount, date, appName, appName)

	return &Message{
		Title:   fmt.Sprintf("%s: %s payment due soon", appName, rem.SubscriptionName),
		Body:    body,
		Subject: fmt.Sprintf("Reminder: %s payment due soon", rem.SubscriptionName),
		Text:    text,
		HTML:    html,
		Tag:     "subscription-reminder",
		URL:     dashboardURL,
		Sound:   "pushover",
		Data: map[string]any{
			"subscriptionName": rem.SubscriptionName,
			"dueDate":          rem.DueDate.UTC().Format(time.RFC3339),
			"amount":           rem.Amount,
		},
	}
}

// NewTestMessage builds the synthetic notification used to verify a channel's
// configuration.
func NewTestMessage() *Message {
	return &Message{
		Title:   fmt.Sprintf("%s Test Notification", appName),
		Body:    fmt.Sprintf("This is a test notification from %s.", appName),
		Subject: fmt.Sprintf("%s Test Notification", appName),
		Text:    fmt.Sprintf("This is a test notification from %s.", appName),
		HTML:    fmt.Sprintf("<p>This is a test notification from <strong>%s</strong>.</p>", appName),
		Tag:     "test-notification",
	}
}

// UserSettings is the per-household-member notification record.
//
// Only ReminderDays is written through to the durable store. Credentials,
// channel flags and the push subscription live in this in-memory cache only
// and are lost on restart. This is a known limitation kept on purpose: raw
// credentials are not duplicated into the durable store, and the API key
// table remains the source a channel is re-initialized from.
type UserSettings struct {
	UserID           uint             `json:"userId"`
	Email            string           `json:"email,omitempty"`
	PushbulletToken  string           `json:"-"`
	PushoverToken    string           `json:"-"`
	PushoverUserKey  string           `json:"-"`
	PushSubscription json.RawMessage  `json:"-"`
	Channels         map[Channel]bool `json:"channels"`
	ReminderDays     int              `json:"reminderDays"`
}

// Clone returns a deep copy so callers cannot mutate cached state.
func (s *UserSettings) Clone() *UserSettings {
	clone := *s
	clone.Channels = make(map[Channel]bool, len(s.Channels))
	for k, v := range s.Channels {
		clone.Channels[k] = v
	}
	if s.PushSubscription != nil {
		clone.PushSubscription = append(json.RawMessage(nil), s.PushSubscription...)
	}
	return &clone
}

// SettingsUpdate is a partial update merged into a user's settings.
// Nil pointers mean "leave unchanged"; the Channels map is merged
// key-by-key rather than replaced wholesale.
type SettingsUpdate struct {
	Email            *string
	PushbulletToken  *string
	PushoverToken    *string
	PushoverUserKey  *string
	PushSubscription json.RawMessage
	Channels         map[Channel]bool
	ReminderDays     *int
}
