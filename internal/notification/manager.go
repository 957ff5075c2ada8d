package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/errors"
)

// Manager coordinates per-user settings, process-wide channel status and the
// channel adapters. All delivery decisions are made here; adapters only move
// bytes.
type Manager struct {
	settings *SettingsStore
	registry *StatusRegistry
	adapters map[Channel]Adapter
	creds    CredentialStore

	timeout      time.Duration
	dashboardURL string
	log          *slog.Logger
}

// NewManager wires the manager from its collaborators. The creds store may be
// nil, which disables credential recovery for test notifications.
func NewManager(settings *SettingsStore, registry *StatusRegistry, adapters []Adapter, creds CredentialStore, cfg *conf.NotificationSettings) *Manager {
	m := &Manager{
		settings: settings,
		registry: registry,
		adapters: make(map[Channel]Adapter, len(adapters)),
		creds:    creds,
		timeout:  cfg.Timeout,
		log:      getFileLogger(false),
	}
	if m.timeout <= 0 {
		m.timeout = 30 * time.Second
	}
	if cfg.DashboardURL != "" {
		m.dashboardURL = cfg.DashboardURL + "/dashboard"
	}
	for _, a := range adapters {
		m.adapters[a.Name()] = a
	}
	return m
}

// Adapter returns the adapter registered for a channel, or nil.
func (m *Manager) Adapter(ch Channel) Adapter {
	return m.adapters[ch]
}

// WebPushPublicKey returns the VAPID public key browsers subscribe with, or
// the empty string when web push is not configured.
func (m *Manager) WebPushPublicKey() string {
	if wp, ok := m.adapters[ChannelWebPush].(*WebPushAdapter); ok {
		return wp.PublicKey()
	}
	return ""
}

// ChannelStatus returns a snapshot of every channel's process-wide status.
func (m *Manager) ChannelStatus() map[Channel]Status {
	return m.registry.Snapshot()
}

// EnsureUserSettings returns the user's notification settings, creating them
// from the stored profile on first access.
func (m *Manager) EnsureUserSettings(userID uint) (*UserSettings, error) {
	return m.settings.Ensure(userID)
}

// UpdateUserSettings merges a partial update into the user's settings. New or
// changed credentials drive adapter initialization before the merge, and a
// request to enable a credentialed channel is honored only if its adapter is
// initialized afterwards.
func (m *Manager) UpdateUserSettings(userID uint, upd *SettingsUpdate) (*UserSettings, error) {
	current, err := m.settings.Ensure(userID)
	if err != nil {
		return nil, err
	}

	// only a present, non-empty credential drives initialization; clearing a
	// field leaves the adapter's last state alone
	if upd.PushbulletToken != nil && *upd.PushbulletToken != "" && *upd.PushbulletToken != current.PushbulletToken {
		err := m.initAdapter(ChannelPushbullet, Credentials{Token: *upd.PushbulletToken})
		m.registry.SetInitialized(ChannelPushbullet, err)
	}

	if upd.PushoverToken != nil || upd.PushoverUserKey != nil {
		token := current.PushoverToken
		if upd.PushoverToken != nil {
			token = *upd.PushoverToken
		}
		userKey := current.PushoverUserKey
		if upd.PushoverUserKey != nil {
			userKey = *upd.PushoverUserKey
		}
		if token != "" && userKey != "" &&
			(token != current.PushoverToken || userKey != current.PushoverUserKey) {
			err := m.initAdapter(ChannelPushover, Credentials{Token: token, UserKey: userKey})
			m.registry.SetInitialized(ChannelPushover, err)
		}
	}

	if len(upd.PushSubscription) > 0 && !bytes.Equal(upd.PushSubscription, current.PushSubscription) {
		// a fresh browser subscription implies the user wants the channel on
		if upd.Channels == nil {
			upd.Channels = make(map[Channel]bool)
		}
		if _, requested := upd.Channels[ChannelWebPush]; !requested {
			upd.Channels[ChannelWebPush] = true
		}
	}

	// enabling a credentialed channel requires a successfully initialized
	// adapter; downgrade the request instead of failing the whole update
	for ch, enabled := range upd.Channels {
		if ch == ChannelEmail || !enabled {
			continue
		}
		if !m.registry.Get(ch).Initialized {
			m.log.Warn("refusing to enable channel without initialized adapter",
				"channel", ch, "user_id", userID)
			upd.Channels[ch] = false
		}
	}

	return m.settings.Merge(userID, upd)
}

func (m *Manager) initAdapter(ch Channel, creds Credentials) error {
	adapter, ok := m.adapters[ch]
	if !ok {
		return errors.Newf("no adapter registered for channel %s", ch).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := adapter.Initialize(creds); err != nil {
		m.log.Warn("adapter initialization failed", "channel", ch, "error", err)
		return err
	}
	m.log.Info("adapter initialized", "channel", ch)
	return nil
}

// SendReminders dispatches a payment reminder to every channel the user has
// enabled and that is deliverable. The result always carries one entry per
// supported channel; a failed or skipped channel reports false.
func (m *Manager) SendReminders(ctx context.Context, userID uint, rem *Reminder) (map[Channel]bool, error) {
	settings, err := m.settings.Ensure(userID)
	if err != nil {
		return nil, err
	}

	results := make(map[Channel]bool, len(AllChannels()))
	for _, ch := range AllChannels() {
		results[ch] = false
	}

	base := NewReminderMessage(rem, m.dashboardURL)

	if settings.Channels[ChannelEmail] && settings.Email != "" {
		msg := *base
		msg.To = settings.Email
		results[ChannelEmail] = m.deliver(ctx, ChannelEmail, &msg)
	}

	if settings.Channels[ChannelWebPush] && len(settings.PushSubscription) > 0 && m.registry.Get(ChannelWebPush).Initialized {
		msg := *base
		msg.PushSub = settings.PushSubscription
		results[ChannelWebPush] = m.deliver(ctx, ChannelWebPush, &msg)
	}

	if settings.Channels[ChannelPushbullet] && m.registry.Get(ChannelPushbullet).Initialized {
		msg := *base
		results[ChannelPushbullet] = m.deliver(ctx, ChannelPushbullet, &msg)
	}

	if settings.Channels[ChannelPushover] && m.registry.Get(ChannelPushover).Initialized {
		msg := *base
		results[ChannelPushover] = m.deliver(ctx, ChannelPushover, &msg)
	}

	return results, nil
}

// deliver runs a single adapter send under the per-channel timeout. Any
// failure, including a panicking adapter, degrades to false so one channel
// can never abort the others.
func (m *Manager) deliver(ctx context.Context, ch Channel, msg *Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("adapter panicked during send", "channel", ch, "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	adapter, registered := m.adapters[ch]
	if !registered {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := adapter.Send(ctx, msg); err != nil {
		m.log.Error("notification send failed", "channel", ch, "error", err)
		return false
	}
	m.log.Info("notification sent", "channel", ch, "title", msg.Title)
	return true
}

// SendTestNotification sends a synthetic message through a single channel to
// verify its configuration. An unusable channel reports false rather than an
// error; only an unknown user is an error.
func (m *Manager) SendTestNotification(ctx context.Context, userID uint, ch Channel) (bool, error) {
	settings, err := m.settings.Ensure(userID)
	if err != nil {
		return false, err
	}

	if ch == ChannelPushbullet || ch == ChannelPushover {
		if !m.registry.Get(ch).Initialized {
			if err := m.recoverCredential(userID, ch); err != nil {
				m.log.Debug("credential recovery failed", "channel", ch, "error", err)
			}
			settings, err = m.settings.Ensure(userID)
			if err != nil {
				return false, err
			}
		}
	}

	switch ch {
	case ChannelEmail:
		if settings.Email == "" {
			return false, nil
		}
		msg := NewTestMessage()
		msg.To = settings.Email
		return m.deliver(ctx, ChannelEmail, msg), nil

	case ChannelWebPush:
		if len(settings.PushSubscription) == 0 || !m.registry.Get(ChannelWebPush).Initialized {
			return false, nil
		}
		msg := NewTestMessage()
		msg.PushSub = settings.PushSubscription
		return m.deliver(ctx, ChannelWebPush, msg), nil

	case ChannelPushbullet, ChannelPushover:
		if !m.registry.Get(ch).Initialized {
			return false, nil
		}
		return m.deliver(ctx, ch, NewTestMessage()), nil

	default:
		return false, errors.Newf("unknown notification channel: %q", ch).
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
}

// recoverCredential re-initializes a push channel from its saved API key so
// test notifications work after a restart.
func (m *Manager) recoverCredential(userID uint, ch Channel) error {
	if m.creds == nil {
		return nil
	}

	stored, err := m.creds.GetCredentialByService(userID, string(ch))
	if err != nil {
		return err
	}
	if stored == nil || !stored.Enabled || stored.Key == "" {
		return nil
	}

	upd := &SettingsUpdate{Channels: map[Channel]bool{ch: true}}
	switch ch {
	case ChannelPushbullet:
		upd.PushbulletToken = &stored.Key
	case ChannelPushover:
		token, userKey, err := SplitCredential(stored.Key)
		if err != nil {
			return err
		}
		upd.PushoverToken = &token
		upd.PushoverUserKey = &userKey
	default:
		return nil
	}

	_, err = m.UpdateUserSettings(userID, upd)
	return err
}
