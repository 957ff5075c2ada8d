package notification

import (
	"encoding/json"
	"sync"

	"github.com/subtrackr/subtrackr/internal/errors"
)

// Profile is the slice of a household member record the notification core
// needs: identity and where reminder emails go.
type Profile struct {
	ID    uint
	Name  string
	Email string
}

// ReminderPrefs is the durable portion of a member's notification settings.
type ReminderPrefs struct {
	Enabled bool
	Days    int
}

// ProfileStore is the narrow persistence surface the settings cache reads
// profiles and reminder preferences through.
type ProfileStore interface {
	GetProfile(id uint) (*Profile, error)
	GetReminderPrefs(id uint) (*ReminderPrefs, error)
	UpdateReminderPrefs(id uint, prefs *ReminderPrefs) error
}

// StoredCredential is a saved third-party API key.
type StoredCredential struct {
	Key     string
	Enabled bool
}

// CredentialStore looks up saved API keys so a channel can be re-initialized
// after a restart. Service names match the Channel constants.
type CredentialStore interface {
	// GetCredentialByService returns (nil, nil) when no key is stored.
	GetCredentialByService(userID uint, service string) (*StoredCredential, error)
}

const defaultReminderDays = 7

// SettingsStore caches per-user notification settings, lazily seeding each
// entry from the profile store on first access.
type SettingsStore struct {
	mu       sync.Mutex
	profiles ProfileStore
	cache    map[uint]*UserSettings
}

func NewSettingsStore(profiles ProfileStore) *SettingsStore {
	return &SettingsStore{
		profiles: profiles,
		cache:    make(map[uint]*UserSettings),
	}
}

// Ensure returns a copy of the user's settings, creating the cache entry from
// the durable profile on first access. New entries enable email only.
func (s *SettingsStore) Ensure(userID uint) (*UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.ensureLocked(userID)
	if err != nil {
		return nil, err
	}
	return settings.Clone(), nil
}

func (s *SettingsStore) ensureLocked(userID uint) (*UserSettings, error) {
	if settings, ok := s.cache[userID]; ok {
		return settings, nil
	}

	profile, err := s.profiles.GetProfile(userID)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryNotFound).
			Context("user_id", userID).
			Build()
	}

	days := defaultReminderDays
	if prefs, err := s.profiles.GetReminderPrefs(userID); err == nil && prefs != nil && prefs.Days > 0 {
		days = prefs.Days
	}

	settings := &UserSettings{
		UserID: userID,
		Email:  profile.Email,
		Channels: map[Channel]bool{
			ChannelEmail:      true,
			ChannelWebPush:    false,
			ChannelPushbullet: false,
			ChannelPushover:   false,
		},
		ReminderDays: days,
	}
	s.cache[userID] = settings
	return settings, nil
}

// Merge applies a partial update to the user's cached settings and returns a
// copy of the result. Scalar fields replace, the Channels map merges key by
// key, and a ReminderDays change is written through to the durable store.
func (s *SettingsStore) Merge(userID uint, upd *SettingsUpdate) (*UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.ensureLocked(userID)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		settings.Email = *upd.Email
	}
	if upd.PushbulletToken != nil {
		settings.PushbulletToken = *upd.PushbulletToken
	}
	if upd.PushoverToken != nil {
		settings.PushoverToken = *upd.PushoverToken
	}
	if upd.PushoverUserKey != nil {
		settings.PushoverUserKey = *upd.PushoverUserKey
	}
	if len(upd.PushSubscription) > 0 {
		settings.PushSubscription = append(json.RawMessage(nil), upd.PushSubscription...)
	}
	for ch, enabled := range upd.Channels {
		settings.Channels[ch] = enabled
	}

	if upd.ReminderDays != nil && *upd.ReminderDays != settings.ReminderDays {
		settings.ReminderDays = *upd.ReminderDays
		prefs := &ReminderPrefs{Enabled: true, Days: *upd.ReminderDays}
		if err := s.profiles.UpdateReminderPrefs(userID, prefs); err != nil {
			return nil, errors.New(err).
				Component("notification").
				Category(errors.CategoryDatabase).
				Context("user_id", userID).
				Build()
		}
	}

	return settings.Clone(), nil
}
