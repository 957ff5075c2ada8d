package api

import (
	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/logging"
	"github.com/subtrackr/subtrackr/internal/notification"
)

// profileStoreAdapter exposes the datastore as the notification package's
// ProfileStore.
type profileStoreAdapter struct {
	ds datastore.Interface
}

func (a *profileStoreAdapter) GetProfile(id uint) (*notification.Profile, error) {
	user, err := a.ds.GetUser(id)
	if err != nil {
		return nil, err
	}
	return &notification.Profile{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

func (a *profileStoreAdapter) GetReminderPrefs(id uint) (*notification.ReminderPrefs, error) {
	user, err := a.ds.GetUser(id)
	if err != nil {
		return nil, err
	}
	return &notification.ReminderPrefs{
		Enabled: user.NotificationEnabled,
		Days:    user.ReminderDays,
	}, nil
}

func (a *profileStoreAdapter) UpdateReminderPrefs(id uint, prefs *notification.ReminderPrefs) error {
	user, err := a.ds.GetUser(id)
	if err != nil {
		return err
	}
	user.NotificationEnabled = prefs.Enabled
	user.ReminderDays = prefs.Days
	return a.ds.UpdateUser(user)
}

// credentialStoreAdapter exposes saved API keys as the notification package's
// CredentialStore.
type credentialStoreAdapter struct {
	ds datastore.Interface
}

func (a *credentialStoreAdapter) GetCredentialByService(userID uint, service string) (*notification.StoredCredential, error) {
	key, err := a.ds.GetAPIKeyByService(userID, service)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}
	return &notification.StoredCredential{Key: key.APIKey, Enabled: key.Enabled}, nil
}

// BuildNotificationManager assembles the notification manager with all four
// channel adapters. Missing VAPID keys are generated and written back to the
// config so browser subscriptions survive restarts.
func BuildNotificationManager(settings *conf.Settings, ds datastore.Interface) (*notification.Manager, error) {
	log := logging.ForService("notification")

	email := notification.NewEmailAdapter(&settings.SMTP, log)
	webpush := notification.NewWebPushAdapter(log)
	pushbullet := notification.NewPushbulletAdapter(settings.Notification.PushbulletURL, log)
	pushover := notification.NewPushoverAdapter(settings.Notification.PushoverURL, log)

	registry := notification.NewStatusRegistry()

	if settings.WebPush.VAPIDPublicKey == "" || settings.WebPush.VAPIDPrivateKey == "" {
		private, public, err := notification.GenerateVAPIDKeys()
		if err != nil {
			log.Error("failed to generate VAPID keys, web push disabled", "error", err)
		} else {
			settings.WebPush.VAPIDPublicKey = public
			settings.WebPush.VAPIDPrivateKey = private
			if err := conf.SaveSettings(settings); err != nil {
				log.Warn("failed to persist generated VAPID keys", "error", err)
			} else {
				log.Info("generated new VAPID key pair")
			}
		}
	}

	if settings.WebPush.VAPIDPublicKey != "" {
		err := webpush.Initialize(notification.Credentials{
			VAPIDPublicKey:  settings.WebPush.VAPIDPublicKey,
			VAPIDPrivateKey: settings.WebPush.VAPIDPrivateKey,
			Contact:         settings.WebPush.Contact,
		})
		registry.SetInitialized(notification.ChannelWebPush, err)
		if err != nil {
			log.Error("web push initialization failed", "error", err)
		}
	}

	store := notification.NewSettingsStore(&profileStoreAdapter{ds: ds})
	manager := notification.NewManager(
		store,
		registry,
		[]notification.Adapter{email, webpush, pushbullet, pushover},
		&credentialStoreAdapter{ds: ds},
		&settings.Notification,
	)
	return manager, nil
}
