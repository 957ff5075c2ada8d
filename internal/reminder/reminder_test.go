package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/notification"
)

type fakeNotifier struct {
	calls   []uint
	results map[notification.Channel]bool
}

func (f *fakeNotifier) SendReminders(_ context.Context, userID uint, _ *notification.Reminder) (map[notification.Channel]bool, error) {
	f.calls = append(f.calls, userID)
	return f.results, nil
}

func newTestStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "reminder-test.db")

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCheckAndSend(t *testing.T) {
	store := newTestStore(t)

	user := &datastore.User{Name: "Alice", Email: "alice@example.com", NotificationEnabled: true, ReminderDays: 7}
	require.NoError(t, store.CreateUser(user))

	dueDate := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	sub := &datastore.Subscription{
		UserID: user.ID, Name: "Netflix", Amount: 15.99,
		NextPaymentDate: dueDate, Active: true,
	}
	require.NoError(t, store.CreateSubscription(sub))
	require.NoError(t, store.CreateSubscription(&datastore.Subscription{
		UserID: user.ID, Name: "FarAway", Amount: 5,
		NextPaymentDate: time.Now().Add(60 * 24 * time.Hour), Active: true,
	}))

	notifier := &fakeNotifier{results: map[notification.Channel]bool{
		notification.ChannelEmail:    true,
		notification.ChannelPushover: true,
		notification.ChannelWebPush:  false,
	}}
	svc := New(store, notifier)

	res, err := svc.CheckAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, user.ID, notifier.calls[0])

	recs, err := store.GetNotificationRecords(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "email,pushover", recs[0].Channels, "only accepting channels are recorded")
	assert.Equal(t, sub.ID, recs[0].SubscriptionID)

	// a second sweep must not send again for the same payment date
	res, err = svc.CheckAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, notifier.calls, 1)
}

func TestCheckAndSendSkipsDisabledUsers(t *testing.T) {
	store := newTestStore(t)

	user := &datastore.User{Name: "Quiet", NotificationEnabled: false, ReminderDays: 7}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.CreateSubscription(&datastore.Subscription{
		UserID: user.ID, Name: "Netflix", Amount: 15.99,
		NextPaymentDate: time.Now().Add(24 * time.Hour), Active: true,
	}))

	notifier := &fakeNotifier{results: map[notification.Channel]bool{notification.ChannelEmail: true}}
	res, err := New(store, notifier).CheckAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked)
	assert.Empty(t, notifier.calls)
}

func TestCheckAndSendAllChannelsRefused(t *testing.T) {
	store := newTestStore(t)

	user := &datastore.User{Name: "Alice", NotificationEnabled: true, ReminderDays: 7}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.CreateSubscription(&datastore.Subscription{
		UserID: user.ID, Name: "Netflix", Amount: 15.99,
		NextPaymentDate: time.Now().Add(24 * time.Hour), Active: true,
	}))

	notifier := &fakeNotifier{results: map[notification.Channel]bool{}}
	svc := New(store, notifier)

	res, err := svc.CheckAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Failed)

	// nothing recorded, so the next sweep retries
	res, err = svc.CheckAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, notifier.calls, 2)
}
