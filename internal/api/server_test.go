package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/notification"
	"github.com/subtrackr/subtrackr/internal/reminder"
)

type testEnv struct {
	server *Server
	ds     datastore.Interface
}

// newTestEnv builds a server over a temp SQLite database. Push providers are
// pointed at a stub that accepts everything.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	providerStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(providerStub.Close)

	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "api-test.db")
	settings.Notification.Timeout = 5 * time.Second
	settings.Notification.PushbulletURL = providerStub.URL
	settings.Notification.PushoverURL = providerStub.URL

	ds := datastore.New(settings)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	notifier := buildTestNotifier(settings, ds)
	sweeper := reminder.New(ds, notifier)
	return &testEnv{server: New(settings, ds, notifier, sweeper), ds: ds}
}

// buildTestNotifier mirrors the production wiring minus VAPID generation.
func buildTestNotifier(settings *conf.Settings, ds datastore.Interface) *notification.Manager {
	registry := notification.NewStatusRegistry()
	adapters := []notification.Adapter{
		notification.NewEmailAdapter(&settings.SMTP, nil),
		notification.NewWebPushAdapter(nil),
		notification.NewPushbulletAdapter(settings.Notification.PushbulletURL, nil),
		notification.NewPushoverAdapter(settings.Notification.PushoverURL, nil),
	}
	store := notification.NewSettingsStore(&profileStoreAdapter{ds: ds})
	return notification.NewManager(store, registry, adapters, &credentialStoreAdapter{ds: ds}, &settings.Notification)
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users",
		`{"name":"Alice","email":"alice@example.com","color":"#ef4444","isDefault":true,"notificationEnabled":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alice := decode[datastore.User](t, rec)
	assert.NotZero(t, alice.ID)
	assert.Equal(t, 7, alice.ReminderDays, "reminder window defaults when omitted")

	rec = env.do(t, http.MethodPost, "/api/users", `{"email":"no-name@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]datastore.User](t, rec)
	assert.Len(t, users, 1)

	rec = env.do(t, http.MethodGet, "/api/users/default", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.ID, decode[datastore.User](t, rec).ID)

	rec = env.do(t, http.MethodGet, "/api/users/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/users/9999", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users",
		`{"name":"Bob","email":"bob@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decode[datastore.User](t, rec)

	rec = env.do(t, http.MethodPost, "/api/users/"+jsonUint(bob.ID)+"/default", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[datastore.User](t, rec).IsDefault)

	rec = env.do(t, http.MethodGet, "/api/users/default", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bob.ID, decode[datastore.User](t, rec).ID)

	rec = env.do(t, http.MethodPost, "/api/users/9999/default", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/users/"+jsonUint(alice.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func jsonUint(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", `{"name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)

	body := `{"userId":` + jsonUint(alice.ID) + `,"name":"Netflix","amount":15.99,"nextPaymentDate":"2026-09-15"}`
	rec = env.do(t, http.MethodPost, "/api/subscriptions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[datastore.Subscription](t, rec)
	assert.Equal(t, "USD", sub.Currency)
	assert.Equal(t, datastore.CycleMonthly, sub.BillingCycle)
	assert.True(t, sub.Active)

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name string
			body string
		}{
			{"missing name", `{"userId":1,"amount":5,"nextPaymentDate":"2026-09-15"}`},
			{"bad date", `{"userId":1,"name":"X","amount":5,"nextPaymentDate":"soon"}`},
			{"bad cycle", `{"userId":1,"name":"X","amount":5,"nextPaymentDate":"2026-09-15","billingCycle":"daily"}`},
			{"negative amount", `{"userId":1,"name":"X","amount":-5,"nextPaymentDate":"2026-09-15"}`},
		}
		for _, tc := range cases {
			rec := env.do(t, http.MethodPost, "/api/subscriptions", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		}
	})

	rec = env.do(t, http.MethodPost, "/api/subscriptions",
		`{"userId":9999,"name":"Orphan","amount":5,"nextPaymentDate":"2026-09-15"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, "subscription for unknown member is rejected")

	rec = env.do(t, http.MethodGet, "/api/users/"+jsonUint(alice.ID)+"/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]datastore.Subscription](t, rec), 1)
}

func TestNotificationSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", `{"name":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)
	id := jsonUint(alice.ID)

	rec = env.do(t, http.MethodGet, "/api/notifications/settings/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[notificationSettingsResponse](t, rec)
	assert.True(t, settings.Channels[notification.ChannelEmail])
	assert.False(t, settings.Channels[notification.ChannelPushbullet])
	assert.Equal(t, "alice@example.com", settings.Email)

	// enabling pushbullet without a credential is silently downgraded
	rec = env.do(t, http.MethodPut, "/api/notifications/settings/"+id,
		`{"channels":{"pushbullet":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings = decode[notificationSettingsResponse](t, rec)
	assert.False(t, settings.Channels[notification.ChannelPushbullet])

	// supplying a token initializes the adapter and the enable sticks
	rec = env.do(t, http.MethodPut, "/api/notifications/settings/"+id,
		`{"pushbulletApiKey":"o.abcdefghij","channels":{"pushbullet":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings = decode[notificationSettingsResponse](t, rec)
	assert.True(t, settings.Channels[notification.ChannelPushbullet])

	// the key was persisted, masked on read
	rec = env.do(t, http.MethodGet, "/api/apikeys/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	keys := decode[[]apiKeyResponse](t, rec)
	require.Len(t, keys, 1)
	assert.Equal(t, "pushbullet", keys[0].Service)
	assert.Equal(t, "o.ab...ghij", keys[0].MaskedKey)

	rec = env.do(t, http.MethodPut, "/api/notifications/settings/"+id,
		`{"pushoverApiKey":"not-a-valid-pair"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/notifications/settings/"+id, `{"reminderDays":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/notifications/settings/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/notifications/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[notification.Channel]notification.Status](t, rec)
	require.Len(t, status, 4)
	assert.True(t, status[notification.ChannelEmail].Enabled)
	assert.False(t, status[notification.ChannelPushover].Initialized)
}

func TestTestNotificationEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", `{"name":"Alice","email":"alice@example.com","isDefault":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)

	t.Run("unknown channel", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/notifications/test/sms", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("email succeeds via log transport", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/notifications/test/email",
			`{"userId":`+jsonUint(alice.ID)+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[testNotificationResponse](t, rec)
		assert.True(t, resp.Success)
	})

	t.Run("defaults to default member", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/notifications/test/email", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[testNotificationResponse](t, rec).Success)
	})

	t.Run("unconfigured pushbullet reports false", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/notifications/test/pushbullet",
			`{"userId":`+jsonUint(alice.ID)+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[testNotificationResponse](t, rec).Success)
	})

	t.Run("recovers saved pushbullet key", func(t *testing.T) {
		require.NoError(t, env.ds.SaveAPIKey(&datastore.APIKey{
			UserID: alice.ID, Service: "pushbullet", APIKey: "o.abcdefghij", Enabled: true,
		}))
		rec := env.do(t, http.MethodPost, "/api/notifications/test/pushbullet",
			`{"userId":`+jsonUint(alice.ID)+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[testNotificationResponse](t, rec).Success)
	})

	t.Run("malformed saved pushover key is 400", func(t *testing.T) {
		require.NoError(t, env.ds.SaveAPIKey(&datastore.APIKey{
			UserID: alice.ID, Service: "pushover", APIKey: "missing-colon", Enabled: true,
		}))
		rec := env.do(t, http.MethodPost, "/api/notifications/test/pushover",
			`{"userId":`+jsonUint(alice.ID)+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWebPushEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/notifications/vapid-public-key", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no VAPID keys configured in tests")

	rec = env.do(t, http.MethodPost, "/api/users", `{"name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)

	rec = env.do(t, http.MethodPost, "/api/notifications/subscribe",
		`{"userId":`+jsonUint(alice.ID)+`,"subscription":{"keys":{}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "subscription without endpoint is rejected")

	rec = env.do(t, http.MethodPost, "/api/notifications/subscribe",
		`{"userId":`+jsonUint(alice.ID)+`,"subscription":{"endpoint":"https://push.example.com/x","keys":{"p256dh":"k","auth":"a"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[notificationSettingsResponse](t, rec)
	assert.True(t, settings.HasPushSub)
	assert.False(t, settings.Channels[notification.ChannelWebPush],
		"webpush stays off while VAPID is unconfigured")

	rec = env.do(t, http.MethodPost, "/api/notifications/subscribe",
		`{"subscription":{"endpoint":"https://push.example.com/y","keys":{"p256dh":"k","auth":"a"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, "missing userId resolves to the default member")
	assert.True(t, decode[notificationSettingsResponse](t, rec).HasPushSub)
}

func TestAPIKeyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", `{"name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)
	id := jsonUint(alice.ID)

	rec = env.do(t, http.MethodPost, "/api/apikeys",
		`{"userId":`+id+`,"service":"email","apiKey":"whatever"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only push provider keys are stored")

	rec = env.do(t, http.MethodPost, "/api/apikeys",
		`{"userId":`+id+`,"service":"pushover","apiKey":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/apikeys",
		`{"userId":`+id+`,"service":"pushover","apiKey":"azGDORePK8gMaC0QOYAMyEEuzJnyUi:uQiRzpo4DXghDmr9QzzfQu27cmVRsG"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[apiKeyResponse](t, rec)
	assert.Equal(t, "azGD...VRsG", created.MaskedKey)

	// saving a valid key initializes and enables the channel
	rec = env.do(t, http.MethodGet, "/api/notifications/settings/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[notificationSettingsResponse](t, rec)
	assert.True(t, settings.Channels[notification.ChannelPushover])

	rec = env.do(t, http.MethodDelete, "/api/apikeys/"+id+"/pushover", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/apikeys/"+id+"/pushover", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckNotificationsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users",
		`{"name":"Alice","email":"alice@example.com","notificationEnabled":true,"reminderDays":7}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	alice := decode[datastore.User](t, rec)

	due := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	rec = env.do(t, http.MethodPost, "/api/subscriptions",
		`{"userId":`+jsonUint(alice.ID)+`,"name":"Netflix","amount":15.99,"nextPaymentDate":"`+due+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/notifications/check", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[reminder.Result](t, rec)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Sent, "email via log transport accepts the reminder")

	// second run is suppressed by the notification record
	rec = env.do(t, http.MethodPost, "/api/notifications/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[reminder.Result](t, rec)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)

	rec = env.do(t, http.MethodGet, "/api/notifications/history/"+jsonUint(alice.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[[]datastore.NotificationRecord](t, rec)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Channels, "email")
}
