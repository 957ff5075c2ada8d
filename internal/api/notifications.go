package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/notification"
)

// notificationSettingsResponse is the client view of a member's settings.
// Raw credentials never leave the server.
type notificationSettingsResponse struct {
	UserID       uint                          `json:"userId"`
	Email        string                        `json:"email,omitempty"`
	Channels     map[notification.Channel]bool `json:"channels"`
	ReminderDays int                           `json:"reminderDays"`
	HasPushSub   bool                          `json:"hasPushSubscription"`
}

func settingsResponse(s *notification.UserSettings) *notificationSettingsResponse {
	return &notificationSettingsResponse{
		UserID:       s.UserID,
		Email:        s.Email,
		Channels:     s.Channels,
		ReminderDays: s.ReminderDays,
		HasPushSub:   len(s.PushSubscription) > 0,
	}
}

func (s *Server) notificationStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Notifier.ChannelStatus())
}

func (s *Server) getNotificationSettings(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	settings, err := s.Notifier.EnsureUserSettings(userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settingsResponse(settings))
}

type settingsUpdateRequest struct {
	Email            *string                       `json:"email"`
	ReminderDays     *int                          `json:"reminderDays"`
	Channels         map[notification.Channel]bool `json:"channels"`
	PushbulletAPIKey *string                       `json:"pushbulletApiKey"`
	PushoverAPIKey   *string                       `json:"pushoverApiKey"` // combined token:userkey
	PushSubscription json.RawMessage               `json:"pushSubscription"`
}

func (s *Server) updateNotificationSettings(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	var req settingsUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.ReminderDays != nil && *req.ReminderDays <= 0 {
		return badRequest("reminderDays must be positive")
	}
	for ch := range req.Channels {
		if _, err := notification.ParseChannel(string(ch)); err != nil {
			return badRequest("unknown channel: " + string(ch))
		}
	}

	upd := &notification.SettingsUpdate{
		Email:            req.Email,
		ReminderDays:     req.ReminderDays,
		Channels:         req.Channels,
		PushbulletToken:  req.PushbulletAPIKey,
		PushSubscription: req.PushSubscription,
	}

	if req.PushoverAPIKey != nil {
		token, userKey, err := notification.SplitCredential(*req.PushoverAPIKey)
		if err != nil {
			return badRequest("invalid Pushover configuration, expected token:userkey")
		}
		upd.PushoverToken = &token
		upd.PushoverUserKey = &userKey
	}

	settings, err := s.Notifier.UpdateUserSettings(userID, upd)
	if err != nil {
		return err
	}

	// persist supplied credentials so channels can be recovered after restart
	if req.PushbulletAPIKey != nil && *req.PushbulletAPIKey != "" {
		s.persistAPIKey(userID, notification.ChannelPushbullet, *req.PushbulletAPIKey)
	}
	if req.PushoverAPIKey != nil && *req.PushoverAPIKey != "" {
		s.persistAPIKey(userID, notification.ChannelPushover, *req.PushoverAPIKey)
	}

	return c.JSON(http.StatusOK, settingsResponse(settings))
}

func (s *Server) persistAPIKey(userID uint, ch notification.Channel, key string) {
	err := s.DS.SaveAPIKey(&datastore.APIKey{
		UserID:  userID,
		Service: string(ch),
		APIKey:  key,
		Enabled: true,
	})
	if err != nil {
		s.log.Error("failed to persist api key", "service", ch, "user_id", userID, "error", err)
	}
}

func (s *Server) notificationHistory(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest("limit must be a positive integer")
		}
		limit = parsed
	}
	recs, err := s.DS.GetNotificationRecords(userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

type testNotificationRequest struct {
	UserID uint `json:"userId"`
}

type testNotificationResponse struct {
	Channel notification.Channel `json:"channel"`
	Success bool                 `json:"success"`
}

func (s *Server) testNotification(c echo.Context) error {
	ch, err := notification.ParseChannel(c.Param("channel"))
	if err != nil {
		return badRequest("unknown channel: " + c.Param("channel"))
	}

	var req testNotificationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	userID := req.UserID
	if userID == 0 {
		def, err := s.DS.GetDefaultUser()
		if err != nil {
			return err
		}
		userID = def.ID
	}

	// a malformed saved Pushover credential is a client configuration
	// problem, surfaced as 400 rather than a silent false
	if ch == notification.ChannelPushover && !s.Notifier.ChannelStatus()[ch].Initialized {
		if key, err := s.DS.GetAPIKeyByService(userID, string(ch)); err == nil && key != nil && key.Enabled {
			if _, _, splitErr := notification.SplitCredential(key.APIKey); splitErr != nil {
				return badRequest("invalid Pushover configuration, expected token:userkey")
			}
		}
	}

	ok, err := s.Notifier.SendTestNotification(c.Request().Context(), userID, ch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, testNotificationResponse{Channel: ch, Success: ok})
}

func (s *Server) checkNotifications(c echo.Context) error {
	res, err := s.Sweeper.CheckAndSend(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) vapidPublicKey(c echo.Context) error {
	key := s.Notifier.WebPushPublicKey()
	if key == "" {
		return echo.NewHTTPError(http.StatusNotFound, "web push is not configured")
	}
	return c.JSON(http.StatusOK, map[string]string{"publicKey": key})
}

type subscribeRequest struct {
	UserID       uint            `json:"userId"`
	Subscription json.RawMessage `json:"subscription"`
}

func (s *Server) subscribeWebPush(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.UserID == 0 {
		user, err := s.DS.GetDefaultUser()
		if err != nil {
			return err
		}
		req.UserID = user.ID
	}
	var probe struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal(req.Subscription, &probe); err != nil || probe.Endpoint == "" {
		return badRequest("subscription must carry an endpoint")
	}

	settings, err := s.Notifier.UpdateUserSettings(req.UserID, &notification.SettingsUpdate{
		PushSubscription: req.Subscription,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settingsResponse(settings))
}

type apiKeyResponse struct {
	Service   string `json:"service"`
	MaskedKey string `json:"maskedKey"`
	Enabled   bool   `json:"enabled"`
}

// maskKey hides all but the first and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func (s *Server) listAPIKeys(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	keys, err := s.DS.GetAPIKeys(userID)
	if err != nil {
		return err
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, apiKeyResponse{
			Service:   k.Service,
			MaskedKey: maskKey(k.APIKey),
			Enabled:   k.Enabled,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type saveAPIKeyRequest struct {
	UserID  uint   `json:"userId"`
	Service string `json:"service"`
	APIKey  string `json:"apiKey"`
	Enabled *bool  `json:"enabled"`
}

func (s *Server) saveAPIKey(c echo.Context) error {
	var req saveAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.UserID == 0 || req.APIKey == "" {
		return badRequest("userId and apiKey are required")
	}

	ch, err := notification.ParseChannel(req.Service)
	if err != nil || (ch != notification.ChannelPushbullet && ch != notification.ChannelPushover) {
		return badRequest("service must be pushbullet or pushover")
	}
	if _, err := s.DS.GetUser(req.UserID); err != nil {
		return err
	}

	upd := &notification.SettingsUpdate{}
	switch ch {
	case notification.ChannelPushover:
		token, userKey, err := notification.SplitCredential(req.APIKey)
		if err != nil {
			return badRequest("invalid Pushover configuration, expected token:userkey")
		}
		upd.PushoverToken = &token
		upd.PushoverUserKey = &userKey
	case notification.ChannelPushbullet:
		upd.PushbulletToken = &req.APIKey
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	key := &datastore.APIKey{
		UserID:  req.UserID,
		Service: string(ch),
		APIKey:  req.APIKey,
		Enabled: enabled,
	}
	if err := s.DS.SaveAPIKey(key); err != nil {
		return err
	}

	if enabled {
		upd.Channels = map[notification.Channel]bool{ch: true}
		if _, err := s.Notifier.UpdateUserSettings(req.UserID, upd); err != nil {
			s.log.Warn("saved key but adapter initialization failed", "service", ch, "error", err)
		}
	}

	return c.JSON(http.StatusCreated, apiKeyResponse{
		Service:   key.Service,
		MaskedKey: maskKey(key.APIKey),
		Enabled:   key.Enabled,
	})
}

func (s *Server) deleteAPIKey(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	service := c.Param("service")
	if _, err := notification.ParseChannel(service); err != nil {
		return badRequest("unknown service: " + service)
	}
	if err := s.DS.DeleteAPIKey(userID, service); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
