// Package api exposes the HTTP surface: household members, subscriptions,
// the service catalog and the notification endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/logging"
	"github.com/subtrackr/subtrackr/internal/notification"
	"github.com/subtrackr/subtrackr/internal/reminder"
)

// Server wires the Echo instance to the datastore and notification manager.
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	Notifier *notification.Manager
	Sweeper  *reminder.Service

	log *slog.Logger
}

// New builds the HTTP server and registers all routes.
func New(settings *conf.Settings, ds datastore.Interface, notifier *notification.Manager, sweeper *reminder.Service) *Server {
	s := &Server{
		Echo:     echo.New(),
		DS:       ds,
		Settings: settings,
		Notifier: notifier,
		Sweeper:  sweeper,
		log:      logging.ForService("api"),
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	s.Echo.HTTPErrorHandler = s.handleError

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(settings),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	s.Echo.Use(s.requestLogger())

	s.registerRoutes()
	return s
}

func corsOrigins(settings *conf.Settings) []string {
	if len(settings.Server.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return settings.Server.CORSOrigins
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				s.log.Error("request failed", attrs...)
				return nil
			}
			s.log.Debug("request", attrs...)
			return nil
		},
	})
}

func (s *Server) registerRoutes() {
	g := s.Echo.Group("/api")

	g.GET("/users", s.listUsers)
	g.POST("/users", s.createUser)
	g.GET("/users/default", s.getDefaultUser)
	g.GET("/users/:id", s.getUser)
	g.PUT("/users/:id", s.updateUser)
	g.POST("/users/:id/default", s.setDefaultUser)
	g.DELETE("/users/:id", s.deleteUser)
	g.GET("/users/:id/subscriptions", s.listUserSubscriptions)

	g.GET("/subscriptions", s.listSubscriptions)
	g.POST("/subscriptions", s.createSubscription)
	g.GET("/subscriptions/:id", s.getSubscription)
	g.PUT("/subscriptions/:id", s.updateSubscription)
	g.DELETE("/subscriptions/:id", s.deleteSubscription)

	g.GET("/categories", s.listCategories)
	g.POST("/categories", s.createCategory)
	g.GET("/services", s.listServices)
	g.GET("/services/:id", s.getService)
	g.GET("/services/:id/plans", s.listServicePlans)

	g.GET("/notifications/status", s.notificationStatus)
	g.GET("/notifications/settings/:userId", s.getNotificationSettings)
	g.PUT("/notifications/settings/:userId", s.updateNotificationSettings)
	g.GET("/notifications/history/:userId", s.notificationHistory)
	g.POST("/notifications/test/:channel", s.testNotification)
	g.POST("/notifications/check", s.checkNotifications)
	g.GET("/notifications/vapid-public-key", s.vapidPublicKey)
	g.POST("/notifications/subscribe", s.subscribeWebPush)

	g.GET("/apikeys/:userId", s.listAPIKeys)
	g.POST("/apikeys", s.saveAPIKey)
	g.DELETE("/apikeys/:userId/:service", s.deleteAPIKey)
}

// Start begins serving and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.Echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.Echo.Shutdown(ctx)
}
