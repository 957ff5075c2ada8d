// Package reminder implements the due-subscription sweep that finds upcoming
// payments and dispatches reminders for them. Sweeps run only when asked, via
// the HTTP check endpoint or the notify subcommand.
package reminder

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/logging"
	"github.com/subtrackr/subtrackr/internal/notification"
)

// Notifier is the slice of the notification manager the sweep needs.
type Notifier interface {
	SendReminders(ctx context.Context, userID uint, rem *notification.Reminder) (map[notification.Channel]bool, error)
}

// Service performs due-subscription sweeps.
type Service struct {
	ds       datastore.Interface
	notifier Notifier
	log      *slog.Logger
}

func New(ds datastore.Interface, notifier Notifier) *Service {
	return &Service{
		ds:       ds,
		notifier: notifier,
		log:      logging.ForService("reminder"),
	}
}

// Result summarizes one sweep.
type Result struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// CheckAndSend finds every active subscription due within each member's
// reminder window and sends a reminder for those not already notified for the
// upcoming payment. One reminder per payment occurrence: a subscription is
// skipped when a notification record for its payment date already exists.
func (s *Service) CheckAndSend(ctx context.Context) (*Result, error) {
	// sweep id correlates the log lines of one run
	log := s.log.With("sweep_id", uuid.NewString())

	users, err := s.ds.GetUsers()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := range users {
		user := &users[i]
		if !user.NotificationEnabled {
			continue
		}

		days := user.ReminderDays
		if days <= 0 {
			days = 7
		}
		due, err := s.ds.GetDueSubscriptions(user.ID, time.Duration(days)*24*time.Hour)
		if err != nil {
			log.Error("failed to load due subscriptions", "user_id", user.ID, "error", err)
			res.Failed++
			continue
		}

		for i := range due {
			sub := &due[i]
			res.Checked++

			notified, err := s.ds.HasNotificationRecord(sub.ID, sub.NextPaymentDate)
			if err != nil {
				log.Error("failed to check notification history", "subscription_id", sub.ID, "error", err)
				res.Failed++
				continue
			}
			if notified {
				res.Skipped++
				continue
			}

			results, err := s.notifier.SendReminders(ctx, user.ID, &notification.Reminder{
				SubscriptionName: sub.Name,
				DueDate:          sub.NextPaymentDate,
				Amount:           sub.Amount,
			})
			if err != nil {
				log.Error("reminder dispatch failed", "subscription_id", sub.ID, "error", err)
				res.Failed++
				continue
			}

			accepted := acceptedChannels(results)
			if len(accepted) == 0 {
				log.Warn("no channel accepted reminder", "subscription_id", sub.ID, "user_id", user.ID)
				res.Failed++
				continue
			}

			rec := &datastore.NotificationRecord{
				UserID:         user.ID,
				SubscriptionID: sub.ID,
				PaymentDate:    sub.NextPaymentDate,
				Channels:       strings.Join(accepted, ","),
			}
			if err := s.ds.CreateNotificationRecord(rec); err != nil {
				log.Error("failed to record reminder", "subscription_id", sub.ID, "error", err)
			}
			res.Sent++
			log.Info("reminder sent",
				"subscription", sub.Name,
				"user_id", user.ID,
				"channels", rec.Channels,
				"due", sub.NextPaymentDate.Format(time.DateOnly))
		}
	}
	return res, nil
}

func acceptedChannels(results map[notification.Channel]bool) []string {
	var accepted []string
	for ch, ok := range results {
		if ok {
			accepted = append(accepted, string(ch))
		}
	}
	sort.Strings(accepted)
	return accepted
}
