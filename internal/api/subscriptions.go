package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subtrackr/internal/datastore"
)

type subscriptionRequest struct {
	UserID          uint    `json:"userId"`
	Name            string  `json:"name"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	BillingCycle    string  `json:"billingCycle"`
	NextPaymentDate string  `json:"nextPaymentDate"`
	CategoryID      uint    `json:"categoryId"`
	ServiceID       *uint   `json:"serviceId"`
	Active          *bool   `json:"active"`
	Notes           string  `json:"notes"`
}

func (r *subscriptionRequest) toModel() (*datastore.Subscription, error) {
	if r.Name == "" {
		return nil, badRequest("name is required")
	}
	if r.UserID == 0 {
		return nil, badRequest("userId is required")
	}
	if r.Amount < 0 {
		return nil, badRequest("amount must not be negative")
	}

	due, err := time.Parse(time.RFC3339, r.NextPaymentDate)
	if err != nil {
		// accept plain dates as well
		due, err = time.Parse(time.DateOnly, r.NextPaymentDate)
		if err != nil {
			return nil, badRequest("nextPaymentDate must be RFC 3339 or YYYY-MM-DD")
		}
	}

	cycle := r.BillingCycle
	switch cycle {
	case "":
		cycle = datastore.CycleMonthly
	case datastore.CycleMonthly, datastore.CycleYearly, datastore.CycleWeekly:
	default:
		return nil, badRequest("billingCycle must be monthly, yearly or weekly")
	}

	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &datastore.Subscription{
		UserID:          r.UserID,
		Name:            r.Name,
		Amount:          r.Amount,
		Currency:        currency,
		BillingCycle:    cycle,
		NextPaymentDate: due,
		CategoryID:      r.CategoryID,
		ServiceID:       r.ServiceID,
		Active:          active,
		Notes:           r.Notes,
	}, nil
}

func (s *Server) listSubscriptions(c echo.Context) error {
	subs, err := s.DS.GetSubscriptions()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

func (s *Server) getSubscription(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sub, err := s.DS.GetSubscription(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

func (s *Server) createSubscription(c echo.Context) error {
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	sub, err := req.toModel()
	if err != nil {
		return err
	}
	if _, err := s.DS.GetUser(sub.UserID); err != nil {
		return err
	}
	if err := s.DS.CreateSubscription(sub); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sub)
}

func (s *Server) updateSubscription(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	sub, err := req.toModel()
	if err != nil {
		return err
	}
	sub.ID = id
	if err := s.DS.UpdateSubscription(sub); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

func (s *Server) deleteSubscription(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.DS.DeleteSubscription(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
