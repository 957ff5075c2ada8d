package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subtrackr/internal/datastore"
)

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, badRequest("invalid id")
	}
	return uint(id), nil
}

type userRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Color               string `json:"color"`
	AvatarURL           string `json:"avatarUrl"`
	IsDefault           bool   `json:"isDefault"`
	NotificationEnabled bool   `json:"notificationEnabled"`
	ReminderDays        int    `json:"reminderDays"`
}

func (s *Server) listUsers(c echo.Context) error {
	users, err := s.DS.GetUsers()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) getUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := s.DS.GetUser(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) getDefaultUser(c echo.Context) error {
	user, err := s.DS.GetDefaultUser()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) createUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.Name == "" {
		return badRequest("name is required")
	}
	if req.ReminderDays <= 0 {
		req.ReminderDays = 7
	}

	user := &datastore.User{
		Name:                req.Name,
		Email:               req.Email,
		Color:               req.Color,
		AvatarURL:           req.AvatarURL,
		IsDefault:           req.IsDefault,
		NotificationEnabled: req.NotificationEnabled,
		ReminderDays:        req.ReminderDays,
	}
	if err := s.DS.CreateUser(user); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) updateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.Name == "" {
		return badRequest("name is required")
	}

	user := &datastore.User{
		ID:                  id,
		Name:                req.Name,
		Email:               req.Email,
		Color:               req.Color,
		AvatarURL:           req.AvatarURL,
		IsDefault:           req.IsDefault,
		NotificationEnabled: req.NotificationEnabled,
		ReminderDays:        req.ReminderDays,
	}
	if err := s.DS.UpdateUser(user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) setDefaultUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.DS.SetDefaultUser(id); err != nil {
		return err
	}
	user, err := s.DS.GetUser(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) deleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.DS.DeleteUser(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listUserSubscriptions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.DS.GetUser(id); err != nil {
		return err
	}
	subs, err := s.DS.GetSubscriptionsByUser(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}
