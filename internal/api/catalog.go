package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subtrackr/internal/datastore"
)

func (s *Server) listCategories(c echo.Context) error {
	cats, err := s.DS.GetCategories()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (s *Server) createCategory(c echo.Context) error {
	var cat datastore.Category
	if err := c.Bind(&cat); err != nil {
		return badRequest("invalid request body")
	}
	if cat.Name == "" {
		return badRequest("name is required")
	}
	cat.ID = 0
	if err := s.DS.CreateCategory(&cat); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) listServices(c echo.Context) error {
	services, err := s.DS.GetServices()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, services)
}

func (s *Server) getService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	service, err := s.DS.GetService(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, service)
}

func (s *Server) listServicePlans(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.DS.GetService(id); err != nil {
		return err
	}
	plans, err := s.DS.GetServicePlans(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}
