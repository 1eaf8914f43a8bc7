package portal

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const userListTrigger = "refreshUserList"

func (a *App) handleUsers(c echo.Context) error {
	return Render(c, a.Views.Users(CsrfToken(c)))
}

func (a *App) handleUserList(c echo.Context) error {
	return a.renderUserList(c)
}

func (a *App) handleUserAddForm(c echo.Context) error {
	return Render(c, a.Views.UserForm(User{}, CsrfToken(c)))
}

func (a *App) handleUserEditForm(c echo.Context) error {
	u, err := a.Store.GetUser(c.Request().Context(), c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.UserForm(u, CsrfToken(c)))
}

func (a *App) handleUserAdd(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if name == "" || username == "" || password == "" {
		return echo.NewHTTPError(400, "name, username and password are required")
	}
	if err := a.Store.AddUser(c.Request().Context(), name, username, password); err != nil {
		return httpError(err)
	}
	a.logger.Info("user added", "username", username, "actor", actorFrom(c).Username)
	return a.renderUserList(c)
}

// handleUserEdit updates name and username; the password changes only when
// a new one is supplied.
func (a *App) handleUserEdit(c echo.Context) error {
	current := c.Param("username")
	name := strings.TrimSpace(c.FormValue("name"))
	username := strings.TrimSpace(c.FormValue("username"))
	if name == "" || username == "" {
		return echo.NewHTTPError(400, "name and username are required")
	}
	if err := a.Store.EditUser(c.Request().Context(), current, name, username, c.FormValue("password")); err != nil {
		return httpError(err)
	}
	a.logger.Info("user edited", "username", current, "new_username", username, "actor", actorFrom(c).Username)
	return a.renderUserList(c)
}

func (a *App) handleUserDelete(c echo.Context) error {
	username := c.Param("username")
	if err := a.Store.DeleteUser(c.Request().Context(), username); err != nil {
		return httpError(err)
	}
	a.logger.Info("user deleted", "username", username, "actor", actorFrom(c).Username)
	return a.renderUserList(c)
}

func (a *App) renderUserList(c echo.Context) error {
	users, err := a.Store.ListUsers(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("HX-Trigger", userListTrigger)
	return Render(c, a.Views.UserList(users, CsrfToken(c)))
}
