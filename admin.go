package portal

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if _, ok := SessionActor(c); !ok {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

func (a *App) handleDashboard(c echo.Context) error {
	return Render(c, a.Views.AdminDashboard(actorFrom(c), CsrfToken(c)))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	username := strings.TrimSpace(c.FormValue("username"))
	ok, name, err := a.Store.Authenticate(c.Request().Context(), username, c.FormValue("password"))
	if err != nil {
		return httpError(err)
	}
	if !ok {
		a.loginLimiter.Record(ip)
		a.logger.Warn("login failed", "username", username, "ip", ip)
		return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
	}
	if err := setActorSession(c, Actor{Username: username, DisplayName: name}); err != nil {
		return err
	}
	a.loginLimiter.Reset(ip)
	return c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

func handleLogout(c echo.Context) error {
	if err := clearActorSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func (a *App) handleAdminList(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, size, err := pageQuery(c, a.Config.AdminPageSize)
		if err != nil {
			return httpError(err)
		}
		return a.renderAdminList(c, kind, page, size)
	}
}

func (a *App) handleAddForm(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		return Render(c, a.Views.AdminForm(kind, ContentItem{Kind: kind}, CsrfToken(c)))
	}
}

func (a *App) handleEditForm(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		item, err := a.Content.Get(c.Request().Context(), kind, id)
		if err != nil {
			return httpError(err)
		}
		return Render(c, a.Views.AdminForm(kind, item, CsrfToken(c)))
	}
}

func (a *App) handleAdd(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		mr, err := multipartReader(c)
		if err != nil {
			return err
		}
		_, err = a.Content.Add(c.Request().Context(), kind, mr, actorFrom(c))
		a.metrics.upload(kind.Plural(), err)
		if err != nil {
			return httpError(err)
		}
		return a.renderAdminList(c, kind, 1, a.Config.AdminPageSize)
	}
}

func (a *App) handleEdit(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		mr, err := multipartReader(c)
		if err != nil {
			return err
		}
		_, err = a.Content.Edit(c.Request().Context(), kind, mr, actorFrom(c))
		a.metrics.upload(kind.Plural(), err)
		if err != nil {
			return httpError(err)
		}
		return a.renderAdminList(c, kind, 1, a.Config.AdminPageSize)
	}
}

func (a *App) handleDelete(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		if err := a.Content.Delete(c.Request().Context(), kind, id, actorFrom(c)); err != nil {
			return httpError(err)
		}
		return a.renderAdminList(c, kind, 1, a.Config.AdminPageSize)
	}
}

func (a *App) renderAdminList(c echo.Context, kind Kind, page, size int) error {
	items, p, err := a.Content.List(c.Request().Context(), kind, page, size)
	if err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.AdminList(kind, items, p, CsrfToken(c)))
}

// multipartReader returns a streaming reader over the request body. The
// body must not have been parsed already.
func multipartReader(c echo.Context) (*multipart.Reader, error) {
	mr, err := c.Request().MultipartReader()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "expected multipart/form-data").SetInternal(err)
	}
	return mr, nil
}
