package portal

import (
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleContactForm(c echo.Context) error {
	return Render(c, a.Views.Contact(false, CsrfToken(c)))
}

func (a *App) handleContactSubmit(c echo.Context) error {
	msg := ContactMessage{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Email:    strings.TrimSpace(c.FormValue("email")),
		Body:     strings.TrimSpace(c.FormValue("message")),
		OriginIP: c.RealIP(),
	}
	if msg.Name == "" || msg.Email == "" || msg.Body == "" {
		return echo.NewHTTPError(400, "name, email and message are required")
	}
	if int64(len(msg.Body)) > a.Config.MaxFieldSize {
		return echo.NewHTTPError(413, "message too long")
	}
	if err := a.Store.AddMessage(c.Request().Context(), msg); err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.Contact(true, CsrfToken(c)))
}

func (a *App) handleInbox(c echo.Context) error {
	return Render(c, a.Views.Inbox(CsrfToken(c)))
}

func (a *App) handleMessages(c echo.Context) error {
	msgs, err := a.Store.ListMessages(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.Messages(msgs))
}
