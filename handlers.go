package portal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	return Render(c, a.Views.Home(a.Config.Name))
}

// handlePublicList serves /<kind>s/:page. With main_page=true the smaller
// front page size is used.
func (a *App) handlePublicList(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		mainPage := c.QueryParam("main_page") == "true"
		size := a.Config.PublicPageSize
		if mainPage {
			size = a.Config.MainPageSize
		}
		page, err := intParam(c.Param("page"), 1)
		if err != nil {
			return httpError(err)
		}
		items, p, err := a.Content.List(c.Request().Context(), kind, page, size)
		if err != nil {
			return httpError(err)
		}
		return Render(c, a.Views.PublicList(kind, items, p, mainPage))
	}
}

func (a *App) handleDetail(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		item, err := a.Content.Get(c.Request().Context(), kind, id)
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		if err != nil {
			return httpError(err)
		}
		return Render(c, a.Views.ContentDetail(item))
	}
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c)
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		cause := err
		if ok && he.Internal != nil {
			cause = he.Internal
		}
		c.Logger().Errorf("server error: %v", cause)
		a.logger.Error("request failed", slog.String("path", c.Path()), slog.Any("err", cause))
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
