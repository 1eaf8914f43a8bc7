package portal

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/portal/pagination"
)

const sitemapLimit = 1000

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

func (a *App) renderSitemap(c echo.Context) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "contact")},
	}
	for _, k := range Kinds {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, k.Plural(), "1")})
		items, _, err := a.Store.ListContent(c.Request().Context(), k, pagination.Window{Limit: sitemapLimit})
		if err != nil {
			return httpError(err)
		}
		for _, it := range items {
			urls = append(urls, sitemapURL{Loc: BuildURL(base, it.Link())})
		}
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
