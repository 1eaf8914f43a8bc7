package portal

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/portal/pagination"
)

const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// renderRSS writes the latest announcements as an RSS 2.0 feed.
func (a *App) renderRSS(c echo.Context) error {
	items, _, err := a.Store.ListContent(c.Request().Context(), Announcement, pagination.Window{Limit: feedSize})
	if err != nil {
		return httpError(err)
	}
	base := a.Config.URL
	feedItems := make([]rssItem, 0, len(items))
	for _, it := range items {
		pubDate := ""
		if t, err := time.Parse(a.Config.DateLayout, it.Date); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		}
		link := BuildURL(base, it.Link())
		feedItems = append(feedItems, rssItem{
			Title:       it.Title,
			Link:        link,
			Description: it.Body,
			Author:      it.Author,
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base),
			Description: a.Config.Name + " announcements",
			Items:       feedItems,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
