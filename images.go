package portal

import (
	"errors"
	"net/http"
	"os"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/eringen/portal/media"
)

func (a *App) handleGallery(c echo.Context) error {
	names, err := a.Content.GalleryPage(1, a.Config.GalleryPageSize)
	if err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.Gallery(a.galleryURLs(names), CsrfToken(c)))
}

// handleImageList returns one page of gallery file names as JSON.
func (a *App) handleImageList(c echo.Context) error {
	page, size, err := pageQuery(c, a.Config.GalleryPageSize)
	if err != nil {
		return httpError(err)
	}
	names, err := a.Content.GalleryPage(page, size)
	if err != nil {
		return httpError(err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}

func (a *App) handleImageCount(c echo.Context) error {
	n, err := a.Content.GalleryCount()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// handleImageAdd resizes and stores every uploaded image, then re-renders
// the gallery.
func (a *App) handleImageAdd(c echo.Context) error {
	mr, err := multipartReader(c)
	if err != nil {
		return err
	}
	_, err = a.Content.AddGalleryImages(c.Request().Context(), mr)
	a.metrics.upload("gallery", err)
	if err != nil {
		return httpError(err)
	}
	return a.handleGallery(c)
}

func (a *App) handleImageDelete(c echo.Context) error {
	err := a.Content.DeleteGalleryImage(c.Param("name"))
	if errors.Is(err, media.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

// handleSlider renders up to SliderCount random gallery images.
func (a *App) handleSlider(c echo.Context) error {
	names, err := a.Content.Slider(a.Config.SliderCount)
	if err != nil {
		return httpError(err)
	}
	return Render(c, a.Views.Slider(a.galleryURLs(names)))
}

// handleDoc serves a file from the documents directory as a download.
func (a *App) handleDoc(c echo.Context) error {
	name := c.Param("filename")
	p, err := a.Media.Path(a.Config.DocsDir, name)
	if err != nil {
		return httpError(err)
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return echo.ErrNotFound
	}
	return c.Attachment(p, name)
}

func (a *App) galleryURLs(names []string) []string {
	urls := make([]string, len(names))
	for i, n := range names {
		urls[i] = "/" + path.Join(a.Config.GalleryDir, n)
	}
	return urls
}
