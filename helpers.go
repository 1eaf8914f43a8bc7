package portal

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// intParam parses an optional positive integer from raw, using def when raw
// is empty. Values below 1 fail with ErrInvalidPage.
func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, raw)
	}
	return n, nil
}

// maxPageSize caps ?page_size on admin listings.
const maxPageSize = 100

// pageQuery reads ?page and ?page_size.
func pageQuery(c echo.Context, defSize int) (page, size int, err error) {
	if page, err = intParam(c.QueryParam("page"), 1); err != nil {
		return 0, 0, err
	}
	if size, err = intParam(c.QueryParam("page_size"), defSize); err != nil {
		return 0, 0, err
	}
	if size > maxPageSize {
		return 0, 0, fmt.Errorf("%w: page_size %d exceeds %d", ErrInvalidPage, size, maxPageSize)
	}
	return page, size, nil
}

// idParam parses the :id path parameter.
func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(400, "invalid id")
	}
	return id, nil
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
