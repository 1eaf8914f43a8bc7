package portal

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/portal/media"
	"github.com/eringen/portal/upload"
)

var (
	// ErrNotFound is returned when no row matches a lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a username is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStoreUnavailable wraps database failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidPage is returned for page or page_size values below 1 and
	// for oversized page_size values.
	ErrInvalidPage = errors.New("invalid page")
)

// httpStatus maps an error to the response code the handlers send.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, upload.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrMissingField),
		errors.Is(err, upload.ErrInvalidEncoding),
		errors.Is(err, upload.ErrMalformed),
		errors.Is(err, media.ErrUnsupportedImage),
		errors.Is(err, media.ErrInvalidName),
		errors.Is(err, ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// httpError converts err into an *echo.HTTPError for the central handler.
// Server-side failures keep their cause for logging but show a generic message.
func httpError(err error) error {
	// The body limit middleware fails reads with its own HTTP error.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		return echo.NewHTTPError(code).SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}
