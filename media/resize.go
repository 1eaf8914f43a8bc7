package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when input bytes cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("media: unsupported image")

const webpQuality = 80

// Filter names a resampling filter.
type Filter string

const (
	Lanczos    Filter = "lanczos"
	CatmullRom Filter = "catmullrom"
	Linear     Filter = "linear"
	Box        Filter = "box"
	Nearest    Filter = "nearest"
)

// ParseFilter maps a case-insensitive filter name to a Filter.
func ParseFilter(name string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case Lanczos, CatmullRom, Linear, Box, Nearest:
		return f, nil
	}
	return "", fmt.Errorf("media: unknown filter %q", name)
}

func (f Filter) resample() imaging.ResampleFilter {
	switch f {
	case CatmullRom:
		return imaging.CatmullRom
	case Linear:
		return imaging.Linear
	case Box:
		return imaging.Box
	case Nearest:
		return imaging.NearestNeighbor
	default:
		return imaging.Lanczos
	}
}

// Resize decodes src, resamples it to exactly width x height (aspect ratio is
// not preserved) and re-encodes the result as WebP.
func Resize(src io.Reader, width, height int, filter Filter) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("media: invalid target size %dx%d", width, height)
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	dst := imaging.Resize(img, width, height, filter.resample())

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, fmt.Errorf("media: encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
