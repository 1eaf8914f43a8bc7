// Package pagination turns a page/page_size pair and a total row count
// into an offset window and page count.
//
// Compute does not validate its inputs. A page below 1 yields a negative
// offset; callers must reject such values before the window reaches a store.
package pagination

import "math"

// Window is the (offset, limit) slice of an ordered record set selected for one page.
type Window struct {
	Offset int
	Limit  int
}

// Bounds clamps the window to a sequence of length n and returns the
// [start, end) indexes. An out-of-range window yields an empty range.
func (w Window) Bounds(n int) (start, end int) {
	start = w.Offset
	if start < 0 || start > n {
		return n, n
	}
	// Compare against the remaining length so huge limits cannot overflow.
	if w.Limit < 0 || w.Limit > n-start {
		return start, n
	}
	return start, start + w.Limit
}

// Page describes one page of a listing.
type Page struct {
	Window
	Number     int // requested page, 1-based
	Size       int // requested page size
	Total      int // unfiltered row count
	TotalPages int
}

// Compute returns the window and page count for the given total, page and size.
// A non-positive size yields zero pages rather than dividing by zero.
func Compute(total, page, size int) Page {
	offset := (page - 1) * size
	if page > 1 && size > 0 && page-1 > math.MaxInt/size {
		// Saturate: a window past any real row count.
		offset = math.MaxInt
	}
	p := Page{
		Window: Window{Offset: offset, Limit: size},
		Number: page,
		Size:   size,
		Total:  total,
	}
	if size > 0 && total > 0 {
		p.TotalPages = total / size
		if total%size != 0 {
			p.TotalPages++
		}
	}
	return p
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Prev returns the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the following page number.
func (p Page) Next() int { return p.Number + 1 }
