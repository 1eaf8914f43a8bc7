package views

import (
	"fmt"

	"github.com/eringen/portal"
)

// pageURL links to one page of the admin listing of kind.
func pageURL(kind portal.Kind, page, size int) string {
	return fmt.Sprintf("/admin/%s?page=%d&page_size=%d", kind.Plural(), page, size)
}
