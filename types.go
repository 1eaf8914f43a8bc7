package portal

import "fmt"

// Kind selects one of the two content tables. Both share a schema.
type Kind int

const (
	Announcement Kind = iota
	Article
)

// Kinds lists every content kind, in route registration order.
var Kinds = []Kind{Announcement, Article}

// table is the only place a Kind becomes SQL text; it never comes from input.
func (k Kind) table() string {
	switch k {
	case Article:
		return "articles"
	default:
		return "announcements"
	}
}

// Plural is the kind's collection name as used in URLs ("announcements").
func (k Kind) Plural() string { return k.table() }

// Singular is the kind's item name as used in URLs ("announcement").
func (k Kind) Singular() string {
	if k == Article {
		return "article"
	}
	return "announcement"
}

func (k Kind) String() string { return k.Singular() }

// ContentItem is one announcement or article.
type ContentItem struct {
	Kind      Kind
	ID        int64
	ImagePath string // store-relative, e.g. /assets/image/upload/<uuid>.jpg
	Title     string
	Body      string // HTML produced by the admin editor
	Date      string // display formatted; ordering uses ID
	Author    string
}

// Link returns the public detail URL path of the item.
func (c ContentItem) Link() string {
	return fmt.Sprintf("/%s/%d", c.Kind.Singular(), c.ID)
}

// User is a staff account. PasswordHash is never sent to views.
type User struct {
	Name         string
	Username     string
	PasswordHash string
}

// ContactMessage is a visitor message. Messages are append-only.
type ContactMessage struct {
	Name     string
	Email    string
	Body     string
	OriginIP string
}

// Actor is the authenticated identity performing a write.
type Actor struct {
	Username    string
	DisplayName string
}

// Attribution is the author string recorded on content the actor writes.
func (a Actor) Attribution() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}
