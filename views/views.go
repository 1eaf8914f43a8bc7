// Package views provides the default HTML components for a portal site.
// Pages and htmx fragments are html/template files embedded in the binary
// and exposed as templ components.
package views

import (
	"embed"
	"html/template"
	"path"

	"github.com/a-h/templ"

	"github.com/eringen/portal"
	"github.com/eringen/portal/pagination"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"basename": path.Base,
	"pageURL":  pageURL,
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}

// base holds the layout and every fragment. Each page is parsed into its own
// clone because all pages define "content".
var base = template.Must(template.New("base").Funcs(funcs).ParseFS(files,
	"templates/layout.html", "templates/fragments.html"))

func page(file string) *template.Template {
	return template.Must(template.Must(base.Clone()).ParseFS(files, "templates/"+file))
}

var (
	homePage      = page("home.html")
	detailPage    = page("detail.html")
	contactPage   = page("contact.html")
	loginPage     = page("login.html")
	dashboardPage = page("dashboard.html")
	usersPage     = page("users.html")
	inboxPage     = page("inbox.html")
	galleryPage   = page("gallery.html")
	notFoundPage  = page("notfound.html")
	errorPage     = page("error.html")
)

// render executes the named template of t as a templ component.
func render(t *template.Template, name string, data any) templ.Component {
	return templ.FromGoHTML(t.Lookup(name), data)
}

type listData struct {
	Kind     portal.Kind
	Items    []portal.ContentItem
	Page     pagination.Page
	MainPage bool
	CSRF     string
}

type formData struct {
	Kind portal.Kind
	Item portal.ContentItem
	Edit bool
	CSRF string
}

type pageData struct {
	Site  string
	Title string
	CSRF  string
	Data  any
}

// Default returns ViewFuncs rendering the embedded templates for a site
// called site.
func Default(site string) portal.ViewFuncs {
	full := func(t *template.Template, title, csrf string, data any) templ.Component {
		return render(t, "layout", pageData{Site: site, Title: title, CSRF: csrf, Data: data})
	}

	return portal.ViewFuncs{
		Home: func(name string) templ.Component {
			return full(homePage, name, "", portal.Kinds)
		},
		PublicList: func(kind portal.Kind, items []portal.ContentItem, p pagination.Page, mainPage bool) templ.Component {
			return render(base, "public_list", listData{Kind: kind, Items: items, Page: p, MainPage: mainPage})
		},
		ContentDetail: func(item portal.ContentItem) templ.Component {
			return full(detailPage, item.Title, "", item)
		},
		Contact: func(sent bool, csrf string) templ.Component {
			return full(contactPage, "Contact", csrf, sent)
		},

		AdminLogin: func(showError bool, csrf string) templ.Component {
			return full(loginPage, "Login", csrf, showError)
		},
		AdminDashboard: func(actor portal.Actor, csrf string) templ.Component {
			return full(dashboardPage, "Dashboard", csrf, actor)
		},
		AdminList: func(kind portal.Kind, items []portal.ContentItem, p pagination.Page, csrf string) templ.Component {
			return render(base, "admin_list", listData{Kind: kind, Items: items, Page: p, CSRF: csrf})
		},
		AdminForm: func(kind portal.Kind, item portal.ContentItem, csrf string) templ.Component {
			return render(base, "admin_form", formData{Kind: kind, Item: item, Edit: item.ID != 0, CSRF: csrf})
		},

		Users: func(csrf string) templ.Component {
			return full(usersPage, "Users", csrf, nil)
		},
		UserList: func(users []portal.User, csrf string) templ.Component {
			return render(base, "user_list", pageData{CSRF: csrf, Data: users})
		},
		UserForm: func(user portal.User, csrf string) templ.Component {
			return render(base, "user_form", pageData{CSRF: csrf, Data: user})
		},

		Inbox: func(csrf string) templ.Component {
			return full(inboxPage, "Inbox", csrf, nil)
		},
		Messages: func(msgs []portal.ContactMessage) templ.Component {
			return render(base, "messages", msgs)
		},

		Gallery: func(images []string, csrf string) templ.Component {
			return full(galleryPage, "Gallery", csrf, images)
		},
		Slider: func(images []string) templ.Component {
			return render(base, "slider", images)
		},

		NotFound: func() templ.Component {
			return full(notFoundPage, "Not found", "", nil)
		},
		ServerError: func() templ.Component {
			return full(errorPage, "Error", "", nil)
		},
	}
}
