package client

import "github.com/samber/lo"

// Page names a screen of a front end.
type Page string

const (
	PageHome          Page = "home"
	PageSearchResults Page = "search-results"
	PageTripDetails   Page = "trip-details"
	PageBooking       Page = "booking"
	PageMyBookings    Page = "my-bookings"
	PagePublish       Page = "publish"
	PageProfile       Page = "profile"
	PageLogin         Page = "login"
	PageRegister      Page = "register"
	PageAbout         Page = "about"

	PageDashboard Page = "dashboard"
	PageUsers     Page = "users"
	PageSettings  Page = "settings"
)

// Layout describes the pages of one front end.
type Layout struct {
	Name      string
	Default   Page
	Pages     []Page
	Protected []Page
}

var (
	RiderLayout = Layout{
		Name:    "rider",
		Default: PageHome,
		Pages: []Page{
			PageHome, PageSearchResults, PageTripDetails, PageBooking, PageMyBookings,
			PagePublish, PageProfile, PageLogin, PageRegister, PageAbout,
		},
		Protected: []Page{PageBooking, PageMyBookings, PagePublish, PageProfile},
	}

	AdminLayout = Layout{
		Name:      "admin",
		Default:   PageDashboard,
		Pages:     []Page{PageLogin, PageDashboard, PageUsers, PageSettings},
		Protected: []Page{PageDashboard, PageUsers, PageSettings},
	}
)

// Shell is the page-state machine of a front end. Navigation is a plain
// assignment without history.
type Shell struct {
	layout  Layout
	current Page
	session Session
}

// NewShell starts on the layout's default page with session, which may be
// empty.
func NewShell(layout Layout, session Session) *Shell {
	s := &Shell{layout: layout, session: session}
	s.Navigate(layout.Default)
	return s
}

func (s *Shell) Current() Page {
	return s.current
}

func (s *Shell) Session() Session {
	return s.session
}

func (s *Shell) IsAuthenticated() bool {
	return s.session.Valid()
}

// Navigate moves to page and returns the page actually shown. Unknown pages
// show the default page; protected pages show login until authenticated.
func (s *Shell) Navigate(page Page) Page {
	if !lo.Contains(s.layout.Pages, page) {
		page = s.layout.Default
	}
	if !s.IsAuthenticated() && lo.Contains(s.layout.Protected, page) {
		page = PageLogin
	}
	s.current = page
	return page
}

// SignIn records session and shows the default page.
func (s *Shell) SignIn(session Session) Page {
	s.session = session
	return s.Navigate(s.layout.Default)
}

// SignOut drops the session and shows the default page.
func (s *Shell) SignOut() Page {
	s.session = Session{}
	return s.Navigate(s.layout.Default)
}
