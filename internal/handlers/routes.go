package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/types"
)

// Access is the authentication a route requires.
type Access int

const (
	Public Access = iota
	Bearer
	Admin
)

// Param documents a query parameter.
type Param struct {
	Name        string
	Type        string
	Description string
}

// Route is one API endpoint. The same table registers the handlers and
// produces the OpenAPI document.
type Route struct {
	Method   string
	Pattern  string
	Summary  string
	Tag      string
	Access   Access
	Query    []Param
	Request  any
	Status   int
	Response any
	Errors   []int
	Handler  http.HandlerFunc
}

// Services groups the use-case services the handlers depend on.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Items         *services.ItemService
	Bookings      *services.BookingService
	Announcements *services.AnnouncementService
	Admin         *services.AdminService
}

// Routes returns the API route table.
func Routes(s Services) []Route {
	authHandler := NewAuthHandler(s.Auth)
	userHandler := NewUserHandler(s.Users)
	itemHandler := NewItemHandler(s.Items)
	bookingHandler := NewBookingHandler(s.Bookings)
	announcementHandler := NewAnnouncementHandler(s.Announcements)
	adminHandler := NewAdminHandler(s.Users, s.Bookings, s.Admin)

	return []Route{
		{
			Method: http.MethodPost, Pattern: "/api/users/register", Tag: "users",
			Summary: "Register a new user", Request: RegisterRequest{},
			Status: http.StatusCreated, Response: types.User{}, Errors: []int{400, 409},
			Handler: authHandler.Register,
		},
		{
			Method: http.MethodPost, Pattern: "/api/users/login", Tag: "users",
			Summary: "Log in and receive a token", Request: LoginRequest{},
			Status: http.StatusOK, Response: AuthResponse{}, Errors: []int{400, 401},
			Handler: authHandler.Login,
		},
		{
			Method: http.MethodGet, Pattern: "/api/users/{id}", Tag: "users", Access: Bearer,
			Summary: "Get your own profile",
			Status:  http.StatusOK, Response: types.User{}, Errors: []int{400, 401, 403, 404},
			Handler: userHandler.Get,
		},
		{
			Method: http.MethodPut, Pattern: "/api/users/{id}", Tag: "users", Access: Bearer,
			Summary: "Update your own profile", Request: ProfileUpdateRequest{},
			Status: http.StatusOK, Response: types.User{}, Errors: []int{400, 401, 403, 404},
			Handler: userHandler.Update,
		},
		{
			Method: http.MethodGet, Pattern: "/api/items", Tag: "items",
			Summary: "List items",
			Query:   []Param{{Name: "q", Type: "string", Description: "Filter items by name"}},
			Status:  http.StatusOK, Response: []types.Item{}, Errors: []int{500},
			Handler: itemHandler.List,
		},
		{
			Method: http.MethodPost, Pattern: "/api/items", Tag: "items",
			Summary: "Create an item", Request: ItemRequest{},
			Status: http.StatusCreated, Response: types.Item{}, Errors: []int{400, 500},
			Handler: itemHandler.Create,
		},
		{
			Method: http.MethodPost, Pattern: "/api/bookings", Tag: "bookings", Access: Bearer,
			Summary: "Create a booking", Request: BookingRequest{},
			Status: http.StatusCreated, Response: types.Booking{}, Errors: []int{400, 401, 403},
			Handler: bookingHandler.Create,
		},
		{
			Method: http.MethodGet, Pattern: "/api/bookings", Tag: "bookings", Access: Bearer,
			Summary: "List your bookings",
			Status:  http.StatusOK, Response: []types.Booking{}, Errors: []int{401, 403},
			Handler: bookingHandler.List,
		},
		{
			Method: http.MethodPost, Pattern: "/api/bookings/{id}/confirm", Tag: "bookings", Access: Bearer,
			Summary: "Confirm a booking and notify its owner",
			Status:  http.StatusOK, Response: ConfirmResponse{}, Errors: []int{400, 401, 403, 404},
			Handler: bookingHandler.Confirm,
		},
		{
			Method: http.MethodPost, Pattern: "/api/announcements", Tag: "announcements", Access: Bearer,
			Summary: "Publish a trip announcement", Request: AnnouncementRequest{},
			Status: http.StatusCreated, Response: types.Announcement{}, Errors: []int{400, 401, 403},
			Handler: announcementHandler.Create,
		},
		{
			Method: http.MethodGet, Pattern: "/api/announcements", Tag: "announcements",
			Summary: "Search trip announcements",
			Query: []Param{
				{Name: "departure", Type: "string", Description: "Departure contains, case-insensitive"},
				{Name: "destination", Type: "string", Description: "Destination contains, case-insensitive"},
				{Name: "seats", Type: "integer", Description: "Minimum number of seats"},
			},
			Status: http.StatusOK, Response: []types.Announcement{}, Errors: []int{400},
			Handler: announcementHandler.List,
		},
		{
			Method: http.MethodPost, Pattern: "/api/admin/login", Tag: "admin",
			Summary: "Log in as an administrator", Request: LoginRequest{},
			Status: http.StatusOK, Response: AdminAuthResponse{}, Errors: []int{400, 401},
			Handler: authHandler.AdminLogin,
		},
		{
			Method: http.MethodGet, Pattern: "/api/admin/users", Tag: "admin", Access: Admin,
			Summary: "List all users",
			Status:  http.StatusOK, Response: []types.User{}, Errors: []int{401, 403},
			Handler: adminHandler.ListUsers,
		},
		{
			Method: http.MethodDelete, Pattern: "/api/admin/users/{id}", Tag: "admin", Access: Admin,
			Summary: "Delete a user without bookings or announcements",
			Status:  http.StatusNoContent, Errors: []int{400, 401, 403, 404, 409},
			Handler: adminHandler.DeleteUser,
		},
		{
			Method: http.MethodGet, Pattern: "/api/admin/bookings", Tag: "admin", Access: Admin,
			Summary: "List all bookings",
			Status:  http.StatusOK, Response: []types.Booking{}, Errors: []int{401, 403},
			Handler: adminHandler.ListBookings,
		},
		{
			Method: http.MethodGet, Pattern: "/api/admin/stats", Tag: "admin", Access: Admin,
			Summary: "Dashboard counters",
			Status:  http.StatusOK, Response: types.Stats{}, Errors: []int{401, 403},
			Handler: adminHandler.Stats,
		},
		{
			Method: http.MethodGet, Pattern: "/api/admin/exports/bookings", Tag: "admin", Access: Admin,
			Summary: "Download all bookings as XLSX",
			Status:  http.StatusOK, Errors: []int{401, 403, 500},
			Handler: adminHandler.ExportBookings,
		},
	}
}

// Mount registers routes on r, wrapping protected ones with authentication
// and the admin gate.
func Mount(r chi.Router, routes []Route, authService *services.AuthService) {
	requireAuth := RequireAuth(authService)
	for _, route := range routes {
		switch route.Access {
		case Bearer:
			r.With(requireAuth).Method(route.Method, route.Pattern, route.Handler)
		case Admin:
			r.With(requireAuth, RequireAdmin).Method(route.Method, route.Pattern, route.Handler)
		default:
			r.Method(route.Method, route.Pattern, route.Handler)
		}
	}
}
