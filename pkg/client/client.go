// Package client is a typed Go client for the Charisma'Move API together
// with the session persistence and page navigation of its front ends.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/charismamove/apiserver/types"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client calls the API. The bearer token is attached to every request once
// set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

type Registration struct {
	Name      string  `json:"name"`
	FirstName *string `json:"first_name,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Phone     *string `json:"phone,omitempty"`
}

type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

type NewBooking struct {
	Departure  string `json:"departure"`
	Arrival    string `json:"arrival"`
	TravelDate string `json:"travel_date"`
	TravelTime string `json:"travel_time"`
	Seats      int    `json:"seats"`
}

type NewAnnouncement struct {
	Departure   string `json:"departure"`
	Destination string `json:"destination"`
	Datetime    string `json:"datetime"`
	Seats       int    `json:"seats"`
}

type AdminIdentity struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type adminLoginResponse struct {
	Token string        `json:"token"`
	Admin AdminIdentity `json:"admin"`
}

type confirmResponse struct {
	Success bool          `json:"success"`
	Booking types.Booking `json:"booking"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg Registration) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPost, "/api/users/register", nil, reg, &user)
	return user, err
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/login", nil, credentials{email, password}, &resp); err != nil {
		return Session{}, err
	}
	c.token = resp.Token
	return Session{Token: resp.Token, User: resp.User}, nil
}

// AdminLogin authenticates an administrator and stores the token.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (Session, error) {
	var resp adminLoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", nil, credentials{email, password}, &resp); err != nil {
		return Session{}, err
	}
	c.token = resp.Token
	return Session{
		Token: resp.Token,
		User:  types.User{ID: resp.Admin.ID, Name: resp.Admin.Name, Email: resp.Admin.Email, IsAdmin: true},
	}, nil
}

func (c *Client) GetUser(ctx context.Context, id int) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/api/users/"+strconv.Itoa(id), nil, nil, &user)
	return user, err
}

func (c *Client) UpdateUser(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPut, "/api/users/"+strconv.Itoa(id), nil, update, &user)
	return user, err
}

func (c *Client) ListItems(ctx context.Context, q string) ([]types.Item, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	var items []types.Item
	err := c.do(ctx, http.MethodGet, "/api/items", query, nil, &items)
	return items, err
}

func (c *Client) CreateItem(ctx context.Context, name string) (types.Item, error) {
	var item types.Item
	err := c.do(ctx, http.MethodPost, "/api/items", nil, map[string]string{"name": name}, &item)
	return item, err
}

func (c *Client) CreateBooking(ctx context.Context, b NewBooking) (types.Booking, error) {
	var booking types.Booking
	err := c.do(ctx, http.MethodPost, "/api/bookings", nil, b, &booking)
	return booking, err
}

// ListBookings returns the caller's bookings, newest first.
func (c *Client) ListBookings(ctx context.Context) ([]types.Booking, error) {
	var bookings []types.Booking
	err := c.do(ctx, http.MethodGet, "/api/bookings", nil, nil, &bookings)
	return bookings, err
}

func (c *Client) ConfirmBooking(ctx context.Context, id int) (types.Booking, error) {
	var resp confirmResponse
	err := c.do(ctx, http.MethodPost, "/api/bookings/"+strconv.Itoa(id)+"/confirm", nil, nil, &resp)
	return resp.Booking, err
}

func (c *Client) PublishAnnouncement(ctx context.Context, a NewAnnouncement) (types.Announcement, error) {
	var announcement types.Announcement
	err := c.do(ctx, http.MethodPost, "/api/announcements", nil, a, &announcement)
	return announcement, err
}

func (c *Client) SearchAnnouncements(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, error) {
	query := url.Values{}
	if filter.Departure != "" {
		query.Set("departure", filter.Departure)
	}
	if filter.Destination != "" {
		query.Set("destination", filter.Destination)
	}
	if filter.MinSeats > 0 {
		query.Set("seats", strconv.Itoa(filter.MinSeats))
	}
	var announcements []types.Announcement
	err := c.do(ctx, http.MethodGet, "/api/announcements", query, nil, &announcements)
	return announcements, err
}

func (c *Client) AdminUsers(ctx context.Context) ([]types.User, error) {
	var users []types.User
	err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, nil, &users)
	return users, err
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/users/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) AdminBookings(ctx context.Context) ([]types.Booking, error) {
	var bookings []types.Booking
	err := c.do(ctx, http.MethodGet, "/api/admin/bookings", nil, nil, &bookings)
	return bookings, err
}

func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &stats)
	return stats, err
}

// ExportBookings downloads the XLSX export and returns its suggested file
// name with the content.
func (c *Client) ExportBookings(ctx context.Context) (string, []byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/admin/exports/bookings", nil, nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}

	filename := "bookings.xlsx"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return filename, data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	return nil, apiErr
}
