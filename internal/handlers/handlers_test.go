package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/auth"
	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/internal/handlers"
	"github.com/charismamove/apiserver/internal/notify"
	"github.com/charismamove/apiserver/internal/services"
	"github.com/charismamove/apiserver/internal/store"
	"github.com/charismamove/apiserver/types"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type apiFixture struct {
	srv        *httptest.Server
	dispatcher *recordingDispatcher
	issuer     *auth.Issuer
}

func newAPI(t *testing.T, policy services.ConfirmPolicy) apiFixture {
	t.Helper()

	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "api.db")}
	if err := db.MigrateUp(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	userRepo := store.NewUserRepository(conn)
	itemRepo := store.NewItemRepository(conn)
	bookingRepo := store.NewBookingRepository(conn)
	announcementRepo := store.NewAnnouncementRepository(conn)

	issuer := auth.NewIssuer("test-secret", time.Hour)
	dispatcher := &recordingDispatcher{}
	svc := handlers.Services{
		Auth:          services.NewAuthService(userRepo, issuer),
		Users:         services.NewUserService(userRepo),
		Items:         services.NewItemService(itemRepo),
		Bookings:      services.NewBookingService(bookingRepo, dispatcher, policy),
		Announcements: services.NewAnnouncementService(announcementRepo, nil),
		Admin:         services.NewAdminService(userRepo, itemRepo, bookingRepo, announcementRepo, nil),
	}
	if _, err := svc.Auth.BootstrapAdmin(context.Background(), config.AdminConfig{
		Email: "admin@example.com", Password: "admin123", Name: "Admin",
	}); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	router := chi.NewRouter()
	routes := handlers.Routes(svc)
	handlers.Mount(router, routes, svc.Auth)
	router.Route("/api-docs", func(r chi.Router) {
		handlers.DocsRouter(r, routes)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return apiFixture{srv: srv, dispatcher: dispatcher, issuer: issuer}
}

func (f apiFixture) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func (f apiFixture) login(t *testing.T, email, password string) handlers.AuthResponse {
	t.Helper()
	status, body := f.call(t, http.MethodPost, "/api/users/login", "", handlers.LoginRequest{Email: email, Password: password})
	if status != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d %s", email, status, body)
	}
	return decode[handlers.AuthResponse](t, body)
}

func (f apiFixture) register(t *testing.T, name, email string) handlers.AuthResponse {
	t.Helper()
	status, body := f.call(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": name, "email": email, "password": "pw-" + name,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %s", email, status, body)
	}
	return f.login(t, email, "pw-"+name)
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)

	status, body := f.call(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": "A", "email": "a@x.io", "password": "p1",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, body)
	}
	created := decode[map[string]any](t, body)
	if _, leaked := created["password"]; leaked {
		t.Fatalf("password hash must not be serialized: %s", body)
	}

	status, _ = f.call(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": "A2", "email": "a@x.io", "password": "p2",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", status)
	}

	status, _ = f.call(t, http.MethodPost, "/api/users/login", "", handlers.LoginRequest{Email: "a@x.io", Password: "bad"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}

	session := f.login(t, "a@x.io", "p1")
	if session.Token == "" || session.User.Email != "a@x.io" {
		t.Fatalf("unexpected login response %+v", session)
	}

	status, body = f.call(t, http.MethodGet, "/api/users/"+strconv.Itoa(session.User.ID), session.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for own profile, got %d %s", status, body)
	}
	if got := decode[types.User](t, body); got.ID != session.User.ID {
		t.Fatalf("unexpected profile %+v", got)
	}

	status, _ = f.call(t, http.MethodGet, "/api/users/"+strconv.Itoa(session.User.ID+1), session.Token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for another id, got %d", status)
	}

	status, body = f.call(t, http.MethodPut, "/api/users/"+strconv.Itoa(session.User.ID), session.Token, `{"phone":"+33600000000"}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d %s", status, body)
	}
	updated := decode[types.User](t, body)
	if updated.Name != "A" || updated.Phone == nil || *updated.Phone != "+33600000000" {
		t.Fatalf("unexpected updated profile %+v", updated)
	}

	status, _ = f.call(t, http.MethodPut, "/api/users/"+strconv.Itoa(session.User.ID), session.Token, `{"email":"b@x.io"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-profile field, got %d", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)

	cases := []string{
		`{"name":"A","email":"a@x.io"}`,
		`{"name":"A","email":"a@x.io","password":"p","is_admin":true}`,
		`{"name":`,
	}
	for _, body := range cases {
		if status, _ := f.call(t, http.MethodPost, "/api/users/register", "", body); status != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, status)
		}
	}
}

func TestAuthenticationHeader(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)

	status, _ := f.call(t, http.MethodGet, "/api/bookings", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/bookings", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed header, got %d", resp.StatusCode)
	}

	status, _ = f.call(t, http.MethodGet, "/api/bookings", "not-a-jwt", nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for an invalid token, got %d", status)
	}

	other := auth.NewIssuer("other-secret", time.Hour)
	forged, err := other.Issue(types.User{ID: 1, IsAdmin: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	status, _ = f.call(t, http.MethodGet, "/api/admin/users", forged, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for a token signed with another secret, got %d", status)
	}
}

func TestBookingLifecycle(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)
	rider := f.register(t, "rider", "rider@x.io")

	status, body := f.call(t, http.MethodPost, "/api/bookings", rider.Token, handlers.BookingRequest{
		Departure: "Paris", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "08:30", Seats: 2,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, body)
	}
	booking := decode[types.Booking](t, body)
	if booking.Status != types.BookingPending || booking.Price != 0 || booking.UserID != rider.User.ID {
		t.Fatalf("unexpected booking %+v", booking)
	}

	status, body = f.call(t, http.MethodGet, "/api/bookings", rider.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	listed := decode[[]types.Booking](t, body)
	if len(listed) != 1 || listed[0].Seats != 2 || listed[0].Status != types.BookingPending || listed[0].TravelTime != "08:30" {
		t.Fatalf("unexpected bookings %+v", listed)
	}

	confirmPath := "/api/bookings/" + strconv.Itoa(booking.ID) + "/confirm"
	for i := 0; i < 2; i++ {
		status, body = f.call(t, http.MethodPost, confirmPath, rider.Token, nil)
		if status != http.StatusOK {
			t.Fatalf("confirm #%d: expected 200, got %d %s", i+1, status, body)
		}
		resp := decode[handlers.ConfirmResponse](t, body)
		if !resp.Success || resp.Booking.Status != types.BookingConfirmed {
			t.Fatalf("unexpected confirm response %+v", resp)
		}
	}
	if got := f.dispatcher.count(); got != 2 {
		t.Fatalf("expected a notification per confirm, got %d", got)
	}

	status, _ = f.call(t, http.MethodPost, "/api/bookings/9999/confirm", rider.Token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown booking, got %d", status)
	}
	status, _ = f.call(t, http.MethodPost, "/api/bookings/abc/confirm", rider.Token, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", status)
	}

	other := f.register(t, "other", "other@x.io")
	status, _ = f.call(t, http.MethodPost, confirmPath, other.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("any user may confirm under the default policy, got %d", status)
	}
	status, body = f.call(t, http.MethodGet, "/api/bookings", other.Token, nil)
	if status != http.StatusOK || len(decode[[]types.Booking](t, body)) != 0 {
		t.Fatalf("bookings of others must not be listed: %s", body)
	}
}

func TestBookingValidation(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)
	rider := f.register(t, "rider", "rider@x.io")

	cases := []handlers.BookingRequest{
		{Departure: "Paris", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "08:30", Seats: 0},
		{Departure: "", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "08:30", Seats: 1},
		{Departure: "Paris", Arrival: "Lyon", TravelDate: "01/07/2026", TravelTime: "08:30", Seats: 1},
		{Departure: "Paris", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "8h30", Seats: 1},
	}
	for _, c := range cases {
		if status, _ := f.call(t, http.MethodPost, "/api/bookings", rider.Token, c); status != http.StatusBadRequest {
			t.Fatalf("expected 400 for %+v, got %d", c, status)
		}
	}
	if status, _ := f.call(t, http.MethodPost, "/api/bookings", rider.Token, `{"departure":"Paris","price":10}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown field, got %d", status)
	}
}

func TestConfirmOwnerOrAdminPolicy(t *testing.T) {
	f := newAPI(t, services.ConfirmOwnerOrAdmin)
	rider := f.register(t, "rider", "rider@x.io")
	other := f.register(t, "other", "other@x.io")

	_, body := f.call(t, http.MethodPost, "/api/bookings", rider.Token, handlers.BookingRequest{
		Departure: "Paris", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "08:30", Seats: 1,
	})
	booking := decode[types.Booking](t, body)
	confirmPath := "/api/bookings/" + strconv.Itoa(booking.ID) + "/confirm"

	if status, _ := f.call(t, http.MethodPost, confirmPath, other.Token, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for a stranger, got %d", status)
	}

	admin := f.login(t, "admin@example.com", "admin123")
	if status, _ := f.call(t, http.MethodPost, confirmPath, admin.Token, nil); status != http.StatusOK {
		t.Fatalf("expected admin to confirm, got %d", status)
	}
}

func TestAnnouncements(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)
	driver := f.register(t, "driver", "driver@x.io")

	publish := []handlers.AnnouncementRequest{
		{Departure: "Paris", Destination: "Lyon", Datetime: "2026-07-02T09:00", Seats: 3},
		{Departure: "Marseille", Destination: "Nice", Datetime: "2026-07-01T09:00:00Z", Seats: 1},
		{Departure: "paris-Est", Destination: "Lille", Datetime: "2026-07-03 18:15", Seats: 4},
	}
	for _, a := range publish {
		if status, body := f.call(t, http.MethodPost, "/api/announcements", driver.Token, a); status != http.StatusCreated {
			t.Fatalf("publish %+v: expected 201, got %d %s", a, status, body)
		}
	}

	if status, _ := f.call(t, http.MethodPost, "/api/announcements", "", publish[0]); status != http.StatusUnauthorized {
		t.Fatalf("publishing requires a token, got %d", status)
	}
	bad := handlers.AnnouncementRequest{Departure: "A", Destination: "B", Datetime: "tomorrow", Seats: 1}
	if status, _ := f.call(t, http.MethodPost, "/api/announcements", driver.Token, bad); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad datetime, got %d", status)
	}

	status, body := f.call(t, http.MethodGet, "/api/announcements", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	all := decode[[]types.Announcement](t, body)
	if len(all) != 3 || all[0].Departure != "Marseille" || all[2].Departure != "paris-Est" {
		t.Fatalf("expected datetime ascending order, got %+v", all)
	}

	_, body = f.call(t, http.MethodGet, "/api/announcements?departure=PARIS", "", nil)
	if got := decode[[]types.Announcement](t, body); len(got) != 2 {
		t.Fatalf("expected 2 case-insensitive departure matches, got %+v", got)
	}

	_, body = f.call(t, http.MethodGet, "/api/announcements?seats=3", "", nil)
	for _, a := range decode[[]types.Announcement](t, body) {
		if a.Seats < 3 {
			t.Fatalf("seat filter returned %+v", a)
		}
	}

	_, body = f.call(t, http.MethodGet, "/api/announcements?destination=ly&seats=2", "", nil)
	if got := decode[[]types.Announcement](t, body); len(got) != 1 || got[0].Destination != "Lyon" {
		t.Fatalf("unexpected combined filter result %+v", got)
	}

	if status, _ := f.call(t, http.MethodGet, "/api/announcements?seats=two", "", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-integer seats, got %d", status)
	}
}

func TestItems(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)

	for _, name := range []string{"Casque", "Siège bébé", "Porte-vélo"} {
		if status, body := f.call(t, http.MethodPost, "/api/items", "", map[string]string{"name": name}); status != http.StatusCreated {
			t.Fatalf("create item: expected 201, got %d %s", status, body)
		}
	}
	if status, _ := f.call(t, http.MethodPost, "/api/items", "", map[string]string{"name": " "}); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty name, got %d", status)
	}

	_, body := f.call(t, http.MethodGet, "/api/items", "", nil)
	if got := decode[[]types.Item](t, body); len(got) != 3 {
		t.Fatalf("expected 3 items, got %+v", got)
	}
	_, body = f.call(t, http.MethodGet, "/api/items?q=SI", "", nil)
	if got := decode[[]types.Item](t, body); len(got) != 1 || got[0].Name != "Siège bébé" {
		t.Fatalf("unexpected search result %+v", got)
	}
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)
	rider := f.register(t, "rider", "rider@x.io")
	idle := f.register(t, "idle", "idle@x.io")

	if status, _ := f.call(t, http.MethodPost, "/api/admin/login", "", handlers.LoginRequest{Email: "rider@x.io", Password: "pw-rider"}); status != http.StatusUnauthorized {
		t.Fatalf("non-admin admin login: expected 401, got %d", status)
	}

	status, body := f.call(t, http.MethodPost, "/api/admin/login", "", handlers.LoginRequest{Email: "admin@example.com", Password: "admin123"})
	if status != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d %s", status, body)
	}
	admin := decode[handlers.AdminAuthResponse](t, body)
	if admin.Token == "" || admin.Admin.Email != "admin@example.com" {
		t.Fatalf("unexpected admin login %+v", admin)
	}

	if status, _ := f.call(t, http.MethodGet, "/api/admin/users", rider.Token, nil); status != http.StatusForbidden {
		t.Fatalf("rider on admin route: expected 403, got %d", status)
	}

	_, body = f.call(t, http.MethodGet, "/api/admin/users", admin.Token, nil)
	if got := decode[[]types.User](t, body); len(got) != 3 {
		t.Fatalf("expected 3 users, got %d", len(got))
	}

	f.call(t, http.MethodPost, "/api/bookings", rider.Token, handlers.BookingRequest{
		Departure: "Paris", Arrival: "Lyon", TravelDate: "2026-07-01", TravelTime: "08:30", Seats: 1,
	})

	_, body = f.call(t, http.MethodGet, "/api/admin/bookings", admin.Token, nil)
	if got := decode[[]types.Booking](t, body); len(got) != 1 {
		t.Fatalf("expected 1 booking, got %+v", got)
	}

	_, body = f.call(t, http.MethodGet, "/api/admin/stats", admin.Token, nil)
	stats := decode[types.Stats](t, body)
	if stats.Users != 3 || stats.Admins != 1 || stats.BookingsPending != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if status, _ := f.call(t, http.MethodDelete, "/api/admin/users/"+strconv.Itoa(rider.User.ID), admin.Token, nil); status != http.StatusConflict {
		t.Fatalf("referenced user: expected 409, got %d", status)
	}
	if status, _ := f.call(t, http.MethodDelete, "/api/admin/users/"+strconv.Itoa(admin.Admin.ID), admin.Token, nil); status != http.StatusConflict {
		t.Fatalf("self delete: expected 409, got %d", status)
	}
	if status, _ := f.call(t, http.MethodDelete, "/api/admin/users/"+strconv.Itoa(idle.User.ID), admin.Token, nil); status != http.StatusNoContent {
		t.Fatalf("idle user: expected 204, got %d", status)
	}
	if status, _ := f.call(t, http.MethodDelete, "/api/admin/users/"+strconv.Itoa(idle.User.ID), admin.Token, nil); status != http.StatusNotFound {
		t.Fatalf("deleted user: expected 404, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/admin/exports/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected an xlsx workbook, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "bookings_export_") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestOpenAPIDocument(t *testing.T) {
	f := newAPI(t, services.ConfirmAny)

	status, body := f.call(t, http.MethodGet, "/api-docs/openapi.json", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	doc := decode[map[string]any](t, body)
	if doc["openapi"] != "3.0.0" {
		t.Fatalf("unexpected version %v", doc["openapi"])
	}
	paths := doc["paths"].(map[string]any)
	confirm, ok := paths["/api/bookings/{id}/confirm"].(map[string]any)
	if !ok {
		t.Fatalf("confirm path missing")
	}
	post := confirm["post"].(map[string]any)
	if _, ok := post["security"]; !ok {
		t.Fatalf("confirm must require bearer auth")
	}
	if _, ok := paths["/api/users/register"].(map[string]any)["post"].(map[string]any)["security"]; ok {
		t.Fatalf("register must be public")
	}
	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	user := schemas["User"].(map[string]any)["properties"].(map[string]any)
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password must not be documented")
	}

	status, body = f.call(t, http.MethodGet, "/api-docs/openapi.yaml", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for yaml, got %d", status)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(body, &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if fromYAML["info"].(map[string]any)["title"] != "CharismaMove API" {
		t.Fatalf("unexpected title %v", fromYAML["info"])
	}

	status, body = f.call(t, http.MethodGet, "/api-docs", "", nil)
	if status != http.StatusOK || !bytes.Contains(body, []byte("swagger-ui")) {
		t.Fatalf("expected the docs page, got %d", status)
	}
}
