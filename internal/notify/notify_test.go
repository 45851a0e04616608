package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/mq"
	"github.com/charismamove/apiserver/types"
)

func sampleNotification(phone *string) Notification {
	return Notification{
		Booking: types.Booking{ID: 42, TravelDate: "2025-03-01", Status: types.BookingConfirmed},
		Email:   "rider@example.com",
		Phone:   phone,
	}
}

func TestMessageTexts(t *testing.T) {
	n := sampleNotification(nil)
	if got := n.EmailText(); got != "Votre réservation du 2025-03-01 est confirmée." {
		t.Fatalf("unexpected email text %q", got)
	}
	if got := n.SMSText(); got != "Réservation confirmée pour le 2025-03-01" {
		t.Fatalf("unexpected sms text %q", got)
	}
}

func TestSendGridRequest(t *testing.T) {
	var got mail.SGMailV3
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if NewSendGrid("", "from@example.com", srv.URL, time.Second) != nil {
		t.Fatalf("expected sendgrid to be disabled without api key")
	}

	sg := NewSendGrid("key", "from@example.com", srv.URL+"/v3/mail/send", time.Second)
	if err := sg.SendEmail(context.Background(), "to@example.com", Subject, "body"); err != nil {
		t.Fatalf("send email: %v", err)
	}
	if auth != "Bearer key" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if path != "/v3/mail/send" {
		t.Fatalf("unexpected request path %q", path)
	}
	if got.From == nil || got.From.Address != "from@example.com" || got.Subject != Subject {
		t.Fatalf("unexpected mail: %+v", got)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Address != "to@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.Personalizations)
	}
	if got.Content[0].Type != "text/plain" || got.Content[0].Value != "body" {
		t.Fatalf("unexpected content: %+v", got.Content)
	}
}

func TestSendGridErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sg := NewSendGrid("key", "from@example.com", srv.URL, time.Second)
	if err := sg.SendEmail(context.Background(), "to@example.com", Subject, "body"); err == nil {
		t.Fatalf("expected error for 401 response")
	}
}

func TestTextbelt(t *testing.T) {
	var got textbeltRequest
	success := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(textbeltResponse{Success: success, Error: "quota exceeded"})
	}))
	defer srv.Close()

	tb := NewTextbelt("", srv.URL, time.Second)
	if err := tb.SendSMS(context.Background(), "+33600000000", "hello"); err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if got.Key != DefaultTextbeltKey || got.Phone != "+33600000000" || got.Message != "hello" {
		t.Fatalf("unexpected request: %+v", got)
	}

	success = false
	if err := tb.SendSMS(context.Background(), "+33600000000", "hello"); err == nil {
		t.Fatalf("expected error when textbelt reports failure")
	}
}

type recordingSender struct {
	mu     sync.Mutex
	emails []string
	sms    []string
	err    error
}

func (r *recordingSender) SendEmail(ctx context.Context, to, subject, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, to+"|"+subject+"|"+text)
	return r.err
}

func (r *recordingSender) SendSMS(ctx context.Context, phone, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sms = append(r.sms, phone+"|"+message)
	return r.err
}

func TestSenderChannels(t *testing.T) {
	rec := &recordingSender{}
	sender := NewSender(rec, rec)

	if err := sender.Deliver(context.Background(), sampleNotification(nil)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(rec.emails) != 1 || len(rec.sms) != 0 {
		t.Fatalf("expected email only, got %d emails %d sms", len(rec.emails), len(rec.sms))
	}

	phone := "+33600000000"
	if err := sender.Deliver(context.Background(), sampleNotification(&phone)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(rec.emails) != 2 || len(rec.sms) != 1 {
		t.Fatalf("expected email and sms, got %d emails %d sms", len(rec.emails), len(rec.sms))
	}
	if rec.sms[0] != "+33600000000|Réservation confirmée pour le 2025-03-01" {
		t.Fatalf("unexpected sms %q", rec.sms[0])
	}

	rec.err = errors.New("boom")
	if err := sender.Deliver(context.Background(), sampleNotification(&phone)); err == nil {
		t.Fatalf("expected joined error")
	}

	noEmail := NewSender(nil, rec)
	if err := noEmail.Deliver(context.Background(), sampleNotification(nil)); err != nil {
		t.Fatalf("expected nothing to be sent, got %v", err)
	}
}

type deliverFunc func(ctx context.Context, n Notification) error

func (f deliverFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

func TestPoolDispatcherOutlivesRequest(t *testing.T) {
	delivered := make(chan Notification, 1)
	dispatcher, err := NewPoolDispatcher(deliverFunc(func(ctx context.Context, n Notification) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered <- n
		return nil
	}), 2, time.Second)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer dispatcher.Close(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dispatcher.Dispatch(ctx, sampleNotification(nil))

	select {
	case n := <-delivered:
		if n.Booking.ID != 42 {
			t.Fatalf("unexpected notification %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was not delivered")
	}
}

func TestPoolDispatcherDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	calls := make(chan struct{}, 4)
	dispatcher, err := NewPoolDispatcher(deliverFunc(func(ctx context.Context, n Notification) error {
		calls <- struct{}{}
		<-release
		return nil
	}), 1, time.Second)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	dispatcher.Dispatch(context.Background(), sampleNotification(nil))
	<-calls
	dispatcher.Dispatch(context.Background(), sampleNotification(nil))
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := dispatcher.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("second notification should have been dropped")
	}
	_ = dispatcher.Close(time.Second)
}

func TestBrokerRoundTrip(t *testing.T) {
	broker := mq.NewMemory()
	defer broker.Close()

	phone := "+33600000000"
	if err := NewPublish(broker, "booking.confirmed").Deliver(context.Background(), sampleNotification(&phone)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rec := &recordingSender{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	consumer := NewConsumer(broker, "booking.confirmed", deliverFunc(func(ctx context.Context, n Notification) error {
		err := NewSender(rec, rec).Deliver(ctx, n)
		close(done)
		return err
	}))
	go func() { _ = consumer.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was not consumed")
	}
	if len(rec.emails) != 1 || rec.emails[0] != "rider@example.com|Confirmation de réservation|Votre réservation du 2025-03-01 est confirmée." {
		t.Fatalf("unexpected emails %v", rec.emails)
	}
	if len(rec.sms) != 1 {
		t.Fatalf("expected one sms, got %v", rec.sms)
	}
}

func TestConsumerAcksInvalidPayload(t *testing.T) {
	consumer := NewConsumer(mq.NewMemory(), "booking.confirmed", deliverFunc(func(ctx context.Context, n Notification) error {
		t.Fatalf("deliverer must not be called")
		return nil
	}))
	if err := consumer.handle(context.Background(), mq.Message{ID: "1", Data: []byte("not json")}); err != nil {
		t.Fatalf("invalid payloads must be acknowledged, got %v", err)
	}
}

func TestSetupSelectsBackend(t *testing.T) {
	ctx := context.Background()

	dispatcher, closeFn, err := Setup(ctx, config.Config{Notify: config.NotifyConfig{Backend: "none"}})
	if err != nil {
		t.Fatalf("setup none: %v", err)
	}
	if _, ok := dispatcher.(Discard); !ok {
		t.Fatalf("expected Discard, got %T", dispatcher)
	}
	closeFn()

	dispatcher, closeFn, err = Setup(ctx, config.Config{Notify: config.NotifyConfig{Backend: "memory", Channel: "booking.confirmed", Timeout: time.Second}})
	if err != nil {
		t.Fatalf("setup memory: %v", err)
	}
	if _, ok := dispatcher.(*PoolDispatcher); !ok {
		t.Fatalf("expected PoolDispatcher, got %T", dispatcher)
	}
	closeFn()

	if _, _, err := Setup(ctx, config.Config{Notify: config.NotifyConfig{Backend: "rabbitmq"}}); err == nil {
		t.Fatalf("expected rabbitmq without url to fail")
	}

	sender := NewSenderFromConfig(config.NotifyConfig{})
	if sender.Email != nil {
		t.Fatalf("email must be disabled without sendgrid credentials")
	}
	if sender.SMS == nil {
		t.Fatalf("sms must always be wired")
	}
}

func TestSetupMemoryDeliversInProcess(t *testing.T) {
	var mu sync.Mutex
	var emails, texts []string
	delivered := make(chan struct{}, 2)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/v3/mail/send":
			var m mail.SGMailV3
			_ = json.NewDecoder(r.Body).Decode(&m)
			emails = append(emails, m.Personalizations[0].To[0].Address)
			w.WriteHeader(http.StatusAccepted)
		case "/text":
			var req textbeltRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			texts = append(texts, req.Phone)
			_ = json.NewEncoder(w).Encode(textbeltResponse{Success: true})
		}
		delivered <- struct{}{}
	}))
	defer provider.Close()

	dispatcher, closeFn, err := Setup(context.Background(), config.Config{Notify: config.NotifyConfig{
		Backend:        "memory",
		Channel:        "booking.confirmed",
		PoolSize:       2,
		Timeout:        time.Second,
		SendGridAPIKey: "key",
		FromEmail:      "from@example.com",
		SendGridURL:    provider.URL + "/v3/mail/send",
		TextbeltURL:    provider.URL + "/text",
	}})
	if err != nil {
		t.Fatalf("setup memory: %v", err)
	}
	defer closeFn()

	phone := "+33600000000"
	dispatcher.Dispatch(context.Background(), sampleNotification(&phone))
	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(3 * time.Second):
			t.Fatalf("notification never reached the providers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(emails) != 1 || emails[0] != "rider@example.com" {
		t.Fatalf("unexpected emails %v", emails)
	}
	if len(texts) != 1 || texts[0] != phone {
		t.Fatalf("unexpected sms %v", texts)
	}
}

func TestSetupMemoryDrainsPastBuffer(t *testing.T) {
	var sent atomic.Int64
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent.Add(1)
		_ = json.NewEncoder(w).Encode(textbeltResponse{Success: true})
	}))
	defer provider.Close()

	dispatcher, closeFn, err := Setup(context.Background(), config.Config{Notify: config.NotifyConfig{
		Backend:     "memory",
		Channel:     "booking.confirmed",
		PoolSize:    4,
		Timeout:     5 * time.Second,
		TextbeltURL: provider.URL,
	}})
	if err != nil {
		t.Fatalf("setup memory: %v", err)
	}
	defer closeFn()
	pool := dispatcher.(*PoolDispatcher)

	const total = 150
	phone := "+33600000000"
	for i := 0; i < total; i++ {
		dispatcher.Dispatch(context.Background(), sampleNotification(&phone))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := pool.Wait(ctx)
		cancel()
		if err != nil {
			t.Fatalf("publish %d blocked: %v", i, err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for sent.Load() < total && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sent.Load(); got != total {
		t.Fatalf("expected %d deliveries, got %d", total, got)
	}
}
