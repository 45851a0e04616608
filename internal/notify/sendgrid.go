package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const DefaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGrid sends email through the SendGrid v3 mail API.
type SendGrid struct {
	apiKey   string
	from     *mail.Email
	host     string
	endpoint string
	client   *rest.Client
}

// NewSendGrid returns nil when apiKey or from is empty, which disables email.
// endpoint overrides the mail send URL, mainly for tests.
func NewSendGrid(apiKey, from, endpoint string, timeout time.Duration) *SendGrid {
	if apiKey == "" || from == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if endpoint == "" || err != nil || u.Host == "" {
		u, _ = url.Parse(DefaultSendGridURL)
	}
	return &SendGrid{
		apiKey:   apiKey,
		from:     mail.NewEmail("", from),
		host:     u.Scheme + "://" + u.Host,
		endpoint: u.EscapedPath(),
		client:   &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (s *SendGrid) SendEmail(ctx context.Context, to, subject, text string) error {
	message := mail.NewV3MailInit(s.from, subject, mail.NewEmail("", to), mail.NewContent("text/plain", text))

	request := sendgrid.GetRequest(s.apiKey, s.endpoint, s.host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(message)

	resp, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid responded with status %d", resp.StatusCode)
	}
	return nil
}
