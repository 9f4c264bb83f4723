package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

type emailKind string

const (
	emailAccepted emailKind = "bv-accepted"
	emailClaimed  emailKind = "bv-claimed"
	emailExpired  emailKind = "bv-expired"
	emailRenewed  emailKind = "bv-renewed"
)

var emailSubjects = map[emailKind]string{
	emailAccepted: "Your Business Visa is ready!",
	emailClaimed:  "Thanks for claiming your business visa!",
	emailExpired:  "Your business visa has been expired!",
	emailRenewed:  "Your business visa has been renewed!",
}

// visaEmail is the payload shared by every backend.
type visaEmail struct {
	To                string `json:"to"`
	Subject           string `json:"subject"`
	BusinessVisaImage string `json:"businessVisaImage,omitempty"`
	ClaimLink         string `json:"claimLink,omitempty"`
	PaymentLink       string `json:"paymentLink,omitempty"`
}

// emailSender delivers one rendered email and returns the provider message id.
type emailSender interface {
	send(ctx context.Context, kind emailKind, msg visaEmail) (string, error)
	name() string
}

type emailService struct {
	sender      emailSender
	paymentLink string
}

func newEmailService(sender emailSender, paymentLink string) EmailService {
	return &emailService{sender: sender, paymentLink: paymentLink}
}

func (s *emailService) SendVisaAccepted(ctx context.Context, to, imageURL, claimLink string) (string, error) {
	return s.dispatch(ctx, emailAccepted, visaEmail{To: to, BusinessVisaImage: imageURL, ClaimLink: claimLink})
}

func (s *emailService) SendVisaClaimed(ctx context.Context, to string) (string, error) {
	return s.dispatch(ctx, emailClaimed, visaEmail{To: to})
}

func (s *emailService) SendVisaExpired(ctx context.Context, to string) (string, error) {
	return s.dispatch(ctx, emailExpired, visaEmail{To: to, PaymentLink: s.paymentLink})
}

func (s *emailService) SendVisaRenewed(ctx context.Context, to string) (string, error) {
	return s.dispatch(ctx, emailRenewed, visaEmail{To: to})
}

func (s *emailService) dispatch(ctx context.Context, kind emailKind, msg visaEmail) (id string, err error) {
	msg.Subject = emailSubjects[kind]
	service := "email-" + s.sender.name()
	logger.ExternalServiceCall(service, string(kind), "to", msg.To)
	defer func() {
		metrics.RecordGatewayCall(service, string(kind), err)
		logger.ExternalServiceResult(service, string(kind), err, "email_id", id)
	}()

	id, err = s.sender.send(ctx, kind, msg)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%s email to %s returned no message id", kind, msg.To)
	}
	return id, nil
}

// Frontend API backend: the frontend owns the templates.

type frontendSender struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

type frontendEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// NewFrontendEmailService posts templated emails to {baseURL}/emails/{template}.
func NewFrontendEmailService(baseURL, secret, paymentLink string) EmailService {
	return newEmailService(&frontendSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, paymentLink)
}

func (f *frontendSender) name() string { return "frontend" }

func (f *frontendSender) send(ctx context.Context, kind emailKind, msg visaEmail) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/emails/"+string(kind), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.secret)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var env frontendEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode %s email response (%s): %w", kind, resp.Status, err)
	}
	if !env.Success {
		return "", fmt.Errorf("error sending %s email: %s", kind, env.Message)
	}

	var id string
	if err := json.Unmarshal(env.Result, &id); err != nil {
		return "", fmt.Errorf("decode %s email id: %w", kind, err)
	}
	return id, nil
}

// SendGrid backend

const sendgridHost = "https://api.sendgrid.com"

type sendgridSender struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName, paymentLink string) EmailService {
	return newEmailService(&sendgridSender{
		apiKey:    apiKey,
		host:      sendgridHost,
		fromEmail: fromEmail,
		fromName:  fromName,
	}, paymentLink)
}

func (s *sendgridSender) name() string { return "sendgrid" }

func (s *sendgridSender) send(ctx context.Context, kind emailKind, msg visaEmail) (string, error) {
	plain, htmlBody := renderEmail(kind, msg)
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, plain, htmlBody)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 && ids[0] != "" {
		return ids[0], nil
	}
	return uuid.NewString(), nil
}

// SMTP backend

type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	dial     func(d *gomail.Dialer, m ...*gomail.Message) error
}

func NewSMTPEmailService(host string, port int, username, password, from, paymentLink string) EmailService {
	return newEmailService(&smtpSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		dial:     (*gomail.Dialer).DialAndSend,
	}, paymentLink)
}

func (s *smtpSender) name() string { return "smtp" }

func (s *smtpSender) send(ctx context.Context, kind emailKind, msg visaEmail) (string, error) {
	plain, htmlBody := renderEmail(kind, msg)
	id := uuid.NewString()

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@business-visa>", id))
	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := s.dial(d, m); err != nil {
		return "", fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return id, nil
}

func renderEmail(kind emailKind, msg visaEmail) (plain, htmlBody string) {
	switch kind {
	case emailAccepted:
		plain = fmt.Sprintf("Your Dean's List business visa is ready.\n\nClaim it here: %s", msg.ClaimLink)
		htmlBody = fmt.Sprintf(`<p>Your Dean's List business visa is ready.</p><p><img src="%s" alt="Business visa" width="480"></p><p><a href="%s">Claim your visa</a></p>`,
			html.EscapeString(msg.BusinessVisaImage), html.EscapeString(msg.ClaimLink))
	case emailClaimed:
		plain = "Thanks for claiming your business visa. It is now active."
		htmlBody = "<p>Thanks for claiming your business visa. It is now active.</p>"
	case emailExpired:
		plain = fmt.Sprintf("Your business visa has expired. Renew it using this link: %s", msg.PaymentLink)
		htmlBody = fmt.Sprintf(`<p>Your business visa has expired.</p><p><a href="%s">Renew your visa</a></p>`, html.EscapeString(msg.PaymentLink))
	case emailRenewed:
		plain = "Your business visa has been renewed for another 30 days."
		htmlBody = "<p>Your business visa has been renewed for another 30 days.</p>"
	}
	return plain, htmlBody
}
