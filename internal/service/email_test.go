package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestFrontendEmailService(t *testing.T) {
	var gotPath, gotAuth string
	var got visaEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"sent","result":"msg-123"}`))
	}))
	defer server.Close()

	svc := NewFrontendEmailService(server.URL+"/", "s3cret", "https://pay.example/link")

	id, err := svc.SendVisaExpired(context.Background(), "u@example.com")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "/emails/bv-expired", gotPath)
	assert.Equal(t, "s3cret", gotAuth)
	assert.Equal(t, "u@example.com", got.To)
	assert.Equal(t, "Your business visa has been expired!", got.Subject)
	assert.Equal(t, "https://pay.example/link", got.PaymentLink)

	id, err = svc.SendVisaAccepted(context.Background(), "u@example.com", "https://img/x.png", "https://claim/x")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "/emails/bv-accepted", gotPath)
	assert.Equal(t, "https://img/x.png", got.BusinessVisaImage)
	assert.Equal(t, "https://claim/x", got.ClaimLink)
}

func TestFrontendEmailService_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"template missing","result":null}`))
	}))
	defer server.Close()

	svc := NewFrontendEmailService(server.URL, "s3cret", "")
	_, err := svc.SendVisaClaimed(context.Background(), "u@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template missing")
}

func TestFrontendEmailService_EmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":"sent","result":""}`))
	}))
	defer server.Close()

	svc := NewFrontendEmailService(server.URL, "s3cret", "")
	_, err := svc.SendVisaRenewed(context.Background(), "u@example.com")
	assert.Error(t, err)
}

func TestSendGridEmailService(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-Message-Id", "sg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := &sendgridSender{apiKey: "key", host: server.URL, fromEmail: "visa@example.com", fromName: "Visa"}
	svc := newEmailService(sender, "")

	id, err := svc.SendVisaClaimed(context.Background(), "u@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sg-1", id)
	assert.Equal(t, "Bearer key", gotAuth)
}

func TestSendGridEmailService_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	svc := newEmailService(&sendgridSender{apiKey: "key", host: server.URL}, "")
	_, err := svc.SendVisaClaimed(context.Background(), "u@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSMTPEmailService(t *testing.T) {
	var sent []*gomail.Message
	sender := &smtpSender{
		host: "smtp.example.com",
		port: 587,
		from: "visa@example.com",
		dial: func(d *gomail.Dialer, m ...*gomail.Message) error {
			assert.Equal(t, "smtp.example.com", d.Host)
			sent = append(sent, m...)
			return nil
		},
	}
	svc := newEmailService(sender, "https://pay.example/link")

	id, err := svc.SendVisaExpired(context.Background(), "u@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"u@example.com"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Your business visa has been expired!"}, sent[0].GetHeader("Subject"))

	sender.dial = func(*gomail.Dialer, ...*gomail.Message) error { return errors.New("connection refused") }
	_, err = svc.SendVisaRenewed(context.Background(), "u@example.com")
	assert.Error(t, err)
}

func TestRenderEmail(t *testing.T) {
	plain, html := renderEmail(emailAccepted, visaEmail{ClaimLink: "https://claim/x?a=1&b=2", BusinessVisaImage: "https://img/x.png"})
	assert.Contains(t, plain, "https://claim/x?a=1&b=2")
	assert.Contains(t, html, "https://claim/x?a=1&amp;b=2")

	plain, _ = renderEmail(emailExpired, visaEmail{PaymentLink: "https://pay"})
	assert.Contains(t, plain, "https://pay")
}
