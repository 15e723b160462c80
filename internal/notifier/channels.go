package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"time"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

// smtpSender sends email through a plain SMTP relay.
type smtpSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender builds the email channel from configuration.
func NewSMTPSender(cfg config.Config) EmailSender {
	s := cfg.Notify.SMTP
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return &smtpSender{
		addr: fmt.Sprintf("%s:%d", s.Host, s.Port),
		auth: auth,
		from: s.From,
	}
}

func (s *smtpSender) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return errorbank.Unavailable("smtp send failed", errorbank.WithCause(err))
	}
	return nil
}

// whatsappSender posts messages to an HTTP WhatsApp gateway.
type whatsappSender struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewWhatsAppSender builds the WhatsApp channel from configuration.
func NewWhatsAppSender(cfg config.Config) WhatsAppSender {
	return &whatsappSender{
		apiURL:     cfg.Notify.WhatsApp.APIURL,
		token:      cfg.Notify.WhatsApp.Token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *whatsappSender) Send(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": text,
	})
	if err != nil {
		return errorbank.Internal("encode whatsapp message", errorbank.WithCause(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, bytes.NewReader(payload))
	if err != nil {
		return errorbank.Internal("build whatsapp request", errorbank.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return errorbank.Unavailable("whatsapp request failed", errorbank.WithCause(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorbank.Unavailable(fmt.Sprintf("whatsapp gateway returned status %d", resp.StatusCode))
	}
	return nil
}
