// Package email delivers rendered briefings through the SendGrid v3 API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"morningbrief/internal/infra/httpclient"
	"morningbrief/internal/shared/logging"
)

// DefaultBaseURL is the public SendGrid API.
const DefaultBaseURL = "https://api.sendgrid.com"

const source = "sendgrid"

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Config configures the sender.
type Config struct {
	BaseURL  string
	APIKey   string
	FromName string
}

// SendGridSender posts messages to /v3/mail/send.
type SendGridSender struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewSendGridSender creates a sender. httpClient may be nil.
func NewSendGridSender(cfg Config, httpClient *http.Client, logger logging.Logger) (*SendGridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	logger = logging.OrNop(logger)
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultTimeout, logger)
	}
	return &SendGridSender{cfg: cfg, httpClient: httpClient, logger: logger}, nil
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// Send delivers msg. Any non-2xx response is returned as an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		return errors.New("email: from address is required")
	}
	if len(msg.To) == 0 {
		return errors.New("email: at least one recipient is required")
	}

	recipients := make([]address, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, address{Email: to})
	}
	// SendGrid requires text/plain to precede text/html.
	var parts []content
	if msg.Text != "" {
		parts = append(parts, content{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		parts = append(parts, content{Type: "text/html", Value: msg.HTML})
	}
	if len(parts) == 0 {
		return errors.New("email: message has no content")
	}

	payload, err := json.Marshal(mailRequest{
		Personalizations: []personalization{{To: recipients}},
		From:             address{Email: msg.From, Name: s.cfg.FromName},
		Subject:          msg.Subject,
		Content:          parts,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	if err := httpclient.DoJSON(s.httpClient, req, source, nil); err != nil {
		return err
	}
	s.logger.Info("Email: sent %q to %d recipient(s)", msg.Subject, len(msg.To))
	return nil
}
