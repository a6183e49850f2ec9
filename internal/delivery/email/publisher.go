package email

import (
	"context"
	"fmt"
	"strings"

	"morningbrief/internal/delivery/render"
	"morningbrief/internal/domain/briefing"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Your Morning Briefing"

// Sender sends one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Envelope addresses a published briefing.
type Envelope struct {
	From          string
	To            []string
	Subject       string
	RecipientName string
}

// Publisher renders a briefing and mails it.
type Publisher struct {
	sender   Sender
	envelope Envelope
}

// NewPublisher builds a publisher for the given envelope.
func NewPublisher(sender Sender, envelope Envelope) *Publisher {
	if strings.TrimSpace(envelope.Subject) == "" {
		envelope.Subject = DefaultSubject
	}
	return &Publisher{sender: sender, envelope: envelope}
}

// Publish renders b to HTML with a plain-text alternative and sends it.
func (p *Publisher) Publish(ctx context.Context, b briefing.Briefing) error {
	document, err := render.Compose(b, render.Options{RecipientName: p.envelope.RecipientName})
	if err != nil {
		return err
	}
	text, err := render.PlainText(document)
	if err != nil {
		return fmt.Errorf("plain text alternative: %w", err)
	}
	return p.sender.Send(ctx, Message{
		From:    p.envelope.From,
		To:      p.envelope.To,
		Subject: p.envelope.Subject,
		HTML:    document,
		Text:    text,
	})
}
