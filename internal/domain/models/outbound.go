package models

import "strings"

// OutboundMessage is a text pushed to one WhatsApp recipient.
type OutboundMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Validate checks that both the recipient and the body are present.
func (m OutboundMessage) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return Invalid("to", "is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return Invalid("body", "is required")
	}
	return nil
}
