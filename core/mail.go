package core

import "net/mail"

// EmailMessage is a plain notification email.
type EmailMessage struct {
	To          []mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

// EmailService sends messages asynchronously; failures are logged, not
// returned.
type EmailService interface {
	SendMessages(messages ...*EmailMessage)
}
