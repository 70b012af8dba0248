package mailer

import (
	"fmt"
	"io"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/ticket"

	gomail "gopkg.in/gomail.v2"
)

// DeliveryError marks a transport failure: unreachable relay, rejected
// recipient, auth failure or a send that exceeded the timeout. The caller
// may retry with the same artifact.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "deliver ticket: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

// SMTPMailer delivers ticket artifacts by email. Sending the same artifact
// twice is safe; the message content is derived only from the artifact and
// the order, so a retried send is byte-identical.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// Cleanup removes the stored artifact once the transport has accepted
	// the message, never before. Off by default so repeated confirmations
	// reuse the same document.
	Cleanup bool
	Store   *ticket.Store
}

func NewSMTPMailer(host string, port int, username, password, from string, timeout time.Duration) *SMTPMailer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Timeout:  timeout,
	}
}

// Send mails the ticket to the recipient with the artifact attached. A
// dial or send that does not return within the timeout is treated as a
// DeliveryError rather than hanging the confirmation call.
func (m *SMTPMailer) Send(artifact ticket.Artifact, recipient string, order models.Order) error {
	if recipient == "" {
		return &DeliveryError{Err: fmt.Errorf("no recipient for order %s", order.ID)}
	}

	msg := m.buildMessage(artifact, recipient, order)
	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	errc := make(chan error, 1)
	go func() {
		errc <- dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return &DeliveryError{Err: err}
		}
	case <-time.After(m.Timeout):
		return &DeliveryError{Err: fmt.Errorf("smtp send timed out after %s", m.Timeout)}
	}

	// Transport accepted the message; only now is the local copy disposable.
	if m.Cleanup && m.Store != nil {
		_ = m.Store.Discard(artifact.OrderID)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(artifact ticket.Artifact, recipient string, order models.Order) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", fmt.Sprintf("Your ticket - %s", order.ID))
	msg.SetBody("text/plain", "Attached is your ticket. Show this at entry.")
	msg.Attach(artifact.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(artifact.Data)
		return err
	}))
	return msg
}
