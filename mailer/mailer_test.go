package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio/api/config"
)

func sampleData() ContactData {
	return ContactData{
		ID:          "c-1",
		Name:        "Ada <script>alert(1)</script>",
		Email:       "ada@example.com",
		Subject:     "Project\r\nBcc: evil@example.com",
		Message:     "Hello & welcome\nsecond line",
		IPAddress:   "203.0.113.9",
		UserAgent:   "test-agent",
		SubmittedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestOwnerNotification(t *testing.T) {
	msg, err := OwnerNotification("owner@example.com", sampleData())
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "Portfolio Contact: Project Bcc: evil@example.com", msg.Subject)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, "Hello &amp; welcome")
	assert.Contains(t, msg.Text, "Hello & welcome\nsecond line")
	assert.Contains(t, msg.Text, "IP Address: 203.0.113.9")
	assert.Contains(t, msg.Text, "2024-06-01T09:30:00Z")
}

func TestAutoReply(t *testing.T) {
	msg, err := AutoReply(sampleData())
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, AutoReplySubject, msg.Subject)
	assert.Contains(t, msg.Text, "Thank you for contacting me, Ada")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestReplyLink(t *testing.T) {
	d := ContactData{Email: "ada@example.com", Subject: "Hi there"}
	assert.Equal(t, "mailto:ada@example.com?subject=Re:%20Hi%20there", d.ReplyLink())
}

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	m, err := New(config.EmailConfig{}, zap.NewNop())
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "x@example.com"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewSMTPMailer_ResolvesService(t *testing.T) {
	m, err := NewSMTPMailer(config.EmailConfig{Service: "gmail", Username: "me@gmail.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", m.host)
	assert.Equal(t, 587, m.port)
	assert.Equal(t, "me@gmail.com", m.from)

	m, err = NewSMTPMailer(config.EmailConfig{Host: "mail.example.com", Port: 465, Username: "u", Password: "p", From: "site@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", m.host)
	assert.Equal(t, "site@example.com", m.from)

	_, err = NewSMTPMailer(config.EmailConfig{Service: "carrier-pigeon", Username: "u", Password: "p"})
	assert.Error(t, err)
}

func TestSMTPMailer_BuildValidatesAddresses(t *testing.T) {
	m := &SMTPMailer{from: "site@example.com"}

	email, err := m.build(Message{To: "ada@example.com", ReplyTo: "reply@example.com", Subject: "s", Text: "t", HTML: "<p>t</p>"})
	require.NoError(t, err)
	rcpts, err := email.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, rcpts)

	_, err = m.build(Message{To: "not an address"})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "recipient"))
}
