package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

const (
	OwnerSubjectPrefix = "Portfolio Contact: "
	AutoReplySubject   = "Thank you for contacting me!"
)

// ContactData feeds both contact emails. Values are escaped at render time.
type ContactData struct {
	ID          string
	Name        string
	Email       string
	Subject     string
	Message     string
	IPAddress   string
	UserAgent   string
	SubmittedAt time.Time
}

// ReplyLink is a mailto link answering the sender with a "Re:" subject.
func (d ContactData) ReplyLink() string {
	return "mailto:" + d.Email + "?subject=" + url.PathEscape("Re: "+d.Subject)
}

// OwnerNotification builds the message sent to the site owner.
func OwnerNotification(to string, d ContactData) (Message, error) {
	msg := Message{
		To:      to,
		ReplyTo: d.Email,
		Subject: OwnerSubjectPrefix + oneLine(d.Subject),
	}
	return render(msg, "contact_notification", d)
}

// AutoReply builds the confirmation sent back to the sender.
func AutoReply(d ContactData) (Message, error) {
	msg := Message{
		To:      d.Email,
		Subject: AutoReplySubject,
	}
	return render(msg, "auto_reply", d)
}

func render(msg Message, name string, d ContactData) (Message, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", d); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", d); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	msg.HTML = html.String()
	msg.Text = text.String()
	return msg, nil
}

// oneLine keeps user input from injecting extra header lines.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
