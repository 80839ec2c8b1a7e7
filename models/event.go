package models

import (
	"time"
)

// EventType names a tracked action.
type EventType string

const (
	EventPageView          EventType = "page_view"
	EventContactFormView   EventType = "contact_form_view"
	EventContactFormSubmit EventType = "contact_form_submit"
	EventProjectClick      EventType = "project_click"
	EventResumeDownload    EventType = "resume_download"

	// EventAPIRequest is written by the server itself for inbound API calls
	// and is never accepted from clients.
	EventAPIRequest EventType = "api_request"
)

// ClientEventTypes are the types accepted from the tracking endpoint.
var ClientEventTypes = []EventType{
	EventPageView,
	EventContactFormView,
	EventContactFormSubmit,
	EventProjectClick,
	EventResumeDownload,
}

// IsClientType reports whether t may be submitted by a browser.
func (t EventType) IsClientType() bool {
	for _, c := range ClientEventTypes {
		if t == c {
			return true
		}
	}
	return false
}

// IsKnown reports whether t is a client type or a server-side system type.
func (t EventType) IsKnown() bool {
	return t.IsClientType() || t == EventAPIRequest
}

const (
	MaxPageLength      = 500
	MaxSessionIDLength = 100
	Unknown            = "unknown"
)

// DeviceInfo is the coarse classification derived from a user agent.
type DeviceInfo struct {
	Type    string `json:"type"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

func UnknownDevice() DeviceInfo {
	return DeviceInfo{Type: Unknown, Browser: Unknown, OS: Unknown}
}

// AnalyticsEvent is one immutable usage record.
type AnalyticsEvent struct {
	ID        string     `json:"id"`
	Type      EventType  `json:"type"`
	Page      string     `json:"page"`
	Referrer  string     `json:"referrer"`
	UserAgent string     `json:"userAgent"`
	IPAddress string     `json:"ipAddress"`
	Device    DeviceInfo `json:"device"`
	SessionID string     `json:"sessionId"`
	Metadata  Metadata   `json:"metadata"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicEvent is the read-side view of an event with client identifiers
// removed.
type PublicEvent struct {
	ID        string     `json:"id"`
	Type      EventType  `json:"type"`
	Page      string     `json:"page"`
	Referrer  string     `json:"referrer"`
	Device    DeviceInfo `json:"device"`
	SessionID string     `json:"sessionId"`
	Metadata  Metadata   `json:"metadata"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (e AnalyticsEvent) Public() PublicEvent {
	md := e.Metadata
	if md == nil {
		md = Metadata{}
	}
	return PublicEvent{
		ID:        e.ID,
		Type:      e.Type,
		Page:      e.Page,
		Referrer:  e.Referrer,
		Device:    e.Device,
		SessionID: e.SessionID,
		Metadata:  md,
		CreatedAt: e.CreatedAt,
	}
}

// RequestContext carries the client facts captured from an inbound request.
type RequestContext struct {
	IPAddress string
	UserAgent string
	Referrer  string
	SessionID string
}

// Normalized substitutes "unknown" for missing client identifiers.
func (rc RequestContext) Normalized() RequestContext {
	if rc.IPAddress == "" {
		rc.IPAddress = Unknown
	}
	if rc.UserAgent == "" {
		rc.UserAgent = Unknown
	}
	return rc
}
