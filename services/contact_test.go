package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"portfolio/api/apperr"
	"portfolio/api/mailer"
	"portfolio/api/metrics"
	"portfolio/api/models"
	"portfolio/api/store"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type contactFixture struct {
	svc      *ContactService
	contacts *store.MemoryContactStore
	events   *store.MemoryEventStore
	mail     *fakeMailer
	metrics  *metrics.Metrics
}

func newContactFixture(t *testing.T) *contactFixture {
	t.Helper()
	f := &contactFixture{
		contacts: store.NewMemoryContactStore(),
		events:   store.NewMemoryEventStore(),
		mail:     &fakeMailer{},
		metrics:  metrics.NewNop(),
	}
	log := zaptest.NewLogger(t)
	rec := NewRecorder(f.events, log, f.metrics)
	rec.Now = func() time.Time { return fixedNow }
	f.svc = NewContactService(f.contacts, rec, f.mail, "owner@example.com", log, f.metrics)
	f.svc.Now = func() time.Time { return fixedNow }
	return f
}

func validContact() models.ContactRequest {
	return models.ContactRequest{
		Name:    "  Grace Hopper ",
		Email:   " Grace@Example.COM ",
		Subject: "Consulting request",
		Message: "Would you be available for a short project next month?",
	}
}

var visitor = models.RequestContext{IPAddress: "192.0.2.10", UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/126.0", SessionID: "sess-1"}

func TestContactService_Submit(t *testing.T) {
	f := newContactFixture(t)

	sub, err := f.svc.Submit(context.Background(), validContact(), visitor)
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "Grace Hopper", sub.Name)
	assert.Equal(t, "grace@example.com", sub.Email)
	assert.Equal(t, models.ContactStatusNew, sub.Status)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), sub.CreatedAt)

	page, total, err := f.contacts.ListContacts(context.Background(), store.ContactFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "192.0.2.10", page[0].IPAddress)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventContactFormSubmit, events[0].Type)
	assert.Equal(t, "/contact", events[0].Page)
	assert.Equal(t, "sess-1", events[0].SessionID)
	id, _ := events[0].Metadata.String("contactId")
	assert.Equal(t, sub.ID, id)

	require.Len(t, f.mail.sent, 2)
	subjects := []string{f.mail.sent[0].Subject, f.mail.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Portfolio Contact: Consulting request", mailer.AutoReplySubject}, subjects)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContactSubmissionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EmailsTotal.WithLabelValues("auto_reply", "sent")))
}

func TestContactService_SubmitTruncatesEventSubject(t *testing.T) {
	f := newContactFixture(t)
	req := validContact()
	req.Subject = strings.Repeat("é", 80)

	_, err := f.svc.Submit(context.Background(), req, visitor)
	require.NoError(t, err)

	subject, _ := f.events.Events()[0].Metadata.String("subject")
	assert.Equal(t, strings.Repeat("é", 50), subject)
}

func TestContactService_MessageLengthBoundaries(t *testing.T) {
	tests := []struct {
		length int
		ok     bool
	}{
		{9, false},
		{10, true},
		{2000, true},
		{2001, false},
	}
	for _, tt := range tests {
		f := newContactFixture(t)
		req := validContact()
		req.Message = strings.Repeat("m", tt.length)

		_, err := f.svc.Submit(context.Background(), req, visitor)
		if tt.ok {
			assert.NoError(t, err, "length %d", tt.length)
		} else {
			assert.True(t, apperr.IsValidation(err), "length %d", tt.length)
		}
	}
}

func TestContactService_SubmitReportsEveryInvalidField(t *testing.T) {
	f := newContactFixture(t)

	_, err := f.svc.Submit(context.Background(), models.ContactRequest{
		Name:    "A",
		Email:   "not-an-email",
		Subject: "Hi",
		Message: "short",
	}, visitor)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	var fields []string
	for _, fe := range ve.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email", "subject", "message"}, fields)

	_, total, _ := f.contacts.ListContacts(context.Background(), store.ContactFilter{})
	assert.Zero(t, total)
	assert.Empty(t, f.events.Events())
	assert.Empty(t, f.mail.sent)
}

func TestContactService_EmailFailureDoesNotFailSubmit(t *testing.T) {
	f := newContactFixture(t)
	f.mail.err = errors.New("smtp: 535 authentication failed")

	sub, err := f.svc.Submit(context.Background(), validContact(), visitor)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EmailsTotal.WithLabelValues("owner_notification", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EmailsTotal.WithLabelValues("auto_reply", "failed")))
}

func TestContactService_DisabledMailerCountsSkipped(t *testing.T) {
	f := newContactFixture(t)
	f.mail.err = mailer.ErrDisabled

	_, err := f.svc.Submit(context.Background(), validContact(), visitor)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EmailsTotal.WithLabelValues("owner_notification", "skipped")))
}

func TestContactService_EmailsSurviveCanceledRequest(t *testing.T) {
	f := newContactFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := f.svc.Submit(ctx, validContact(), visitor)
	cancel()
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Len(t, f.mail.sent, 2)
}

func TestContactService_List(t *testing.T) {
	f := newContactFixture(t)
	for i := 0; i < 45; i++ {
		at := fixedNow.Add(time.Duration(i) * time.Minute)
		status := models.ContactStatusNew
		if i%3 == 0 {
			status = models.ContactStatusRead
		}
		require.NoError(t, f.contacts.CreateContact(context.Background(), &models.ContactSubmission{
			ID: string(rune('a'+i%26)) + at.Format("150405"), Status: status, CreatedAt: at, UpdatedAt: at,
		}))
	}

	page, err := f.svc.List(context.Background(), ContactQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Contacts, 20)
	assert.Equal(t, models.Pagination{Current: 1, Pages: 3, Total: 45}, page.Pagination)
	assert.True(t, page.Contacts[0].CreatedAt.After(page.Contacts[1].CreatedAt))

	page, err = f.svc.List(context.Background(), ContactQuery{Page: 3, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page.Contacts, 5)

	page, err = f.svc.List(context.Background(), ContactQuery{Status: "read", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(15), page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.Pages)

	_, err = f.svc.List(context.Background(), ContactQuery{Status: "archived"})
	assert.True(t, apperr.IsValidation(err))
}

func TestContactService_ListEmpty(t *testing.T) {
	f := newContactFixture(t)

	page, err := f.svc.List(context.Background(), ContactQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Contacts)
	assert.Equal(t, models.Pagination{Current: 1, Pages: 0, Total: 0}, page.Pagination)
}

func TestContactService_SetStatus(t *testing.T) {
	f := newContactFixture(t)
	sub, err := f.svc.Submit(context.Background(), validContact(), visitor)
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	f.svc.Now = func() time.Time { return later }

	updated, err := f.svc.SetStatus(context.Background(), sub.ID, "replied")
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusReplied, updated.Status)
	assert.Equal(t, later.Truncate(time.Millisecond), updated.UpdatedAt)
	assert.Equal(t, sub.CreatedAt, updated.CreatedAt)
	assert.Equal(t, sub.Message, updated.Message)
	assert.Equal(t, sub.Email, updated.Email)

	_, err = f.svc.SetStatus(context.Background(), sub.ID, "archived")
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.SetStatus(context.Background(), "6f1c7a52-5a3b-4c1e-9d2e-0f4b8f0f7e11", "read")
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.SetStatus(context.Background(), "not-a-uuid", "read")
	assert.True(t, apperr.IsNotFound(err))
}
