package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio/api/apperr"
	"portfolio/api/mailer"
	"portfolio/api/metrics"
	"portfolio/api/models"
	"portfolio/api/store"
	"portfolio/api/utils"
)

const (
	DefaultContactPageSize = 20
	MaxContactPageSize     = 100

	contactPage           = "/contact"
	contactSubjectMetaLen = 50
	defaultEmailTimeout   = 30 * time.Second
)

type contactFields struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=5,max=200"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// ContactQuery selects one page of submissions.
type ContactQuery struct {
	Page   int
	Limit  int
	Status string
}

// ContactService handles contact form submissions and their follow-up emails.
type ContactService struct {
	store        store.ContactStore
	recorder     *Recorder
	mailer       mailer.Mailer
	ownerAddress string
	log          *zap.Logger
	metrics      *metrics.Metrics

	Now          func() time.Time
	EmailTimeout time.Duration
}

func NewContactService(cs store.ContactStore, rec *Recorder, m mailer.Mailer, ownerAddress string, log *zap.Logger, mt *metrics.Metrics) *ContactService {
	return &ContactService{
		store:        cs,
		recorder:     rec,
		mailer:       m,
		ownerAddress: ownerAddress,
		log:          log.Named("contact"),
		metrics:      mt,
		Now:          time.Now,
		EmailTimeout: defaultEmailTimeout,
	}
}

// Submit validates and stores a submission, records the matching analytics
// event and sends both emails. Only validation and storage errors fail the call.
func (s *ContactService) Submit(ctx context.Context, req models.ContactRequest, rc models.RequestContext) (*models.ContactSubmission, error) {
	fields := contactFields{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	ve := &apperr.ValidationError{}
	if err := validateStruct(ve, fields); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	rc = rc.Normalized()
	now := s.Now().UTC().Truncate(time.Millisecond)
	sub := &models.ContactSubmission{
		ID:        uuid.NewString(),
		Name:      fields.Name,
		Email:     fields.Email,
		Subject:   fields.Subject,
		Message:   fields.Message,
		IPAddress: rc.IPAddress,
		UserAgent: rc.UserAgent,
		Status:    models.ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateContact(ctx, sub); err != nil {
		return nil, apperr.Dependency("save contact submission", err)
	}
	s.metrics.ContactSubmissionsTotal.Inc()
	s.log.Info("contact submission saved", zap.String("id", sub.ID))

	s.recordSubmission(ctx, sub, rc)
	s.sendEmails(ctx, sub)
	return sub, nil
}

func (s *ContactService) recordSubmission(ctx context.Context, sub *models.ContactSubmission, rc models.RequestContext) {
	md, _ := models.NewMetadata(map[string]any{
		"contactId": sub.ID,
		"subject":   utils.Truncate(sub.Subject, contactSubjectMetaLen),
	})

	_, err := s.recorder.Record(ctx, TrackInput{
		Type:      models.EventContactFormSubmit,
		Page:      contactPage,
		SessionID: rc.SessionID,
		Metadata:  md,
	}, rc)
	if err != nil {
		s.log.Warn("failed to record contact event", zap.String("id", sub.ID), zap.Error(err))
	}
}

func (s *ContactService) sendEmails(ctx context.Context, sub *models.ContactSubmission) {
	data := mailer.ContactData{
		ID:          sub.ID,
		Name:        sub.Name,
		Email:       sub.Email,
		Subject:     sub.Subject,
		Message:     sub.Message,
		IPAddress:   sub.IPAddress,
		UserAgent:   sub.UserAgent,
		SubmittedAt: sub.CreatedAt,
	}

	// The client may disconnect once the submission is stored.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.EmailTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		msg, err := mailer.OwnerNotification(s.ownerAddress, data)
		s.deliver(ctx, "owner_notification", sub.ID, msg, err)
		return nil
	})
	g.Go(func() error {
		msg, err := mailer.AutoReply(data)
		s.deliver(ctx, "auto_reply", sub.ID, msg, err)
		return nil
	})
	_ = g.Wait()
}

func (s *ContactService) deliver(ctx context.Context, kind, id string, msg mailer.Message, err error) {
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	switch {
	case err == nil:
		s.metrics.EmailsTotal.WithLabelValues(kind, "sent").Inc()
	case errors.Is(err, mailer.ErrDisabled):
		s.metrics.EmailsTotal.WithLabelValues(kind, "skipped").Inc()
	default:
		s.metrics.EmailsTotal.WithLabelValues(kind, "failed").Inc()
		s.log.Error("failed to send contact email",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// List returns one page of submissions, newest first.
func (s *ContactService) List(ctx context.Context, q ContactQuery) (*models.ContactPage, error) {
	status := models.ContactStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "status", Message: "must be one of: new, read, replied"})
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultContactPageSize
	}
	if q.Limit > MaxContactPageSize {
		q.Limit = MaxContactPageSize
	}

	contacts, total, err := s.store.ListContacts(ctx, store.ContactFilter{
		Status: status,
		Offset: (q.Page - 1) * q.Limit,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, apperr.Dependency("list contact submissions", err)
	}

	return &models.ContactPage{
		Contacts: nonNil(contacts),
		Pagination: models.Pagination{
			Current: q.Page,
			Pages:   int((total + int64(q.Limit) - 1) / int64(q.Limit)),
			Total:   total,
		},
	}, nil
}

// SetStatus moves a submission to a new workflow state.
func (s *ContactService) SetStatus(ctx context.Context, id, status string) (*models.ContactSubmission, error) {
	st := models.ContactStatus(status)
	if !st.Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "status", Message: "must be one of: new, read, replied"})
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Contact", id)
	}

	sub, err := s.store.UpdateStatus(ctx, id, st, s.Now().UTC().Truncate(time.Millisecond))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Contact", id)
	}
	if err != nil {
		return nil, apperr.Dependency("update contact status", err)
	}
	s.log.Info("contact status updated", zap.String("id", id), zap.String("status", status))
	return sub, nil
}
