package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coachsite/internal/events"
	"coachsite/internal/metrics"
	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

// ContactInput is the public contact form.
type ContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Company string `json:"company" validate:"max=200"`
	Service string `json:"service" validate:"max=60"`
	Message string `json:"message" validate:"required,max=5000"`
}

type Contacts struct {
	repo      repository.ContactRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewContacts wires the contact inbox. publisher may be nil.
func NewContacts(repo repository.ContactRepository, publisher events.Publisher, logger *zerolog.Logger) *Contacts {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Contacts{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "contacts").Logger(),
	}
}

// Submit stores a contact message as unread.
func (s *Contacts) Submit(ctx context.Context, in ContactInput) (*model.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	m := &model.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Company: strings.TrimSpace(in.Company),
		Service: strings.TrimSpace(in.Service),
		Message: in.Message,
		Status:  model.ContactUnread,
	}
	if err := s.repo.CreateContact(ctx, m); err != nil {
		return nil, err
	}

	metrics.IncContactSubmitted()
	s.logger.Info().Int64("contact_id", m.ID).Msg("contact message received")
	s.publisher.Publish(ctx, events.Event{Type: events.TypeContactCreated, Payload: *m})
	return m, nil
}

func (s *Contacts) List(ctx context.Context, filter model.ContactFilter) ([]model.ContactMessage, error) {
	if filter.Status != "" && filter.Status != "all" && !model.IsValidContactStatus(filter.Status) {
		return nil, validation.Invalid("status", "unknown contact status")
	}
	return s.repo.ListContacts(ctx, filter)
}

// MarkStatus moves a message forward through unread, read, replied.
func (s *Contacts) MarkStatus(ctx context.Context, id int64, status string) (*model.ContactMessage, error) {
	if !model.IsValidContactStatus(status) {
		return nil, validation.Invalid("status", "must be one of unread read replied")
	}
	m, err := s.repo.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanAdvanceContact(m.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, m.Status, status)
	}
	if m.Status == status {
		return m, nil
	}
	if err := s.repo.UpdateContactStatus(ctx, id, status); err != nil {
		return nil, err
	}
	metrics.IncAdminDecision("contact", status)
	m.Status = status
	return m, nil
}

func (s *Contacts) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteContact(ctx, id)
}

// SubscribeInput is the public newsletter form.
type SubscribeInput struct {
	Email  string `json:"email" validate:"required,email,max=320"`
	Name   string `json:"name" validate:"max=200"`
	Source string `json:"source" validate:"max=60"`
}

// Newsletter signup results, also used as metric labels.
const (
	SignupCreated     = "created"
	SignupDuplicate   = "duplicate"
	SignupReactivated = "reactivated"
)

type Newsletter struct {
	repo      repository.SubscriberRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewNewsletter wires the newsletter list. publisher may be nil.
func NewNewsletter(repo repository.SubscriberRepository, publisher events.Publisher, logger *zerolog.Logger) *Newsletter {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Newsletter{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "newsletter").Logger(),
	}
}

// Subscribe adds the email once. A known active email is a duplicate and an inactive one is
// reactivated. The result is one of the Signup constants.
func (s *Newsletter) Subscribe(ctx context.Context, in SubscribeInput) (*model.NewsletterSubscriber, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, "", err
	}

	existing, err := s.repo.GetSubscriberByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.Active {
			metrics.IncNewsletterSignup(SignupDuplicate)
			return existing, SignupDuplicate, nil
		}
		if err := s.repo.SetSubscriberActive(ctx, existing.ID, true); err != nil {
			return nil, "", err
		}
		existing.Active = true
		metrics.IncNewsletterSignup(SignupReactivated)
		s.logger.Info().Int64("subscriber_id", existing.ID).Msg("subscriber reactivated")
		return existing, SignupReactivated, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, "", err
	}

	sub := &model.NewsletterSubscriber{
		Email:  in.Email,
		Name:   strings.TrimSpace(in.Name),
		Source: in.Source,
		Active: true,
	}
	if err := s.repo.CreateSubscriber(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.IncNewsletterSignup(SignupDuplicate)
			return sub, SignupDuplicate, nil
		}
		return nil, "", err
	}

	metrics.IncNewsletterSignup(SignupCreated)
	s.logger.Info().Int64("subscriber_id", sub.ID).Str("source", sub.Source).Msg("new subscriber")
	s.publisher.Publish(ctx, events.Event{Type: events.TypeSubscriberCreated, Payload: *sub})
	return sub, SignupCreated, nil
}

// Unsubscribe deactivates the email. Unknown emails return repository.ErrNotFound.
func (s *Newsletter) Unsubscribe(ctx context.Context, email string) error {
	sub, err := s.repo.GetSubscriberByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !sub.Active {
		return nil
	}
	return s.repo.SetSubscriberActive(ctx, sub.ID, false)
}

func (s *Newsletter) List(ctx context.Context) ([]model.NewsletterSubscriber, error) {
	return s.repo.ListSubscribers(ctx)
}

func (s *Newsletter) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteSubscriber(ctx, id)
}
