package content

import (
	"context"
	"strings"

	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

// TestimonialInput is the admin create/update payload.
type TestimonialInput struct {
	Name      string `json:"name" validate:"required,max=120"`
	Role      string `json:"role" validate:"max=120"`
	Company   string `json:"company" validate:"max=120"`
	Quote     string `json:"quote" validate:"required,max=2000"`
	Rating    int    `json:"rating" validate:"gte=1,lte=5"`
	ImageURL  string `json:"image_url" validate:"omitempty,max=2048"`
	Featured  bool   `json:"featured"`
	Active    bool   `json:"active"`
	SortOrder int    `json:"sort_order"`
}

func (in TestimonialInput) apply(t *model.Testimonial) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Quote = strings.TrimSpace(in.Quote)
	if err := validation.Struct(in); err != nil {
		return err
	}
	t.Name = in.Name
	t.Role = in.Role
	t.Company = in.Company
	t.Quote = in.Quote
	t.Rating = in.Rating
	t.ImageURL = in.ImageURL
	t.Featured = in.Featured
	t.Active = in.Active
	t.SortOrder = in.SortOrder
	return nil
}

// TestimonialFlags toggles featured/active; nil leaves the value unchanged.
type TestimonialFlags struct {
	Featured *bool `json:"featured,omitempty"`
	Active   *bool `json:"active,omitempty"`
}

type Testimonials struct {
	public repository.TestimonialRepository
	admin  repository.TestimonialRepository
	logger zerolog.Logger
}

func NewTestimonials(public, admin repository.TestimonialRepository, logger *zerolog.Logger) *Testimonials {
	return &Testimonials{
		public: public,
		admin:  admin,
		logger: logger.With().Str("component", "testimonials").Logger(),
	}
}

// PublicList returns active testimonials by sort order.
func (s *Testimonials) PublicList(ctx context.Context) ([]model.Testimonial, error) {
	return s.public.ListTestimonials(ctx, true)
}

func (s *Testimonials) AdminList(ctx context.Context) ([]model.Testimonial, error) {
	return s.admin.ListTestimonials(ctx, false)
}

func (s *Testimonials) Create(ctx context.Context, in TestimonialInput) (*model.Testimonial, error) {
	var t model.Testimonial
	if err := in.apply(&t); err != nil {
		return nil, err
	}
	if err := s.admin.CreateTestimonial(ctx, &t); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("testimonial_id", t.ID).Msg("testimonial created")
	return &t, nil
}

func (s *Testimonials) Update(ctx context.Context, id int64, in TestimonialInput) (*model.Testimonial, error) {
	t, err := s.admin.GetTestimonial(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(t); err != nil {
		return nil, err
	}
	if err := s.admin.UpdateTestimonial(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Toggle flips featured and/or active and returns the stored row.
func (s *Testimonials) Toggle(ctx context.Context, id int64, flags TestimonialFlags) (*model.Testimonial, error) {
	if flags.Featured == nil && flags.Active == nil {
		return nil, validation.Invalid("flags", "featured or active is required")
	}
	t, err := s.admin.GetTestimonial(ctx, id)
	if err != nil {
		return nil, err
	}
	if flags.Featured != nil {
		t.Featured = *flags.Featured
	}
	if flags.Active != nil {
		t.Active = *flags.Active
	}
	if err := s.admin.UpdateTestimonial(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Testimonials) Delete(ctx context.Context, id int64) error {
	return s.admin.DeleteTestimonial(ctx, id)
}

// ResourceInput is the admin create/update payload.
type ResourceInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=60"`
	URL         string `json:"url" validate:"required,max=2048"`
	FileType    string `json:"file_type" validate:"max=20"`
	Featured    bool   `json:"featured"`
	Published   bool   `json:"published"`
}

func (in ResourceInput) apply(r *model.Resource) error {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	if err := validation.Struct(in); err != nil {
		return err
	}
	r.Title = in.Title
	r.Description = in.Description
	r.Category = in.Category
	r.URL = in.URL
	r.FileType = strings.ToLower(in.FileType)
	r.Featured = in.Featured
	r.Published = in.Published
	return nil
}

type Resources struct {
	public repository.ResourceRepository
	admin  repository.ResourceRepository
	logger zerolog.Logger
}

func NewResources(public, admin repository.ResourceRepository, logger *zerolog.Logger) *Resources {
	return &Resources{
		public: public,
		admin:  admin,
		logger: logger.With().Str("component", "resources").Logger(),
	}
}

func (s *Resources) PublicList(ctx context.Context) ([]model.Resource, error) {
	return s.public.ListResources(ctx, true)
}

func (s *Resources) AdminList(ctx context.Context) ([]model.Resource, error) {
	return s.admin.ListResources(ctx, false)
}

func (s *Resources) Create(ctx context.Context, in ResourceInput) (*model.Resource, error) {
	var r model.Resource
	if err := in.apply(&r); err != nil {
		return nil, err
	}
	if err := s.admin.CreateResource(ctx, &r); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("resource_id", r.ID).Msg("resource created")
	return &r, nil
}

func (s *Resources) Update(ctx context.Context, id int64, in ResourceInput) (*model.Resource, error) {
	r, err := s.admin.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if err := s.admin.UpdateResource(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Resources) Delete(ctx context.Context, id int64) error {
	return s.admin.DeleteResource(ctx, id)
}

// Download counts a download of a published resource and returns it.
func (s *Resources) Download(ctx context.Context, id int64) (*model.Resource, error) {
	r, err := s.admin.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Published {
		return nil, repository.ErrNotFound
	}
	if err := s.admin.IncrementResourceDownloads(ctx, id); err != nil {
		return nil, err
	}
	r.Downloads++
	return r, nil
}
