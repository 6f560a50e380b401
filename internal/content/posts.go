// Package content implements the public and admin operations on site content.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coachsite/internal/model"
	"coachsite/internal/repository"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

// ErrInvalidStatus is returned when a status change is not allowed from the current status.
var ErrInvalidStatus = errors.New("invalid status transition")

// PostInput is the admin create/update payload.
type PostInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=80"`
	Excerpt   string `json:"excerpt" validate:"max=500"`
	Content   string `json:"content"`
	Category  string `json:"category" validate:"max=60"`
	ImageURL  string `json:"image_url" validate:"omitempty,max=2048"`
	Featured  bool   `json:"featured"`
	Published bool   `json:"published"`
	ReadTime  string `json:"read_time" validate:"max=30"`
}

// PostQuery narrows the public blog listing.
type PostQuery struct {
	Category string
	Featured bool
	Limit    int
	Offset   int
}

// Posts serves the blog. Public reads go through public, admin reads and all writes through admin.
type Posts struct {
	public repository.PostRepository
	admin  repository.PostRepository
	logger zerolog.Logger
}

func NewPosts(public, admin repository.PostRepository, logger *zerolog.Logger) *Posts {
	return &Posts{
		public: public,
		admin:  admin,
		logger: logger.With().Str("component", "posts").Logger(),
	}
}

// PublicList returns published posts, newest first.
func (p *Posts) PublicList(ctx context.Context, q PostQuery) ([]model.BlogPost, error) {
	return p.public.ListPosts(ctx, model.PostFilter{
		PublishedOnly: true,
		FeaturedOnly:  q.Featured,
		Category:      strings.TrimSpace(q.Category),
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
}

// PublicGet returns a published post by slug and counts the view.
func (p *Posts) PublicGet(ctx context.Context, slug string) (*model.BlogPost, error) {
	post, err := p.public.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, repository.ErrNotFound
	}
	if err := p.admin.IncrementPostViews(ctx, post.ID); err != nil {
		p.logger.Warn().Err(err).Int64("post_id", post.ID).Msg("failed to count post view")
	} else {
		post.Views++
	}
	return post, nil
}

func (p *Posts) AdminList(ctx context.Context, filter model.PostFilter) ([]model.BlogPost, error) {
	return p.admin.ListPosts(ctx, filter)
}

func (p *Posts) Get(ctx context.Context, id int64) (*model.BlogPost, error) {
	return p.admin.GetPost(ctx, id)
}

func (in PostInput) apply(post *model.BlogPost) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return err
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Title)
	}
	if slug == "" {
		return validation.Invalid("slug", "cannot be derived from the title")
	}
	readTime := strings.TrimSpace(in.ReadTime)
	if readTime == "" {
		readTime = ReadTime(in.Content)
	}

	post.Title = in.Title
	post.Slug = slug
	post.Excerpt = in.Excerpt
	post.Content = in.Content
	post.Category = strings.TrimSpace(in.Category)
	post.ImageURL = in.ImageURL
	post.Featured = in.Featured
	post.Published = in.Published
	post.ReadTime = readTime
	return nil
}

// Create stores a new post. An empty slug is derived from the title.
func (p *Posts) Create(ctx context.Context, in PostInput) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := in.apply(&post); err != nil {
		return nil, err
	}
	if err := p.admin.CreatePost(ctx, &post); err != nil {
		return nil, err
	}
	p.logger.Info().Int64("post_id", post.ID).Str("slug", post.Slug).Msg("post created")
	return &post, nil
}

func (p *Posts) Update(ctx context.Context, id int64, in PostInput) (*model.BlogPost, error) {
	post, err := p.admin.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(post); err != nil {
		return nil, err
	}
	if err := p.admin.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (p *Posts) Delete(ctx context.Context, id int64) error {
	if err := p.admin.DeletePost(ctx, id); err != nil {
		return err
	}
	p.logger.Info().Int64("post_id", id).Msg("post deleted")
	return nil
}

// SetFlags toggles published/featured and returns the stored row.
func (p *Posts) SetFlags(ctx context.Context, id int64, flags model.PostFlags) (*model.BlogPost, error) {
	if flags.Published == nil && flags.Featured == nil {
		return nil, validation.Invalid("flags", "published or featured is required")
	}
	post, err := p.admin.SetPostFlags(ctx, id, flags)
	if err != nil {
		return nil, fmt.Errorf("set post flags: %w", err)
	}
	return post, nil
}
