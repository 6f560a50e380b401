package model

import (
	"encoding/json"
	"time"
)

// BlogPost is an article managed from the admin dashboard.
type BlogPost struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Slug      string    `json:"slug" yaml:"slug"`
	Excerpt   string    `json:"excerpt" yaml:"excerpt"`
	Content   string    `json:"content" yaml:"content"`
	Category  string    `json:"category" yaml:"category"`
	ImageURL  string    `json:"image_url,omitempty" yaml:"image_url"`
	Featured  bool      `json:"featured" yaml:"featured"`
	Published bool      `json:"published" yaml:"published"`
	ReadTime  string    `json:"read_time" yaml:"read_time"`
	Views     int64     `json:"views" yaml:"views"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// PostFilter narrows blog listings.
type PostFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Category      string
	Limit         int
	Offset        int
}

// PostFlags toggles the published and featured booleans; nil leaves the value as is.
type PostFlags struct {
	Published *bool `json:"published,omitempty"`
	Featured  *bool `json:"featured,omitempty"`
}

// Testimonial is a client quote shown in the public carousel.
type Testimonial struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Role      string    `json:"role,omitempty" yaml:"role"`
	Company   string    `json:"company,omitempty" yaml:"company"`
	Quote     string    `json:"quote" yaml:"quote"`
	Rating    int       `json:"rating" yaml:"rating"`
	ImageURL  string    `json:"image_url,omitempty" yaml:"image_url"`
	Featured  bool      `json:"featured" yaml:"featured"`
	Active    bool      `json:"active" yaml:"active"`
	SortOrder int       `json:"sort_order" yaml:"sort_order"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Resource is a downloadable guide or link.
type Resource struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	URL         string    `json:"url" yaml:"url"`
	FileType    string    `json:"file_type,omitempty" yaml:"file_type"`
	Featured    bool      `json:"featured" yaml:"featured"`
	Published   bool      `json:"published" yaml:"published"`
	Downloads   int64     `json:"downloads" yaml:"downloads"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewsletterSubscriber is a newsletter signup.
type NewsletterSubscriber struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Source       string    `json:"source,omitempty"`
	Active       bool      `json:"active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// SiteSetting is a key/value row; Value holds JSON.
type SiteSetting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}
