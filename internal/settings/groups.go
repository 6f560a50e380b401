// Package settings stores the site configuration edited from the admin dashboard as typed groups.
package settings

import (
	"fmt"
	"regexp"
	"slices"

	"coachsite/internal/validation"
)

// Group names, also used as the site_settings key.
const (
	KeyGeneral  = "general"
	KeySEO      = "seo"
	KeySocial   = "social"
	KeyEmail    = "email"
	KeySecurity = "security"
	KeyTheme    = "theme"
	KeyPortrait = "portrait"
)

// Keys lists every group in display order.
var Keys = []string{KeyGeneral, KeySEO, KeySocial, KeyEmail, KeySecurity, KeyTheme, KeyPortrait}

// AllowedFonts are the font families the theme may use.
var AllowedFonts = []string{
	"Inter",
	"Lora",
	"Merriweather",
	"Montserrat",
	"Open Sans",
	"Playfair Display",
	"Poppins",
	"Roboto",
}

// Group is one settings section stored as a single JSON row.
type Group interface {
	Key() string
	Validate() error
}

type General struct {
	SiteName        string `json:"site_name" validate:"required,max=120"`
	Tagline         string `json:"tagline" validate:"max=200"`
	ContactEmail    string `json:"contact_email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"max=50"`
	Address         string `json:"address" validate:"max=300"`
	WhatsAppNumber  string `json:"whatsapp_number" validate:"omitempty,max=20"`
	TimezoneLabel   string `json:"timezone_label" validate:"max=10"`
	MaintenanceMode bool   `json:"maintenance_mode"`
}

type SEO struct {
	MetaTitle       string   `json:"meta_title" validate:"max=120"`
	MetaDescription string   `json:"meta_description" validate:"max=320"`
	Keywords        []string `json:"keywords" validate:"max=30,dive,max=60"`
	OGImage         string   `json:"og_image" validate:"omitempty,url"`
	CanonicalURL    string   `json:"canonical_url" validate:"omitempty,http_url"`
	AnalyticsID     string   `json:"analytics_id" validate:"max=40"`
	RobotsIndex     bool     `json:"robots_index"`
}

type Social struct {
	LinkedIn  string `json:"linkedin" validate:"omitempty,http_url"`
	Twitter   string `json:"twitter" validate:"omitempty,http_url"`
	Instagram string `json:"instagram" validate:"omitempty,http_url"`
	Facebook  string `json:"facebook" validate:"omitempty,http_url"`
	YouTube   string `json:"youtube" validate:"omitempty,http_url"`
}

// Email controls which admin notifications are sent and who receives them.
type Email struct {
	NotificationEmail string `json:"notification_email" validate:"omitempty,email"`
	FromName          string `json:"from_name" validate:"max=120"`
	FromAddress       string `json:"from_address" validate:"omitempty,email"`
	NotifyOnBooking   bool   `json:"notify_on_booking"`
	NotifyOnContact   bool   `json:"notify_on_contact"`
	NotifyOnSubscribe bool   `json:"notify_on_subscribe"`
}

type Security struct {
	SessionTimeoutMinutes  int  `json:"session_timeout_minutes" validate:"gte=5,lte=10080"`
	MaxLoginAttempts       int  `json:"max_login_attempts" validate:"gte=1,lte=100"`
	RequireStrongPasswords bool `json:"require_strong_passwords"`
}

type Theme struct {
	HeadingFont    string `json:"heading_font"`
	BodyFont       string `json:"body_font"`
	PrimaryColor   string `json:"primary_color" validate:"required,hexcolor"`
	SecondaryColor string `json:"secondary_color" validate:"required,hexcolor"`
	AccentColor    string `json:"accent_color" validate:"required,hexcolor"`
}

type Portrait struct {
	ImageURL string `json:"image_url" validate:"omitempty,max=2048"`
	AltText  string `json:"alt_text" validate:"max=200"`
}

func (General) Key() string  { return KeyGeneral }
func (SEO) Key() string      { return KeySEO }
func (Social) Key() string   { return KeySocial }
func (Email) Key() string    { return KeyEmail }
func (Security) Key() string { return KeySecurity }
func (Theme) Key() string    { return KeyTheme }
func (Portrait) Key() string { return KeyPortrait }

var digits = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func (g General) Validate() error {
	if err := validation.Struct(g); err != nil {
		return err
	}
	if g.WhatsAppNumber != "" && !digits.MatchString(g.WhatsAppNumber) {
		return validation.Invalid("whatsapp_number", "must contain 6 to 15 digits")
	}
	return nil
}

func (g SEO) Validate() error      { return validation.Struct(g) }
func (g Social) Validate() error   { return validation.Struct(g) }
func (g Email) Validate() error    { return validation.Struct(g) }
func (g Security) Validate() error { return validation.Struct(g) }
func (g Portrait) Validate() error { return validation.Struct(g) }

func (g Theme) Validate() error {
	if err := validation.Struct(g); err != nil {
		return err
	}
	if !slices.Contains(AllowedFonts, g.HeadingFont) {
		return validation.Invalid("heading_font", fmt.Sprintf("%q is not an allowed font", g.HeadingFont))
	}
	if !slices.Contains(AllowedFonts, g.BodyFont) {
		return validation.Invalid("body_font", fmt.Sprintf("%q is not an allowed font", g.BodyFont))
	}
	return nil
}

// Defaults returns the value seeded for a group that has never been saved.
func Defaults(key string) (Group, bool) {
	switch key {
	case KeyGeneral:
		return General{
			SiteName:      "Executive Coaching",
			Tagline:       "Leadership that lasts",
			TimezoneLabel: "EST",
		}, true
	case KeySEO:
		return SEO{RobotsIndex: true}, true
	case KeySocial:
		return Social{}, true
	case KeyEmail:
		return Email{NotifyOnBooking: true, NotifyOnContact: true}, true
	case KeySecurity:
		return Security{SessionTimeoutMinutes: 480, MaxLoginAttempts: 5, RequireStrongPasswords: true}, true
	case KeyTheme:
		return Theme{
			HeadingFont:    "Playfair Display",
			BodyFont:       "Inter",
			PrimaryColor:   "#1e3a5f",
			SecondaryColor: "#f5f1ea",
			AccentColor:    "#c8a45d",
		}, true
	case KeyPortrait:
		return Portrait{AltText: "Coach portrait"}, true
	}
	return nil, false
}
