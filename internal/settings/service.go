package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coachsite/internal/metrics"
	"coachsite/internal/repository"
	"coachsite/internal/validation"

	"github.com/rs/zerolog"
)

// ErrUnknownGroup is returned for a group name outside Keys.
var ErrUnknownGroup = errors.New("unknown settings group")

// Service loads and saves settings groups.
type Service struct {
	repo   repository.SettingRepository
	logger zerolog.Logger
}

func NewService(repo repository.SettingRepository, logger *zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// PublicSite is the settings overlay the public site renders. Email and security stay private.
type PublicSite struct {
	General  General  `json:"general"`
	SEO      SEO      `json:"seo"`
	Social   Social   `json:"social"`
	Theme    Theme    `json:"theme"`
	Portrait Portrait `json:"portrait"`
}

func defaultOf[T Group]() T {
	var zero T
	def, _ := Defaults(zero.Key())
	return def.(T)
}

// Load reads group T. A group that was never saved yields its defaults, and stored JSON is
// decoded over the defaults so fields added later keep a sensible value.
func Load[T Group](ctx context.Context, s *Service) (T, error) {
	out := defaultOf[T]()
	row, err := s.repo.GetSetting(ctx, out.Key())
	if errors.Is(err, repository.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s settings: %w", out.Key(), err)
	}
	if err := json.Unmarshal(row.Value, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s settings: %w", out.Key(), err)
	}
	return out, nil
}

// Save validates and stores group g.
func Save[T Group](ctx context.Context, s *Service, g T) error {
	if err := g.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode %s settings: %w", g.Key(), err)
	}
	if err := s.repo.UpsertSetting(ctx, g.Key(), data); err != nil {
		return err
	}
	s.logger.Info().Str("group", g.Key()).Msg("settings saved")
	return nil
}

// merge decodes data over the stored value of T, validates and saves the result.
func merge[T Group](ctx context.Context, s *Service, data []byte) (Group, error) {
	current, err := Load[T](ctx, s)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, validation.Invalid("body", fmt.Sprintf("decode %s settings: %v", current.Key(), err))
	}
	if err := Save(ctx, s, current); err != nil {
		return nil, err
	}
	return current, nil
}

func loadGroup[T Group](ctx context.Context, s *Service) (Group, error) {
	g, err := Load[T](ctx, s)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Get loads a group by name.
func (s *Service) Get(ctx context.Context, key string) (Group, error) {
	switch key {
	case KeyGeneral:
		return loadGroup[General](ctx, s)
	case KeySEO:
		return loadGroup[SEO](ctx, s)
	case KeySocial:
		return loadGroup[Social](ctx, s)
	case KeyEmail:
		return loadGroup[Email](ctx, s)
	case KeySecurity:
		return loadGroup[Security](ctx, s)
	case KeyTheme:
		return loadGroup[Theme](ctx, s)
	case KeyPortrait:
		return loadGroup[Portrait](ctx, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, key)
}

// Update applies a partial JSON document to a group by name and returns the saved group.
func (s *Service) Update(ctx context.Context, key string, data []byte) (Group, error) {
	switch key {
	case KeyGeneral:
		return merge[General](ctx, s, data)
	case KeySEO:
		return merge[SEO](ctx, s, data)
	case KeySocial:
		return merge[Social](ctx, s, data)
	case KeyEmail:
		return merge[Email](ctx, s, data)
	case KeySecurity:
		return merge[Security](ctx, s, data)
	case KeyTheme:
		return merge[Theme](ctx, s, data)
	case KeyPortrait:
		return merge[Portrait](ctx, s, data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, key)
}

// EnsureDefaults stores the default value of every group that has no row yet.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	existing, err := s.repo.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("list settings: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, row := range existing {
		have[row.Key] = true
	}

	seeded := 0
	for _, key := range Keys {
		if have[key] {
			continue
		}
		def, _ := Defaults(key)
		data, err := json.Marshal(def)
		if err != nil {
			return err
		}
		if err := s.repo.UpsertSetting(ctx, key, data); err != nil {
			return fmt.Errorf("seed %s settings: %w", key, err)
		}
		seeded++
	}
	if seeded > 0 {
		s.logger.Info().Int("groups", seeded).Msg("seeded default settings")
	}
	return nil
}

// Public returns the public overlay. A group that cannot be read falls back to its defaults.
func (s *Service) Public(ctx context.Context) PublicSite {
	return PublicSite{
		General:  s.loadOrDefault(ctx, KeyGeneral).(General),
		SEO:      s.loadOrDefault(ctx, KeySEO).(SEO),
		Social:   s.loadOrDefault(ctx, KeySocial).(Social),
		Theme:    s.loadOrDefault(ctx, KeyTheme).(Theme),
		Portrait: s.loadOrDefault(ctx, KeyPortrait).(Portrait),
	}
}

// General returns the general site settings, defaults on error.
func (s *Service) General(ctx context.Context) General {
	return s.loadOrDefault(ctx, KeyGeneral).(General)
}

// Email returns the notification settings, defaults on error.
func (s *Service) Email(ctx context.Context) Email {
	return s.loadOrDefault(ctx, KeyEmail).(Email)
}

// Security returns the security settings, defaults on error.
func (s *Service) Security(ctx context.Context) Security {
	return s.loadOrDefault(ctx, KeySecurity).(Security)
}

func (s *Service) loadOrDefault(ctx context.Context, key string) Group {
	g, err := s.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("group", key).Msg("using default settings")
		metrics.IncFallbackRead("settings_" + key)
		g, _ = Defaults(key)
	}
	return g
}
