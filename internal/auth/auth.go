// Package auth signs admins in against configured bcrypt hashes and issues HS256 session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coachsite/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("too many login attempts")
)

const (
	// CookieName carries the token for browser clients.
	CookieName = "admin_token"

	issuer            = "coachsite"
	defaultSessionTTL = 8 * time.Hour
)

// dummyHash keeps the timing of unknown-email logins close to wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("coachsite-dummy"), bcrypt.DefaultCost)

// Admin is a dashboard user defined in config.
type Admin struct {
	Email        string
	Name         string
	PasswordHash string
}

// Claims are the JWT claims; ID holds the session id.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Token is returned by a successful login.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

// Options configures a Service.
type Options struct {
	Secret string
	// SessionTTL returns the current session lifetime; nil uses 8 hours.
	SessionTTL func(ctx context.Context) time.Duration
	Now        func() time.Time
}

type Service struct {
	admins   map[string]Admin
	secret   []byte
	sessions *session.AdminSessions
	ttl      func(ctx context.Context) time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(admins []Admin, sessions *session.AdminSessions, opts Options, logger *zerolog.Logger) (*Service, error) {
	if len(opts.Secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 characters")
	}
	s := &Service{
		admins:   make(map[string]Admin, len(admins)),
		secret:   []byte(opts.Secret),
		sessions: sessions,
		ttl:      opts.SessionTTL,
		now:      opts.Now,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
	if s.ttl == nil {
		s.ttl = func(context.Context) time.Duration { return defaultSessionTTL }
	}
	if s.now == nil {
		s.now = time.Now
	}
	for _, a := range admins {
		s.admins[normalize(a.Email)] = a
	}
	return s, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns a bcrypt hash suitable for the admin config.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Login checks the credentials, opens a session and signs a token for it.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	admin, ok := s.admins[normalize(email)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.logger.Warn().Str("email", email).Msg("login for unknown admin")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("email", admin.Email).Msg("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	ttl := s.ttl(ctx)
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	sess, err := s.sessions.Create(ctx, admin.Email, admin.Name, ttl)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	claims := Claims{
		Name: admin.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   admin.Email,
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info().Str("email", admin.Email).Str("session", sess.ID).Msg("admin logged in")
	return &Token{Token: signed, ExpiresAt: sess.ExpiresAt, Email: admin.Email, Name: admin.Name}, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token has no session id", ErrUnauthorized)
	}
	return &claims, nil
}

// Authenticate verifies the token and that its session is still open.
func (s *Service) Authenticate(ctx context.Context, token string) (*session.AdminSession, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, claims.ID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: session ended", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if normalize(sess.Email) != normalize(claims.Subject) {
		return nil, fmt.Errorf("%w: session mismatch", ErrUnauthorized)
	}
	return sess, nil
}

// Logout ends the session behind token. An already ended session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info().Str("email", claims.Subject).Str("session", claims.ID).Msg("admin logged out")
	return nil
}
