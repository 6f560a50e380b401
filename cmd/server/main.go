package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"coachsite/internal/api"
	"coachsite/internal/auth"
	"coachsite/internal/booking"
	"coachsite/internal/config"
	"coachsite/internal/content"
	"coachsite/internal/db"
	"coachsite/internal/events"
	"coachsite/internal/export"
	"coachsite/internal/fixture"
	"coachsite/internal/health"
	"coachsite/internal/media"
	"coachsite/internal/metrics"
	"coachsite/internal/notify"
	"coachsite/internal/repository"
	"coachsite/internal/restdb"
	"coachsite/internal/session"
	"coachsite/internal/settings"
	"coachsite/internal/sheets"
	"coachsite/internal/slots"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Getenv("COACHSITE_CONFIG"))
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	demo := fixture.New(nil)
	store, sqlDB, err := openStore(ctx, cfg, rdb, demo, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage error")
	}
	defer store.Close()

	// Public reads go through the fallback so the site keeps rendering when storage is down.
	public := repository.Store(store)
	if cfg.StorageFallback() && cfg.Storage.Driver != config.DriverFixture {
		public = repository.WithFallback(store, demo, &logger)
	}

	settingsSvc := settings.NewService(store, &logger)
	if err := settingsSvc.EnsureDefaults(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to seed default settings")
	}

	bus := events.NewBus(&logger)
	dispatcher := notify.NewDispatcher(settingsSvc, cfg.Booking.TimezoneLabel, &logger, notifiers(cfg, &logger)...).
		WithTimezone(func(ctx context.Context) string { return settingsSvc.General(ctx).TimezoneLabel })
	if dispatcher.Enabled() {
		dispatcher.Subscribe(bus)
		go notify.NewDigest(store, dispatcher, cfg.DigestHour()).Start(ctx)
	} else {
		logger.Info().Msg("no notification channel configured")
	}

	schedule := bookingSchedule(cfg)
	wizardSessions := booking.NewSessionStore(cfg.WizardTimeout())
	go wizardSessions.RunCleanup(ctx, cfg.WizardCleanupInterval(), &logger)
	wizard := booking.NewWizard(wizardSessions, booking.NewCatalog(services(cfg)), store, bus, booking.Options{
		Schedule:             schedule,
		TimezoneLabel:        cfg.Booking.TimezoneLabel,
		Timezone:             func() string { return settingsSvc.General(ctx).TimezoneLabel },
		PreventDoubleBooking: cfg.PreventDoubleBooking(),
	}, &logger)

	memory := session.NewMemoryStore()
	go memory.RunCleanup(ctx, 5*time.Minute)
	var kv session.Store = memory
	if rdb != nil {
		kv = session.NewFailoverStore(session.NewRedisStore(rdb, "coachsite:"), kv, &logger)
	}

	var authSvc *auth.Service
	if len(cfg.Admin.Users) > 0 {
		admins := make([]auth.Admin, 0, len(cfg.Admin.Users))
		for _, u := range cfg.Admin.Users {
			admins = append(admins, auth.Admin{Email: u.Email, Name: u.Name, PasswordHash: u.PasswordHash})
		}
		authSvc, err = auth.NewService(admins, session.NewAdminSessions(kv), auth.Options{
			Secret: cfg.Admin.JWTSecret,
			SessionTTL: func(ctx context.Context) time.Duration {
				return time.Duration(settingsSvc.Security(ctx).SessionTimeoutMinutes) * time.Minute
			},
		}, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create auth service error")
		}
	} else {
		logger.Warn().Msg("no admin users configured, admin API disabled")
	}

	portraits, mediaDir := newPortraits(ctx, cfg, settingsSvc, &logger)

	var sheetsSvc *sheets.Service
	if cfg.Sheets.Enabled {
		client, err := sheets.NewClient(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			logger.Error().Err(err).Msg("google sheets disabled")
		} else {
			sheetsSvc = sheets.NewService(client, store, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range, &logger)
		}
	}

	requestLimiter := auth.NewIPLimiter(cfg.Server.RequestsPerMinute)
	loginLimiter := auth.NewIPLimiterFunc(func() int {
		if n := settingsSvc.Security(ctx).MaxLoginAttempts; n > 0 {
			return n
		}
		return cfg.Admin.LoginAttemptsPerMin
	})
	formLimiter := auth.NewIPLimiter(10)
	for _, l := range []*auth.IPLimiter{requestLimiter, loginLimiter, formLimiter} {
		go l.RunCleanup(ctx, 5*time.Minute)
	}

	srv := api.NewServer(api.Deps{
		Wizard:       wizard,
		Slots:        slots.NewGenerator(schedule, store),
		Settings:     settingsSvc,
		Posts:        content.NewPosts(public, store, &logger),
		Testimonials: content.NewTestimonials(public, store, &logger),
		Resources:    content.NewResources(public, store, &logger),
		Contacts:     content.NewContacts(store, bus, &logger),
		Newsletter:   content.NewNewsletter(store, bus, &logger),
		Bookings:     content.NewBookingManager(store, &logger),
		Bookmarks:    session.NewBookmarks(kv, cfg.BookmarkTTL()),
		Auth:         authSvc,
		Portraits:    portraits,
		Exporter:     export.NewExporter(store, &logger),
		Sheets:       sheetsSvc,
	}, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookies:  cfg.Admin.SecureCookies,
		MediaDir:       mediaDir,
		MediaPath:      cfg.Media.PublicPath,
		RequestLimiter: requestLimiter,
		LoginLimiter:   loginLimiter,
		FormLimiter:    formLimiter,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, &logger)

	if sqlDB != nil {
		backups := db.NewBackupService(sqlDB, db.BackupConfig{
			Enabled:       cfg.Backup.Enabled,
			Interval:      cfg.BackupInterval(),
			Dir:           cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	checks := []health.Check{{Name: "storage", Ping: store.Ping}}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}
	checker := health.NewChecker(checks...)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go health.ServeHTTP(ctx, fmt.Sprintf(":%d", cfg.Monitoring.HealthCheckPort), checker.Handler(), "health", &logger)

	if cfg.Monitoring.GRPCHealthPort != 0 {
		go startGRPCHealth(ctx, cfg, checker, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go health.ServeHTTP(ctx, fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), mux, "metrics", &logger)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ServerReadTimeout(),
		WriteTimeout:      cfg.ServerWriteTimeout(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Address).Str("storage", cfg.Storage.Driver).Msg("coachsite API started")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("coachsite API stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// openStore returns the configured backend. The *db.DB is non-nil for SQL drivers.
func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, demo *fixture.Store, logger *zerolog.Logger) (repository.Store, *db.DB, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		database, err := db.OpenSQLite(ctx, cfg.Storage.Path)
		return database, database, err
	case config.DriverPostgres:
		database, err := db.OpenPostgres(ctx, cfg.Storage.DSN)
		return database, database, err
	case config.DriverREST:
		client := restdb.NewClient(cfg.REST.BaseURL, cfg.REST.APIKey, cfg.RESTTimeout(), logger)
		if rdb != nil && cfg.RESTCacheTTL() > 0 {
			client.UseRedisCache(rdb, cfg.RESTCacheTTL())
		}
		return client, nil, nil
	case config.DriverFixture:
		if cfg.Storage.FixturePath != "" {
			err := config.WatchFile(ctx, cfg.Storage.FixturePath, cfg.FixtureWatchInterval(), fixture.Load, func(ds *fixture.Dataset) {
				demo.Replace(ds)
				logger.Info().Str("path", cfg.Storage.FixturePath).Msg("fixture content loaded")
			})
			if err != nil {
				return nil, nil, fmt.Errorf("load fixture: %w", err)
			}
		}
		return demo, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func bookingSchedule(cfg *config.Config) slots.Schedule {
	s := slots.DefaultSchedule()
	if cfg.Booking.DaysAhead > 0 {
		s.DaysAhead = cfg.Booking.DaysAhead
	}
	if days := cfg.BookingDaysOff(); days != nil {
		s.DaysOff = days
	}
	if cfg.Booking.FirstSlot != "" {
		s.FirstSlot = cfg.Booking.FirstSlot
	}
	if cfg.Booking.LastSlot != "" {
		s.LastSlot = cfg.Booking.LastSlot
	}
	if cfg.Booking.SlotMinutes > 0 {
		s.SlotDuration = cfg.Booking.SlotMinutes
	}
	return s
}

func services(cfg *config.Config) []booking.Service {
	if len(cfg.Booking.Services) == 0 {
		return booking.DefaultServices()
	}
	out := make([]booking.Service, 0, len(cfg.Booking.Services))
	for _, s := range cfg.Booking.Services {
		out = append(out, booking.Service{Key: s.Key, Name: s.Name, Description: s.Description, Duration: s.Duration})
	}
	return out
}

func notifiers(cfg *config.Config, logger *zerolog.Logger) []notify.Notifier {
	var out []notify.Notifier
	if tg := cfg.Notify.Telegram; tg.BotToken != "" && len(tg.ChatIDs) > 0 {
		bot, err := notify.NewTelegramBot(tg.BotToken, tg.Debug)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifications disabled")
		} else {
			out = append(out, notify.NewTelegram(bot, tg.ChatIDs))
		}
	}
	if smtpCfg := cfg.Notify.SMTP; smtpCfg.Host != "" {
		out = append(out, notify.NewSMTP(notify.SMTPConfig{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
			From:     smtpCfg.From,
			FromName: smtpCfg.FromName,
		}))
	}
	return out
}

// newPortraits picks S3 when a bucket is configured and the local directory otherwise.
// The returned dir is non-empty when the API should serve uploaded files itself.
func newPortraits(ctx context.Context, cfg *config.Config, svc *settings.Service, logger *zerolog.Logger) (*media.Portraits, string) {
	if s3cfg := cfg.Media.S3; s3cfg.Bucket != "" {
		storage, err := media.NewS3(ctx, media.S3Options{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			PublicURL: s3cfg.PublicURL,
		})
		if err == nil {
			return media.NewPortraits(storage, svc, cfg.MaxUploadBytes(), logger), ""
		}
		logger.Error().Err(err).Msg("s3 unavailable, storing uploads locally")
	}

	dir := filepath.Clean(cfg.Media.LocalDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("portrait uploads disabled")
		return nil, ""
	}
	return media.NewPortraits(media.NewLocal(dir, cfg.Media.PublicPath), svc, cfg.MaxUploadBytes(), logger), dir
}

func startGRPCHealth(ctx context.Context, cfg *config.Config, checker *health.Checker, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Monitoring.GRPCHealthPort))
	if err != nil {
		logger.Error().Err(err).Msg("grpc health listen error")
		return
	}
	logger.Info().Int("port", cfg.Monitoring.GRPCHealthPort).Msg("grpc health server listening")
	if err := health.NewGRPC(checker, cfg.GRPCRefreshInterval(), logger).Serve(ctx, lis); err != nil {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
