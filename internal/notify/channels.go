package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the part of tgbotapi.BotAPI the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notifications to fixed admin chats.
type Telegram struct {
	sender  TelegramSender
	chatIDs []int64
}

// NewTelegramBot connects to the Bot API with token. Every API call is bounded by sendTimeout.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegram(sender TelegramSender, chatIDs []int64) *Telegram {
	return &Telegram{sender: sender, chatIDs: chatIDs}
}

func (t *Telegram) Name() string { return "telegram" }

// Notify ignores to; the chats come from config.
func (t *Telegram) Notify(ctx context.Context, _ string, msg Message) error {
	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		m := tgbotapi.NewMessage(chatID, msg.Subject+"\n\n"+msg.Body)
		m.DisableWebPagePreview = true
		err := withContext(ctx, func() error {
			_, err := t.sender.Send(m)
			return err
		})
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			return errors.Join(errs...)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// SendMailFunc is smtp.SendMail with a context bounding the whole exchange.
type SendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP mails notifications to the settings recipient.
type SMTP struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
	send     SendMailFunc
	now      func() time.Time
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTP{
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:     auth,
		from:     from,
		fromName: cfg.FromName,
		send:     sendMail,
		now:      time.Now,
	}
}

func (s *SMTP) Name() string { return "smtp" }

// Notify sends msg to to. An empty recipient is skipped. The sender named in msg wins
// over the configured one.
func (s *SMTP) Notify(ctx context.Context, to string, msg Message) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from, fromName := s.sender(msg)
	if from == "" {
		return errors.New("send mail: no sender address configured")
	}
	body := s.build(to, from, fromName, msg)
	err := withContext(ctx, func() error {
		return s.send(ctx, s.addr, s.auth, from, []string{to}, body)
	})
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *SMTP) sender(msg Message) (string, string) {
	from, fromName := s.from, s.fromName
	if msg.FromAddress != "" {
		from = msg.FromAddress
	}
	if msg.FromName != "" {
		fromName = msg.FromName
	}
	return from, fromName
}

func (s *SMTP) build(to, from, fromName string, msg Message) []byte {
	if fromName != "" {
		from = fmt.Sprintf("%q <%s>", sanitizeHeader(fromName), from)
	}
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", sanitizeHeader(msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// sendMail is smtp.SendMail over a connection whose deadline comes from ctx.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// withContext runs fn and returns early with ctx.Err() when ctx ends first.
func withContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
