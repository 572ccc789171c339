// Package mail sends the account verification email for new students.
//
// A Verifier creates a random token, stores only its bcrypt hash and mails
// the plain token to the student as part of a verification link. Delivery
// goes through a Sender; SMTPSender is the production one.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"

	"github.com/aanand-mishra/school-students/internal/config"
	"github.com/aanand-mishra/school-students/internal/utils/logging"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type TokenStore interface {
	SaveVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
}

// SMTPSender delivers messages with gomail. It dials a new connection per
// message; verification mail volume does not warrant a pooled daemon.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	// gomail has no context support; at least do not dial for a request
	// that is already gone.
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

const verificationSubject = "Verify your school account"

var verificationTmpl = template.Must(template.New("verification").Parse(
	`<p>Hello,</p>
<p>An account has been created for you. Please verify your email address by opening the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires on {{.ExpiresAt}}.</p>`))

type Verifier struct {
	tokens  TokenStore
	sender  Sender
	baseURL string
	ttl     time.Duration
	cost    int
	now     func() time.Time
	logger  *slog.Logger
}

type VerifierArgs struct {
	Tokens  TokenStore
	Sender  Sender
	BaseURL string
	TTL     time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost   int
	Now    func() time.Time
	Logger *slog.Logger
}

func NewVerifier(args VerifierArgs) *Verifier {
	if args.Cost == 0 {
		args.Cost = bcrypt.DefaultCost
	}
	if args.TTL == 0 {
		args.TTL = 24 * time.Hour
	}
	if args.Now == nil {
		args.Now = time.Now
	}
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &Verifier{
		tokens:  args.Tokens,
		sender:  args.Sender,
		baseURL: args.BaseURL,
		ttl:     args.TTL,
		cost:    args.Cost,
		now:     args.Now,
		logger:  args.Logger.With(slog.String("component", "mail")),
	}
}

// SendAccountVerificationEmail issues a fresh token for userID, replacing any
// earlier one, and mails the verification link to email.
func (v *Verifier) SendAccountVerificationEmail(ctx context.Context, userID int64, email string) error {
	token := uuid.NewString()

	hash, err := bcrypt.GenerateFromPassword([]byte(token), v.cost)
	if err != nil {
		return fmt.Errorf("hash verification token: %w", err)
	}

	expiresAt := v.now().Add(v.ttl)
	if err := v.tokens.SaveVerificationToken(ctx, userID, string(hash), expiresAt); err != nil {
		return fmt.Errorf("save verification token: %w", err)
	}

	link, err := url.JoinPath(v.baseURL, token)
	if err != nil {
		return fmt.Errorf("build verification link: %w", err)
	}

	var body bytes.Buffer
	err = verificationTmpl.Execute(&body, struct {
		Link      string
		ExpiresAt string
	}{
		Link:      link,
		ExpiresAt: expiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	if err := v.sender.Send(ctx, Message{
		To:       email,
		Subject:  verificationSubject,
		HTMLBody: body.String(),
	}); err != nil {
		return err
	}

	v.logger.InfoContext(ctx, "verification email sent",
		slog.Int64("user_id", userID),
		slog.String("email", logging.RedactEmail(email)))
	return nil
}
