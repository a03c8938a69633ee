package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/config"
	"github.com/prolinq/messaging-backend/internal/model"
)

// Sender delivers one email. Send must respect the context deadline; the
// dispatcher treats a deadline hit as a transient failure.
type Sender interface {
	Send(ctx context.Context, job *model.EmailJob) error
	Enabled() bool
}

// SMTPSender delivers mail through a plain SMTP relay. When disabled it
// fails every send with ErrSenderDisabled, which the queue treats as a
// permanent failure since retrying cannot succeed.
type SMTPSender struct {
	Cfg config.SMTP
	Log zerolog.Logger
}

func (s *SMTPSender) Enabled() bool {
	return s.Cfg.Enabled && s.Cfg.Host != "" && s.Cfg.From != ""
}

func (s *SMTPSender) addr() string {
	return fmt.Sprintf("%s:%d", s.Cfg.Host, s.Cfg.Port)
}

func (s *SMTPSender) auth() smtp.Auth {
	if s.Cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", s.Cfg.Username, s.Cfg.Password, s.Cfg.Host)
}

// Send delivers the job's text body. net/smtp has no context support, so the
// call runs in a goroutine and the context fires first on timeout.
func (s *SMTPSender) Send(ctx context.Context, job *model.EmailJob) error {
	if !s.Enabled() {
		return apperrors.ErrSenderDisabled
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.Cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", job.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", job.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(job.TextContent)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr(), s.auth(), s.Cfg.From, []string{job.To}, []byte(b.String()))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TestConnection verifies the relay is reachable and accepts our greeting.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	if !s.Enabled() {
		return apperrors.ErrSenderDisabled
	}

	done := make(chan error, 1)
	go func() {
		c, err := smtp.Dial(s.addr())
		if err != nil {
			done <- err
			return
		}
		defer c.Close()
		if err := c.Hello("prolinq"); err != nil {
			done <- err
			return
		}
		done <- c.Quit()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
