// Package mailer transmits rendered messages over SMTPS.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"mailhub/internal/config"
	"mailhub/internal/render"
)

// Mailer attempts delivery of one rendered message. Implementations may
// block on network I/O; the caller's goroutine owns the wait.
type Mailer interface {
	Send(ctx context.Context, msg render.Message) error
}

// SMTP delivers over implicit-TLS SMTP with AUTH, one connection per send.
// Limiter paces dials across tenants; Breaker stops hammering an endpoint
// that keeps failing. Both are optional.
type SMTP struct {
	Tenant  config.TenantConfig
	Timeout time.Duration
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
}

func (m *SMTP) Send(ctx context.Context, msg render.Message) error {
	if m.Limiter != nil {
		if err := m.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if m.Breaker == nil {
		return m.send(msg)
	}
	_, err := m.Breaker.Execute(func() (any, error) {
		return nil, m.send(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("smtp endpoint unavailable: %w", err)
	}
	return err
}

func (m *SMTP) send(msg render.Message) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	addr := net.JoinHostPort(m.Tenant.Server, strconv.Itoa(m.Tenant.Port))
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName: m.Tenant.Server,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(2 * time.Minute)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.Tenant.Server)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.Tenant.User, m.Tenant.Pass, m.Tenant.Server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data start: %w", err)
	}
	if _, err := w.Write(msg.Data); err != nil {
		return fmt.Errorf("data write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("data close: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	return nil
}
