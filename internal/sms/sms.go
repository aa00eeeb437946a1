package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
)

// ErrDisabled is returned by the disabled channel; callers decide whether a
// development fallback applies.
var ErrDisabled = errors.New("sms channel not configured")

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Module provides the configured Sender.
var Module = fx.Provide(NewSender)

// NewSender selects Twilio when credentials are present and the disabled
// channel otherwise.
func NewSender(cfg config.Config, logger *zap.Logger) Sender {
	if !cfg.SMS.Twilio.Enabled() {
		logger.Warn("sms channel disabled; twilio credentials missing",
			zap.Bool("dev_fallback", cfg.SMS.DevFallback),
		)
		return Disabled{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.SMS.Twilio.AccountSID,
		Password: cfg.SMS.Twilio.AuthToken,
	})
	return &twilioSender{
		api:     client.Api,
		from:    cfg.SMS.Twilio.From,
		timeout: cfg.SMS.Timeout,
		logger:  logger,
	}
}

// Disabled is the Sender used when no SMS provider is configured.
type Disabled struct{}

// Send always fails with ErrDisabled.
func (Disabled) Send(context.Context, string, string) error { return ErrDisabled }

type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

type twilioSender struct {
	api     messageCreator
	from    string
	timeout time.Duration
	logger  *zap.Logger
}

// Send creates a Twilio message. The Twilio client has no context support, so
// the call runs in a goroutine bounded by the configured timeout.
func (s *twilioSender) Send(ctx context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := s.api.CreateMessage(params)
		if err != nil {
			done <- result{err: err}
			return
		}
		var sid string
		if msg != nil && msg.Sid != nil {
			sid = *msg.Sid
		}
		done <- result{sid: sid}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio send: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("twilio send: %w", res.err)
		}
		s.logger.Debug("sms sent", zap.String("sid", res.sid))
		return nil
	}
}
