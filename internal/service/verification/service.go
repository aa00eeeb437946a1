package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/logger"
	repo "github.com/Additional-Code/handyman/internal/repository/verification"
	"github.com/Additional-Code/handyman/internal/sms"
	"github.com/Additional-Code/handyman/internal/validate"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/handyman/service/verification")

// ConfirmedMessage is the success text returned to clients after Confirm.
const ConfirmedMessage = "phone number verified"

const (
	msgInvalidPhone = "invalid phone number format"
	msgInvalidCode  = "invalid or expired code"
	msgCodeSent     = "verification code sent"
)

// IssueResult describes a freshly issued code. Code is only populated when the
// development fallback surfaces it instead of sending an SMS.
type IssueResult struct {
	Message string
	Code    string
}

// Service issues and confirms phone verification codes.
type Service struct {
	repo        *repo.Repository
	sender      sms.Sender
	logger      *zap.Logger
	codeLength  int
	ttl         time.Duration
	devFallback bool
	now         func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Sender     sms.Sender
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:        p.Repository,
		sender:      p.Sender,
		logger:      p.Logger,
		codeLength:  p.Config.SMS.CodeLength,
		ttl:         p.Config.SMS.CodeTTL,
		devFallback: p.Config.SMS.DevFallback,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a new code for phone, replacing any previous one.
func (s *Service) Issue(ctx context.Context, phone string) (IssueResult, error) {
	ctx, span := serviceTracer.Start(ctx, "VerificationService.Issue")
	defer span.End()

	cleaned, ok := validate.Phone(phone)
	if !ok {
		return IssueResult{}, errorbank.BadRequest(msgInvalidPhone)
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return IssueResult{}, errorbank.Internal("failed to generate code", errorbank.WithCause(err))
	}

	now := s.now()
	if err := s.repo.Upsert(ctx, cleaned, code, now.Add(s.ttl), now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return IssueResult{}, errorbank.Internal("failed to store verification code", errorbank.WithCause(err))
	}

	body := fmt.Sprintf("Your verification code: %s\nThe code expires in %d minutes.", code, int(s.ttl.Minutes()))
	err = s.sender.Send(ctx, cleaned, body)
	switch {
	case err == nil:
		return IssueResult{Message: msgCodeSent}, nil
	case errors.Is(err, sms.ErrDisabled) && s.devFallback:
		s.logger.Warn("sms channel disabled; surfacing verification code", logger.Phone(cleaned))
		return IssueResult{Message: fmt.Sprintf("SMS code: %s (test mode)", code), Code: code}, nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "sms send failed")
		s.logger.Error("sms send failed", logger.Phone(cleaned), zap.Error(err))
		return IssueResult{}, errorbank.Internal("failed to send verification code", errorbank.WithCause(err))
	}
}

// Confirm marks the phone verified when code matches an unexpired row.
// Every rejection carries the same message.
func (s *Service) Confirm(ctx context.Context, phone, code string) error {
	ctx, span := serviceTracer.Start(ctx, "VerificationService.Confirm")
	defer span.End()

	cleaned, ok := validate.Phone(phone)
	if !ok {
		return errorbank.BadRequest(msgInvalidCode)
	}
	code, ok = validate.Code(code)
	if !ok {
		return errorbank.BadRequest(msgInvalidCode)
	}

	v, err := s.repo.GetByPhone(ctx, cleaned)
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.BadRequest(msgInvalidCode)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to verify code", errorbank.WithCause(err))
	}

	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 || !v.ActiveAt(s.now()) {
		return errorbank.BadRequest(msgInvalidCode)
	}
	if v.IsVerified {
		return nil
	}

	if err := s.repo.MarkVerified(ctx, v.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to verify code", errorbank.WithCause(err))
	}
	return nil
}

// IsVerified reports whether phone holds a confirmed, unexpired code. The
// verification is not consumed.
func (s *Service) IsVerified(ctx context.Context, phone string) (bool, error) {
	ctx, span := serviceTracer.Start(ctx, "VerificationService.IsVerified")
	defer span.End()

	v, err := s.repo.GetByPhone(ctx, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return false, err
	}
	return v.IsVerified && v.ActiveAt(s.now()), nil
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
