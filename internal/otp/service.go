package otp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"campusvote/internal/platform/metrics"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

// Config tunes challenge issuance and verification.
type Config struct {
	Length   int
	TTL      time.Duration
	Cooldown time.Duration
	MaxTries int
}

// Service issues and verifies one-time codes. It owns the challenge
// lifecycle only; flipping the user's verified flag is the caller's job.
type Service struct {
	store   Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store Store, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, cfg: cfg, logger: logger, metrics: m, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue generates a fresh code for the user on the given channel and
// returns the plaintext for delivery. A pending challenge younger than the
// cooldown blocks reissue; an older one is overwritten, invalidating the
// previous code.
func (s *Service) Issue(ctx context.Context, userID string, channel Channel) (string, error) {
	if existing, err := s.store.Find(ctx, userID, channel); err == nil {
		if s.now().Sub(existing.IssuedAt) < s.cfg.Cooldown {
			return "", dErrors.New(dErrors.CodeTooManyRequests, "a code was sent recently, please wait before requesting another")
		}
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending code")
	}

	code, err := GenerateCode(s.cfg.Length)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	rec := &Record{Hash: hash, IssuedAt: s.now()}
	if err := s.store.Save(ctx, userID, channel, rec, s.cfg.TTL); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	if s.metrics != nil {
		s.metrics.OTPsIssued.WithLabelValues(string(channel)).Inc()
	}
	s.logger.InfoContext(ctx, "otp issued", "user_id", userID, "channel", channel)
	return code, nil
}

// Verify checks a submitted code against the pending challenge. A match
// consumes the challenge; a mismatch burns one attempt. Hitting the
// attempt cap destroys the challenge so a fresh code must be requested.
func (s *Service) Verify(ctx context.Context, userID string, channel Channel, code string) error {
	rec, err := s.store.Find(ctx, userID, channel)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "code expired or was never issued, request a new one")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending code")
	}

	if bcrypt.CompareHashAndPassword(rec.Hash, []byte(code)) != nil {
		rec.Attempts++
		if rec.Attempts >= s.cfg.MaxTries {
			if err := s.store.Delete(ctx, userID, channel); err != nil {
				s.logger.ErrorContext(ctx, "failed to discard exhausted otp", "user_id", userID, "error", err)
			}
			return dErrors.New(dErrors.CodeTooManyRequests, "too many incorrect attempts, request a new code")
		}
		if err := s.store.Update(ctx, userID, channel, rec); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt")
		}
		return dErrors.New(dErrors.CodeValidation, "incorrect code")
	}

	if err := s.store.Delete(ctx, userID, channel); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume code")
	}
	return nil
}
