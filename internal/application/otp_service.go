package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/mailer"
)

// OTPService issues and consumes the one-time codes behind email verification
// and password reset.
type OTPService struct {
	Repo     repo.UserRepository
	Notifier Notifier
	Sessions SessionStore
	Logger   *logrus.Logger

	now     func() time.Time
	genCode func() (string, error)
}

func NewOTPService(r repo.UserRepository, n Notifier, sessions SessionStore, logger *logrus.Logger) *OTPService {
	return &OTPService{
		Repo:     r,
		Notifier: n,
		Sessions: sessions,
		Logger:   logger,
		now:      time.Now,
		genCode:  helpers.GenOTPCode,
	}
}

// Issue generates a code for purpose, stores it with its expiry on u and notifies
// the account owner. A failed notification is reported as ErrNotifyFailed; the
// stored code stays valid.
func (s *OTPService) Issue(ctx context.Context, u *entity.User, purpose entity.OTPPurpose) (string, error) {
	ttl := purpose.TTL()
	if ttl == 0 {
		return "", entity.ErrUnknownPurpose
	}
	if purpose == entity.PurposeVerify && u.IsVerified {
		return "", ErrAlreadyVerified
	}
	code, err := s.genCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	expiry := now.Add(ttl)

	if err := s.Repo.SetOTP(ctx, u.ID, purpose, code, expiry); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store %s code: %w", purpose, err)
	}
	u.SetOTP(purpose, code, expiry)

	if s.Notifier != nil {
		msg := mailer.OTPMessage{
			To:        u.Email,
			Name:      u.Name,
			Purpose:   purpose.String(),
			Code:      code,
			ExpiresAt: expiry,
			IssuedAt:  now,
		}
		if err := s.Notifier.SendOTP(ctx, msg); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "purpose": purpose.String()}).Error("otp notify failed")
			}
			return code, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
		}
	}
	return code, nil
}

// IssueByEmail looks the account up case-insensitively and issues a code for it.
func (s *OTPService) IssueByEmail(ctx context.Context, email string, purpose entity.OTPPurpose) (string, error) {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.Issue(ctx, u, purpose)
}

// SendVerification issues a verify code for the signed-in account.
func (s *OTPService) SendVerification(ctx context.Context, userID string) error {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.Issue(ctx, u, entity.PurposeVerify)
	return err
}

// Validate checks submitted against the stored code of purpose and, on success,
// performs the protected action in the same conditional write that clears the
// code. newPassword is only used for PurposeReset.
func (s *OTPService) Validate(ctx context.Context, u *entity.User, purpose entity.OTPPurpose, submitted, newPassword string) error {
	now := s.now()
	if err := u.CheckOTP(purpose, submitted, now); err != nil {
		return err
	}

	switch purpose {
	case entity.PurposeVerify:
		if err := s.Repo.ConsumeVerify(ctx, u.ID, submitted, now); err != nil {
			return consumeErr(err)
		}
		u.IsVerified = true
	case entity.PurposeReset:
		hash, err := hashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := s.Repo.ConsumeReset(ctx, u.ID, submitted, hash, now); err != nil {
			return consumeErr(err)
		}
		u.Password = hash
	default:
		return entity.ErrUnknownPurpose
	}
	u.ClearOTP(purpose)
	return nil
}

// VerifyEmail consumes the verify code of the signed-in account.
func (s *OTPService) VerifyEmail(ctx context.Context, userID, code string) (*entity.User, error) {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// a verified account has no stored code, so a replayed code is ErrInvalidCode
	if err := s.Validate(ctx, u, entity.PurposeVerify, code, ""); err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		if err := s.Notifier.SendWelcome(ctx, u.Email, u.Name); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("welcome email failed")
		}
	}
	return u, nil
}

// ResetPassword consumes the reset code and replaces the password. Existing
// sessions are revoked.
func (s *OTPService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.Validate(ctx, u, entity.PurposeReset, code, newPassword); err != nil {
		return err
	}
	if s.Sessions != nil {
		if err := s.Sessions.Delete(ctx, u.ID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("revoke session after reset failed")
		}
	}
	return nil
}

func (s *OTPService) userByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *OTPService) userByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// consumeErr maps a lost race on the conditional update to ErrInvalidCode.
func consumeErr(err error) error {
	if errors.Is(err, repo.ErrCodeMismatch) {
		return entity.ErrInvalidCode
	}
	return fmt.Errorf("consume code: %w", err)
}
