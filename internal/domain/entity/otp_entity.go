package entity

import (
	"errors"
	"time"
)

// OTPPurpose selects which code/expiry pair on the account a passcode belongs to.
type OTPPurpose uint8

const (
	PurposeVerify OTPPurpose = iota + 1
	PurposeReset
)

const (
	VerifyCodeTTL = 24 * time.Hour
	ResetCodeTTL  = 15 * time.Minute
)

var (
	ErrInvalidCode    = errors.New("invalid code")
	ErrExpired        = errors.New("code expired")
	ErrUnknownPurpose = errors.New("unknown otp purpose")
)

func (p OTPPurpose) String() string {
	switch p {
	case PurposeVerify:
		return "verify"
	case PurposeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// TTL is the validity window of a freshly issued code.
func (p OTPPurpose) TTL() time.Duration {
	switch p {
	case PurposeVerify:
		return VerifyCodeTTL
	case PurposeReset:
		return ResetCodeTTL
	default:
		return 0
	}
}

// OTP returns the stored code and expiry for purpose p.
func (u *User) OTP(p OTPPurpose) (string, time.Time) {
	switch p {
	case PurposeVerify:
		return u.VerifyCode, u.VerifyExpiry
	case PurposeReset:
		return u.ResetCode, u.ResetExpiry
	default:
		return "", time.Time{}
	}
}

// SetOTP stores code and expiry together.
func (u *User) SetOTP(p OTPPurpose, code string, expiry time.Time) {
	switch p {
	case PurposeVerify:
		u.VerifyCode, u.VerifyExpiry = code, expiry
	case PurposeReset:
		u.ResetCode, u.ResetExpiry = code, expiry
	}
}

// ClearOTP empties code and expiry together.
func (u *User) ClearOTP(p OTPPurpose) {
	u.SetOTP(p, "", time.Time{})
}

// CheckOTP validates submitted against the stored pair at instant now.
// The code is checked before the expiry, so a consumed code reports ErrInvalidCode.
// A code is valid strictly before its expiry; now == expiry is ErrExpired.
func (u *User) CheckOTP(p OTPPurpose, submitted string, now time.Time) error {
	if p.TTL() == 0 {
		return ErrUnknownPurpose
	}
	code, expiry := u.OTP(p)
	if code == "" || code != submitted {
		return ErrInvalidCode
	}
	if expiry.IsZero() || !now.Before(expiry) {
		return ErrExpired
	}
	return nil
}
