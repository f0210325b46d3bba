package helpers

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	otpMin = 100000
	otpMax = 999999
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenOTPCode generates a uniformly random 6-digit code in [100000, 999999].
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}
