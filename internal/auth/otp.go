package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTPPeriod is how long a one-time code stays valid
const OTPPeriod = 300 * time.Second

// NewOTPSecret generates a base32 TOTP secret for an account
func NewOTPSecret(issuer, account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      uint(OTPPeriod.Seconds()),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp secret: %w", err)
	}
	return key.Secret(), nil
}

// OTPCode returns the code for secret at time t
func OTPCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, otpOpts())
}

// VerifyOTP reports whether code is valid for secret now
func VerifyOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), otpOpts())
	return err == nil && ok
}

func otpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(OTPPeriod.Seconds()),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
