// Package security hosts the early-payout approval verifiers. The verifier
// is selected once at bootstrap by environment so the application layer
// stays free of environment-sensitive branches.
package security

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var errApprovalRejected = errors.New("approval code rejected")

// BcryptVerifier checks the presented code against a bcrypt hash configured
// for the deployment. Production environments use this.
type BcryptVerifier struct {
	hash []byte
}

func NewBcryptVerifier(codeHash string) (*BcryptVerifier, error) {
	hash := []byte(strings.TrimSpace(codeHash))
	if len(hash) == 0 {
		return nil, errors.New("approval code hash is required")
	}
	// Validate the hash shape up front rather than on first use.
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, err
	}
	return &BcryptVerifier{hash: hash}, nil
}

func (v *BcryptVerifier) Verify(_ context.Context, code string) error {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(code)); err != nil {
		return errApprovalRejected
	}
	return nil
}

// HashApprovalCode derives a storable hash for a new approval code.
func HashApprovalCode(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StaticVerifier accepts a single known code. Local and sandbox runtimes
// only; bootstrap refuses to select it when the environment is production.
type StaticVerifier struct {
	code string
}

func NewStaticVerifier(code string) *StaticVerifier {
	if strings.TrimSpace(code) == "" {
		code = "000000"
	}
	return &StaticVerifier{code: code}
}

func (v *StaticVerifier) Verify(_ context.Context, code string) error {
	if strings.TrimSpace(code) != v.code {
		return errApprovalRejected
	}
	return nil
}
