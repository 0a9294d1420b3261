// Package passcode issues the short-lived numeric credentials patients log in with.
package passcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	Length = 6
	TTL    = 60 * time.Minute
)

var (
	passcodeSpace      = big.NewInt(1_000_000)
	patientNumberFloor = big.NewInt(10_000)
	patientNumberSpace = big.NewInt(90_000)
)

// Generate returns a uniformly random code in 000000-999999, zero padded.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, passcodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Rotate returns a fresh code that differs from previous.
func Rotate(previous string) (string, error) {
	for {
		code, err := Generate()
		if err != nil {
			return "", err
		}
		if code != previous {
			return code, nil
		}
	}
}

// ExpiresAt is the expiry for a code issued at issuedAt.
func ExpiresAt(issuedAt time.Time) time.Time {
	return issuedAt.Add(TTL)
}

// GeneratePatientNumber returns a random 5-digit number in 10000-99999.
func GeneratePatientNumber() (string, error) {
	n, err := rand.Int(rand.Reader, patientNumberSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate patient number: %w", err)
	}
	return n.Add(n, patientNumberFloor).String(), nil
}
