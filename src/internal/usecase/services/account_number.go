package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/api-sage/customer-ledger/src/internal/domain"
)

const accountNumberDigits = "0123456789"

// AccountNumberGenerator yields candidate account numbers. Candidates may
// collide; the store decides uniqueness.
type AccountNumberGenerator func() (string, error)

// RandomAccountNumber draws each digit uniformly from a cryptographic source.
func RandomAccountNumber() (string, error) {
	base := big.NewInt(int64(len(accountNumberDigits)))

	var b strings.Builder
	b.Grow(domain.AccountNumberLength)
	for i := 0; i < domain.AccountNumberLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		b.WriteByte(accountNumberDigits[n.Int64()])
	}

	return b.String(), nil
}

func isAccountNumber(value string) bool {
	if len(value) != domain.AccountNumberLength {
		return false
	}
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
