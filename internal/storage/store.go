// Package storage persists simulations under generated reference codes.
package storage

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// ErrNotFound is returned when no simulation has the requested reference code.
var ErrNotFound = errors.New("simulation not found")

// maxCodeAttempts bounds retries when a generated reference code collides.
const maxCodeAttempts = 3

// Record is a persisted simulation.
type Record struct {
	Code      string          `json:"code"`
	CreatedAt time.Time       `json:"createdAt"`
	Analysis  credit.Analysis `json:"analysis"`
}

// Store saves simulations and looks them up by reference code.
type Store interface {
	// Save persists analysis and returns its reference code.
	Save(ctx context.Context, analysis credit.Analysis) (Record, error)
	// Get returns the record for code or ErrNotFound.
	Get(ctx context.Context, code string) (Record, error)
}

// NewReferenceCode returns a code of the form SIM-<unix millis>-<suffix>
// where suffix is nine random base36 characters.
func NewReferenceCode(now time.Time) string {
	id := uuid.New()
	suffix := new(big.Int).SetBytes(id[:]).Text(36)
	if len(suffix) > constants.ReferenceCodeSuffixLength {
		suffix = suffix[len(suffix)-constants.ReferenceCodeSuffixLength:]
	}
	suffix = strings.Repeat("0", constants.ReferenceCodeSuffixLength-len(suffix)) + suffix

	return constants.ReferenceCodePrefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// ValidReferenceCode reports whether code has the shape NewReferenceCode produces.
func ValidReferenceCode(code string) bool {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != constants.ReferenceCodePrefix {
		return false
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return false
	}
	if len(parts[2]) != constants.ReferenceCodeSuffixLength {
		return false
	}
	for _, r := range parts[2] {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

func newRecord(analysis credit.Analysis, now time.Time) Record {
	code := NewReferenceCode(now)
	analysis.ReferenceCode = code
	analysis.CreatedAt = now
	return Record{Code: code, CreatedAt: now, Analysis: analysis}
}
