package bookings

import (
	"crypto/rand"
	"fmt"
	"time"
)

// alphabet skips ambiguous characters (0/O, 1/I/L).
const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const numberSuffixLen = 6

// NewBookingNumber returns a human-readable booking reference of the form
// BK-YYYYMM-XXXXXX. Collisions are possible in theory; the unique index on
// booking_number makes the caller retry.
func NewBookingNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating booking number: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("BK-%s-%s", now.UTC().Format("200601"), string(buf)), nil
}
