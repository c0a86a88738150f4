package utils

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID & TOKEN ====================

func GenerateSessionToken() uuid.UUID {
	return uuid.New()
}

// ==================== RESERVATION CODE ====================

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReservationCode returns a human-friendly ticket code, e.g. RSV-20250102-K7Q2MX
func GenerateReservationCode(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// fall back to the uuid entropy source
		copy(buf, uuid.New().NodeID())
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}

	return fmt.Sprintf("RSV-%s-%s", now.Format("20060102"), sb.String())
}

// ==================== QUERY PARAMS ====================

// ParseInt converts a query value to a positive int, falling back to defaultValue
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil || result < 1 {
		return defaultValue
	}

	return result
}
