package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "ORD"

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX, where the suffix is
// eight upper-case hex characters of a random UUID.
func GenerateOrderNumber() string {
	return orderNumberAt(time.Now().UTC(), uuid.New())
}

func orderNumberAt(now time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return orderNumberPrefix + "-" + now.Format("20060102") + "-" + suffix
}
