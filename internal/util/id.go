package util

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random v4 identifier, falling back to a timestamp when the
// random source fails.
func NewID(prefix string) string {
	id := ""
	if value, err := uuid.NewRandom(); err == nil {
		id = value.String()
	} else {
		id = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
