package util

import (
	"github.com/google/uuid"
	"strings"
)

// GenerateId returns a random 32 character hex identifier.
func GenerateId() string {
	return strings.Replace(uuid.New().String(), "-", "", -1)
}
