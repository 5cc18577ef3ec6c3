package utils

import (
	"github.com/google/uuid"
)

// GetUUID returns a new document id.
func GetUUID() string {
	return uuid.New().String()
}
