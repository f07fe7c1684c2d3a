package utils

import (
	"github.com/google/uuid"
)

// GenerateID creates a new opaque unique identifier for a record
func GenerateID() string {
	return uuid.New().String()
}
