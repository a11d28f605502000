package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for runs and model responses.
func NewID() string { return uuid.NewString() }
