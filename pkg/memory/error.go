package memory

import "errors"

// ErrEmptySummary is returned when a fact with no text is written.
var ErrEmptySummary = errors.New("memory item summary is empty")

// ErrInvalidMemoryType is returned for a memory type outside MemoryTypes.
var ErrInvalidMemoryType = errors.New("invalid memory type")
