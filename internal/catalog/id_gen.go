package catalog

import "github.com/google/uuid"

type IDGenerator interface {
	NewID() (string, error)
}

type RandomIDGenerator struct{}

// NewID returns a random record identifier.
func (RandomIDGenerator) NewID() (string, error) {
	return uuid.NewString(), nil
}
