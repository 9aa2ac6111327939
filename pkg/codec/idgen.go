package codec

import (
	"strings"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// IDGenerator produces identifier values for entities that have none.
type IDGenerator interface {
	Generate() any
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() any

func (f IDGeneratorFunc) Generate() any {
	return f()
}

// KSUIDGenerator generates time-ordered ksuid.KSUID values.
type KSUIDGenerator struct{}

func (KSUIDGenerator) Generate() any {
	return ksuid.New()
}

// UUIDGenerator generates random version 4 uuid.UUID values.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() any {
	return uuid.New()
}

// NewIDGenerator returns the generator known under name: "ksuid" (also the
// empty name) or "uuid".
func NewIDGenerator(name string) (IDGenerator, error) {
	switch strings.ToLower(name) {
	case "", "ksuid":
		return KSUIDGenerator{}, nil
	case "uuid":
		return UUIDGenerator{}, nil
	}
	return nil, configErrorf(nil, "unknown id generator %q, expected ksuid or uuid", name)
}
