package codec

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError with errors.Is.
var ErrConfiguration = errors.New("codec configuration error")

// ConfigurationError reports a mapping that can not be encoded or decoded:
// missing codecs, unusable types, invalid renames and unknown discriminators.
// It is fatal to the encode or decode call that produced it.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(cause error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...), Err: cause}
}
