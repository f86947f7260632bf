package generator

import (
	"github.com/cockroachdb/errors"
)

// ErrConfiguration marks every validation failure of a generator request:
// unknown api, unknown version or unknown extension.
var ErrConfiguration = errors.New("configuration error")

func configErrorf(hint, format string, args ...any) error {
	err := errors.Mark(errors.Newf(format, args...), ErrConfiguration)
	if hint != "" {
		err = errors.WithHint(err, hint)
	}
	return err
}

// IsConfigurationError reports whether err is a request validation failure.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
