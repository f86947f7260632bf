package cli

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mark3labs/gladgen/internal/generator"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// asUsageError turns generator configuration errors into usage errors that
// carry the generator's hints; other errors pass through.
func asUsageError(err error) error {
	if err == nil || !generator.IsConfigurationError(err) {
		return err
	}
	msg := err.Error()
	if hints := strings.TrimSpace(errors.FlattenHints(err)); hints != "" {
		msg += "\nHint: " + hints
	}
	return newUsageError(msg)
}
