package scheduler

import (
	"errors"
	"fmt"
)

// ConfigError reports an unusable scheduler setting.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scheduler %s: %s", e.Field, e.Msg)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
