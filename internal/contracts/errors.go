package contracts

import (
	"errors"
	"fmt"
)

// ConfigError is a catalog or model configuration failure.
// It is the only error class that fails a run.
type ConfigError struct {
	Source  string // 파일 경로 또는 "env", "model"
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	switch {
	case e.Source != "" && e.Field != "":
		return fmt.Sprintf("config error in %s: %s: %s", e.Source, e.Field, msg)
	case e.Source != "":
		return fmt.Sprintf("config error in %s: %s", e.Source, msg)
	case e.Field != "":
		return fmt.Sprintf("config error: %s: %s", e.Field, msg)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err wraps a *ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// ErrNoData is returned by providers when a series has no usable observation
var ErrNoData = errors.New("no data")
