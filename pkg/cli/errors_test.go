package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("rate_limit.tokens", "must be positive")
	if !strings.Contains(err.Error(), "rate_limit.tokens") {
		t.Errorf("Error() = %q, want field name included", err.Error())
	}

	bare := NewConfigError("", "unreadable file")
	if strings.Contains(bare.Error(), "in :") {
		t.Errorf("Error() = %q, field prefix should be dropped when empty", bare.Error())
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !strings.Contains(err.Error(), "run") {
		t.Errorf("Error() = %q, want command name included", err.Error())
	}
}
