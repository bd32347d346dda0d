package usage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "unknown"},
		{"kind error", &KindError{Kind: "rate_limited"}, "rate_limited"},
		{"wrapped kind error", fmt.Errorf("call: %w", &KindError{Kind: "auth", Err: errors.New("denied")}), "auth"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"net timeout", timeoutErr{}, "timeout"},
		{"invalid amount", fmt.Errorf("%w: -1", ErrInvalidAmount), "invalid_amount"},
		{"plain", errors.New("boom"), "error"},
		{"typed", &os.PathError{Op: "open", Path: "/x", Err: errors.New("nope")}, "error"},
		{"typed root", fmt.Errorf("load: %w", &os.PathError{Op: "open", Path: "/x"}), "fs.PathError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
