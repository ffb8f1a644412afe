package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("load: %w", NewTransientError(errors.New("429"), 429)), true},
		{"eris wrapped explicit", eris.Wrap(NewTransientError(errors.New("busy"), 503), "snapshot: load clients"), true},
		{"net timeout", fmt.Errorf("query: %w", timeoutErr{}), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message pattern", errors.New("write tcp: broken pipe"), true},
		{"pg too many connections", eris.Wrap(&pgconn.PgError{Code: "53300", Message: "sorry, too many clients already"}, "snapshot: query"), true},
		{"pg starting up", &pgconn.PgError{Code: "57P03"}, true},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg undefined table", &pgconn.PgError{Code: "42P01", Message: "relation \"client_usage\" does not exist"}, false},
		{"plain", errors.New("invalid input: missing field"), false},
		{"no such file", errors.New("open clients.json: no such file or directory"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 502)
	assert.Equal(t, "inner", te.Error())
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 502, te.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
