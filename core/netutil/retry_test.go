package netutil

import (
	"errors"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"wrapped reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("no route")}, true},
		{"timeout", timeoutErr{}, true},
		{"url wrapped timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, true},
		{"plain error", errors.New("boom"), false},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestShouldRetryRealTimeout(t *testing.T) {
	// A dial to a blackholed address with an immediate deadline yields the
	// same timeout shape net/http produces.
	d := net.Dialer{Timeout: time.Nanosecond}
	_, err := d.Dial("tcp", "10.255.255.1:80")
	if err == nil {
		t.Skip("dial unexpectedly succeeded")
	}
	assert.True(t, ShouldRetry(err))
}
