package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	tcs := []struct {
		Raw  string
		Want Proto
	}{
		{"HTTP/1.0", HTTP10},
		{"HTTP/1.1", HTTP11},
		{"HTTP/2.0", HTTP2},
		{"HTTP/1.2", Unknown},
		{"HTTP/1,1", Unknown},
		{"http/1.1", Unknown},
		{"HTTP/1.10", Unknown},
		{"", Unknown},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.Want, FromBytes([]byte(tc.Raw)), tc.Raw)
	}

	require.Equal(t, "HTTP/1.1", HTTP11.String())
}
