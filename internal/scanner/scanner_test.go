package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "https passthrough", in: "https://example.com/page", want: "https://example.com/page", wantOK: true},
		{name: "http passthrough", in: "http://example.com", want: "http://example.com", wantOK: true},
		{name: "bare host gets https", in: "example.com", want: "https://example.com", wantOK: true},
		{name: "bare host with path", in: "example.com/a/b", want: "https://example.com/a/b", wantOK: true},
		{name: "empty", in: "", wantOK: false},
		{name: "ftp scheme", in: "ftp://example.com", wantOK: false},
		{name: "javascript scheme", in: "javascript:alert(1)", wantOK: false},
		{name: "scheme without host", in: "https://", wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			if !tc.wantOK {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
