package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchIDFromWSPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		path string
		want string
		ok   bool
	}{
		{name: "valid", path: "/ws/k3x9q2m7ab", want: "k3x9q2m7ab", ok: true},
		{name: "digits_only", path: "/ws/0123", want: "0123", ok: true},
		{name: "max_length", path: "/ws/" + strings.Repeat("z", 64), want: strings.Repeat("z", 64), ok: true},
		{name: "missing", path: "/ws/"},
		{name: "missing_no_trailing_slash", path: "/ws"},
		{name: "wrong_prefix", path: "/wss/abc"},
		{name: "extra_segment", path: "/ws/abc/def"},
		{name: "upper_case", path: "/ws/Abc"},
		{name: "dash", path: "/ws/abc-def"},
		{name: "too_long", path: "/ws/" + strings.Repeat("a", 65)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := matchIDFromWSPath(tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
