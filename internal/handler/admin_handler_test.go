package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForSpreadsheet(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain value untouched", "Springfield", "Springfield"},
		{"empty value untouched", "", ""},
		{"formula gets prefixed", "=1+2", "'=1+2"},
		{"plus gets prefixed", "+HYPERLINK(...)", "'+HYPERLINK(...)"},
		{"minus gets prefixed", "-2+3", "'-2+3"},
		{"at sign gets prefixed", "@SUM(A1)", "'@SUM(A1)"},
		{"NUL stripped from prefixed value", "=cmd\x00", "'=cmd"},
		{"tab-led formula still prefixed", "\t=cmd", "'=cmd"},
		{"CR-led formula still prefixed", "\r=cmd", "'=cmd"},
		{"newline stripped", "two\nlines", "twolines"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeForSpreadsheet(tc.in))
		})
	}
}
