package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"  asha@school.test  ": "as****@school.test",
		"ab@school.test":       "ab@school.test",
		"not-an-email":         "not-an-email",
		"@school.test":         "@school.test",
		"asha@":                "asha@",
		"ámélie@école.fr":      "ám****@école.fr",
	}
	for input, want := range tests {
		assert.Equal(t, want, RedactEmail(input), "input %q", input)
	}
}
