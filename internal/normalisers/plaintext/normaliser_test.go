package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypes(t *testing.T) {
	types := New().FileTypes()
	assert.Contains(t, types, "txt")
	assert.Contains(t, types, "go")
	assert.NotContains(t, types, "md")
	assert.NotContains(t, types, "html")
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unchanged", input: "Hello\nWorld", want: "Hello\nWorld"},
		{name: "crlf", input: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "byte order mark", input: "\uFEFFtext", want: "text"},
		{name: "control characters", input: "a\x00b\x07c", want: "abc"},
		{name: "tabs kept", input: "key\tvalue", want: "key\tvalue"},
		{name: "trailing spaces", input: "line one   \nline two\t\n\n", want: "line one\nline two"},
		{name: "invalid utf8", input: "ok\xffok", want: "ok\uFFFDok"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Normalise(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
