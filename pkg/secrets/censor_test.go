package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCensor_IsSecret(t *testing.T) {
	c := NewCensor("favoriteFruit")

	tests := []struct {
		name string
		want bool
	}{
		{"password", true},
		{"tokenValue", true},
		{"token-value", true},
		{"api_key", true},
		{"apiKey", true},
		{"certKeyFilePassphrase", true},
		{"favorite-fruit", true},
		{"favorite_fruit", true},
		{"monkey", false},
		{"color", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.IsSecret(tt.name); got != tt.want {
			t.Errorf("IsSecret(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCensor_Mask(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		show  int
		value string
		want  string
	}{
		{name: "full", style: StyleFull, value: "hunter2", want: "****"},
		{name: "partial", style: StylePartial, show: 3, value: "hunter2", want: "hun****"},
		{name: "partial short value", style: StylePartial, show: 8, value: "hunter2", want: "****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCensor().WithStyle(tt.style, tt.show)
			assert.Equal(t, tt.want, c.Mask(tt.value))
		})
	}

	hashed := NewCensor().WithStyle(StyleHash, 0).Mask("hunter2")
	assert.True(t, strings.HasPrefix(hashed, "sha256:"))
	assert.Len(t, hashed, len("sha256:")+16)
	assert.Equal(t, hashed, NewCensor().WithStyle(StyleHash, 0).Mask("hunter2"))
}

func TestCensor_Values(t *testing.T) {
	c := NewCensor("pin")
	in := map[string]any{
		"color":    "yellow",
		"password": "hunter2",
		"pin":      1234.0,
		"tokens":   []string{"a", "b"},
		"nested":   map[string]any{"secret": "x", "plain": "y"},
		"empty":    nil,
	}

	out := c.Values(in)

	assert.Equal(t, "yellow", out["color"])
	assert.Equal(t, "****", out["password"])
	assert.Equal(t, "****", out["pin"])
	assert.Equal(t, []string{"****", "****"}, out["tokens"])
	assert.Equal(t, map[string]any{"secret": "****", "plain": "y"}, out["nested"])
	assert.Nil(t, out["empty"])
	assert.Equal(t, "hunter2", in["password"], "input must not change")
	assert.Equal(t, []string{"pin"}, c.Fields())
}
