package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPhone(t *testing.T) {
	cases := map[string]string{
		"5511999990000@s.whatsapp.net":    "5511999990000",
		"5511999990000@c.us":              "5511999990000",
		"5511999990000:12@s.whatsapp.net": "5511999990000",
		"+55 (11) 99999-0000":             "5511999990000",
		"  5511999990000  ":               "5511999990000",
		"":                                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalPhone(in), in)
	}
}

func TestIsGroupJID(t *testing.T) {
	assert.True(t, IsGroupJID("120363025246125486@g.us"))
	assert.False(t, IsGroupJID("5511999990000@s.whatsapp.net"))
}

func TestIsBroadcastJID(t *testing.T) {
	assert.True(t, IsBroadcastJID("status@broadcast"))
	assert.False(t, IsBroadcastJID("5511999990000@c.us"))
}
