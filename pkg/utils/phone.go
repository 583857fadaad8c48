package utils

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// CanonicalPhone reduces a WhatsApp address to its digits.
// Accepts bare numbers ("+55 (11) 99999-0000") and JIDs in either gateway
// flavour ("5511999990000@s.whatsapp.net", "5511999990000@c.us"), including
// device-qualified ones ("5511999990000:12@s.whatsapp.net").
func CanonicalPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	user := raw
	if strings.Contains(raw, "@") {
		if jid, err := types.ParseJID(raw); err == nil {
			user = jid.User
		} else {
			user = raw[:strings.Index(raw, "@")]
		}
	}
	if idx := strings.Index(user, ":"); idx >= 0 {
		user = user[:idx]
	}
	return digitsOnly(user)
}

// IsGroupJID reports whether the address is a group chat.
func IsGroupJID(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "@"+types.GroupServer) {
		return true
	}
	return strings.HasSuffix(raw, "@g.us")
}

// IsBroadcastJID reports status/broadcast pseudo-chats.
func IsBroadcastJID(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasSuffix(raw, "@"+types.BroadcastServer) || strings.HasPrefix(raw, "status@")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
