package domain

import (
	"testing"

	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/stretchr/testify/assert"
)

func TestPersonalize(t *testing.T) {
	c := &contactsDomain.Contact{Name: "Ana", Company: "Acme", Phone: "5511999990000"}
	assert.Equal(t,
		"Oi Ana da Acme, confirmamos o número 5511999990000. Ana?",
		Personalize("Oi {name} da {company}, confirmamos o número {phone}. {name}?", c))

	nameless := &contactsDomain.Contact{Phone: "5511999990000"}
	assert.Equal(t, "Oi 5511999990000", Personalize("Oi {name}", nameless))
}

func TestFinalStatus(t *testing.T) {
	cases := []struct {
		name          string
		total, failed int
		want          Status
	}{
		{"clean run", 10, 0, StatusSent},
		{"minority failed", 10, 3, StatusSent},
		{"exactly half", 10, 5, StatusSent},
		{"majority failed", 10, 6, StatusCompletedWithErrors},
		{"all failed", 10, 10, StatusFailed},
		{"empty audience", 0, 0, StatusSent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FinalStatus(tc.total, tc.failed, 0.5))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 10))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 100, Percent(10, 10))
	assert.Equal(t, 100, Percent(0, 0))
}
