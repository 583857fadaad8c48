package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	preco := &Rule{ID: "r1", Trigger: "preço", Reply: "R1", Active: true}
	horario := &Rule{ID: "r2", Trigger: "HORÁRIO", Reply: "R2", Active: true}
	rules := []*Rule{preco, horario}

	assert.Same(t, preco, Match(rules, "Qual o preço?"))
	assert.Same(t, preco, Match(rules, "QUAL O PREÇO"))
	assert.Same(t, horario, Match(rules, "qual o horário de vocês"))
	assert.Nil(t, Match(rules, "bom dia"))
	assert.Nil(t, Match(rules, ""))
}

func TestMatch_FirstRuleWins(t *testing.T) {
	first := &Rule{ID: "a", Trigger: "oi", Active: true}
	second := &Rule{ID: "b", Trigger: "oi tudo", Active: true}

	assert.Same(t, first, Match([]*Rule{first, second}, "oi tudo bem"))
}

func TestMatch_SkipsInactiveAndBlankTriggers(t *testing.T) {
	blank := &Rule{ID: "a", Trigger: "   ", Active: true}
	off := &Rule{ID: "b", Trigger: "oi", Active: false}

	assert.Nil(t, Match([]*Rule{blank, off}, "oi"))
}
