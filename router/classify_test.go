package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IsConversational(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"Bonjour, ça va ?", true},
		{"salut", true},
		{"Merci beaucoup pour cette explication très détaillée", true},
		{"Au revoir et bonne journée", true},
		{"cc", true},
		{"Comment vas-tu ?", true},
		// Three words or fewer with a question mark.
		{"airflow ?", true},
		{"quoi ?", true},
		// Three words or fewer without any letter.
		{"42 + 7", true},
		{"!!!", true},
		// Short but a plain keyword lookup: neither rule fires.
		{"airflow", false},
		{"logs dag airflow", false},
		// Ten words, alphabetic, no lexicon match, despite the question mark.
		{"Quels sont les avantages du quantum computing pour une entreprise ?", false},
		{"Comment accéder aux logs des DAGs dans Airflow", false},
		// Lexicon words must match on word boundaries only.
		{"le mercier travaille", false},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			assert.Equal(t, c.want, IsConversational(c.message), c.message)
		})
	}
}
