package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein_Distance(t *testing.T) {
	m := Levenshtein{}
	assert.Equal(t, 0.0, m.Distance("acme", "acme"))
	assert.InDelta(t, 0.1875, m.Distance("acmetechnology", "acmetechnologies"), 0.0001)
	assert.InDelta(t, 1.0, m.Distance("abcd", "wxyz"), 0.0001)
	assert.InDelta(t, 1.0, m.Distance("", "acme"), 0.0001)
}

func TestLevenshtein_Key(t *testing.T) {
	assert.Equal(t, "acme", Levenshtein{}.Key("Acme Pvt Ltd"))
}

func TestTokenSet_Distance(t *testing.T) {
	m := TokenSet{}
	assert.Equal(t, 0.0, m.Distance("acme payments", "acme payments"))
	assert.InDelta(t, 0.5, m.Distance("acme payments", "acme"), 0.0001)
	assert.Equal(t, 1.0, m.Distance("", "acme"))
	assert.Equal(t, 1.0, m.Distance("beta", "acme"))
}

func TestTokenSet_Key(t *testing.T) {
	assert.Equal(t, "acme payments", TokenSet{}.Key("Acme Payments Pvt. Ltd."))
}
