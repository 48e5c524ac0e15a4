package security

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenShape(t *testing.T) {
	tok := NewToken()

	require.Len(t, tok, tokenSize*2)

	_, err := hex.DecodeString(tok)
	assert.NoError(t, err)
}

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		tok := NewToken()
		require.False(t, seen[tok], "token collision")
		seen[tok] = true
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Expired(&past, now))
	assert.False(t, Expired(&future, now))
	assert.False(t, Expired(nil, now))
	assert.False(t, Expired(&now, now))
}
