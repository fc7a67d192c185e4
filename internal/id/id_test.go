package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixSession)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixSession, PrefixClient, "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+nanoidLen)
			assert.True(t, HasPrefix(id, prefix))
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, HasPrefix(MustGenerate(PrefixSession), PrefixSession))
	})
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", "feed-V1StGXR8_Z5jdHi6B-myT", true},
		{"wrong prefix", "sse-V1StGXR8_Z5jdHi6B-myT", false},
		{"too short", "feed-abc", false},
		{"bad character", "feed-V1StGXR8_Z5jdHi6B-my!", false},
		{"no separator", "feedV1StGXR8_Z5jdHi6B-myT", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPrefix(tt.in, PrefixSession))
		})
	}
}
