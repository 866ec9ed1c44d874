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

	for i := 0; i < count; i++ {
		id, err := Generate(Session)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{Session, Client, Journal, Batch} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)
			assert.True(t, HasPrefix(id, prefix))

			nanoidPart := strings.TrimPrefix(id, prefix+"-")
			assert.Len(t, nanoidPart, 21)
			for _, char := range nanoidPart {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("ses-abc", Session))
	assert.False(t, HasPrefix("ses-", Session))
	assert.False(t, HasPrefix("mod-abc", Session))
	assert.False(t, HasPrefix("session-abc", Session))
}

func TestMustGenerate(t *testing.T) {
	id := MustGenerate(Batch)
	assert.True(t, strings.HasPrefix(id, "bat-"))
	assert.Equal(t, len(Batch)+1+21, len(id))
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Generate(Session)
	}
}
