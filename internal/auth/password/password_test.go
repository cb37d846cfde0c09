package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))
	assert.True(t, Verify("correct horse battery", encoded))
	assert.False(t, Verify("correct horse batterY", encoded))
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("same-password-123")
	require.NoError(t, err)
	b, err := Hash("same-password-123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$aGFzaA",
	} {
		assert.False(t, Verify("anything", encoded), encoded)
	}
}

func TestVerifyAbsentMatchesDefaultCost(t *testing.T) {
	assert.False(t, VerifyAbsent("cbam-absent-account"))
	assert.False(t, VerifyAbsent(""))

	p, _, hash, ok := decode(absentHash())
	require.True(t, ok)
	assert.Equal(t, DefaultParams.Time, p.Time)
	assert.Equal(t, DefaultParams.Memory, p.Memory)
	assert.Equal(t, DefaultParams.Threads, p.Threads)
	assert.Len(t, hash, int(DefaultParams.KeyLen))
}

func TestCheckPolicy(t *testing.T) {
	assert.ErrorIs(t, CheckPolicy("short"), ErrTooShort)
	assert.ErrorIs(t, CheckPolicy("   elevenchars   "), ErrTooShort)
	assert.NoError(t, CheckPolicy("twelve-chars"))
	assert.NoError(t, CheckPolicy("ünïcödé-pässwörd"))
}
