package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashVerify(t *testing.T) {
	h, err := Hash(Fast, "correct horse")
	require.NoError(t, err)
	require.True(t, Verify("correct horse", h))
	require.False(t, Verify("correct horsE", h))
	require.False(t, Verify("correct horse", "$argon2id$v=19$m=1,t=1,p=1$bad"))
	require.False(t, Verify("", h))

	_, err = Hash(Fast, "")
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestDigest(t *testing.T) {
	require.Equal(t, "", Digest(""))
	d := Digest("abc")
	require.Len(t, d, 128)
	require.Equal(t, "ddaf35a193617aba", d[:16])
	require.True(t, DigestEqual("abc", d))
	require.False(t, DigestEqual("", ""))
}

func TestPolicy(t *testing.T) {
	p := Policy{MinLength: 8, RequireDigit: true}
	ok, reasons := p.Validate("short")
	require.False(t, ok)
	require.Equal(t, []string{"too_short", "missing_digit"}, reasons)

	ok, _ = p.Validate("longenough1")
	require.True(t, ok)
}

func TestBlacklist(t *testing.T) {
	bl := NewBlacklist("Password1", "")
	require.True(t, bl.Contains(" password1 "))
	require.False(t, bl.Contains("other"))

	var nilList *Blacklist
	require.False(t, nilList.Contains("x"))

	empty, err := LoadBlacklist("")
	require.NoError(t, err)
	require.False(t, empty.Contains("x"))
}
