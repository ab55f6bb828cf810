package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToken_IsClosedToExpiration(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tok := &Token{
		Base:           Base{LastModificationTime: base},
		ExpirationTime: base.Add(4 * time.Hour),
	}

	cases := []struct {
		name   string
		now    time.Time
		closed bool
	}{
		{"fresh", base.Add(time.Minute), false},
		{"half life", base.Add(2 * time.Hour), false},
		{"just before last quarter", base.Add(3*time.Hour - time.Second), false},
		{"exactly last quarter", base.Add(3 * time.Hour), true},
		{"inside last quarter", base.Add(3*time.Hour + 30*time.Minute), true},
		{"expired", base.Add(5 * time.Hour), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.closed, tok.IsClosedToExpiration(tc.now))
		})
	}
}

func TestToken_IsExpired(t *testing.T) {
	now := time.Now()
	tok := &Token{ExpirationTime: now}
	require.True(t, tok.IsExpired(now))
	require.False(t, tok.IsExpired(now.Add(-time.Nanosecond)))
}

func TestToken_ClientOnly(t *testing.T) {
	require.True(t, (&Token{ClientID: "c"}).IsClientOnly())
	require.False(t, (&Token{ClientID: "c", UserID: "u"}).IsClientOnly())
}
