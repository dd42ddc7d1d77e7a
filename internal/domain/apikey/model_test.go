package apikey

import (
	"testing"
	"time"
)

func TestExpired(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"no expiry", nil, false},
		{"future expiry", &future, false},
		{"past expiry", &past, true},
		{"exactly now", &now, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := &APIKey{ExpiresAt: tc.expiresAt}
			if got := k.Expired(now); got != tc.want {
				t.Errorf("Expired = %v, want %v", got, tc.want)
			}
		})
	}
}
