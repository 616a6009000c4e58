package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookworm-labs/books-api/internal/ratelimit"
)

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  ratelimit.Strategy
	}{
		{"IP_ADDRESS", ratelimit.StrategyIPAddress},
		{"USER", ratelimit.StrategyUser},
		{"TOKEN", ratelimit.StrategyToken},
		{"", ratelimit.StrategyIPAddress},
		{"SOMETHING_ELSE", ratelimit.StrategyIPAddress},
		{"ip_address", ratelimit.StrategyIPAddress},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ratelimit.ParseStrategy(tt.value), "value %q", tt.value)
	}
}

func TestStrategyKeyIPAddress(t *testing.T) {
	t.Parallel()

	key := ratelimit.StrategyIPAddress.Key(ratelimit.KeyInput{
		RemoteAddr: "192.0.2.1:54321",
		Path:       "/api/authors",
	})

	assert.Equal(t, "ip:192.0.2.1:/api/authors", key)
}

func TestStrategyKeyUser(t *testing.T) {
	t.Parallel()

	anonymous := ratelimit.StrategyUser.Key(ratelimit.KeyInput{
		RemoteAddr: "192.0.2.1:54321",
		Path:       "/api/authors",
	})
	assert.Equal(t, "user:user:/api/authors", anonymous)

	authenticated := ratelimit.StrategyUser.Key(ratelimit.KeyInput{
		Subject: "42",
		Path:    "/api/authors",
	})
	assert.Equal(t, "user:42:/api/authors", authenticated)
}

func TestStrategyKeyToken(t *testing.T) {
	t.Parallel()

	withToken := ratelimit.StrategyToken.Key(ratelimit.KeyInput{
		AuthHeader: "Bearer abc123",
		Path:       "/api/books",
	})
	assert.Equal(t, "token:Bearer abc123:/api/books", withToken)

	withoutToken := ratelimit.StrategyToken.Key(ratelimit.KeyInput{
		Path: "/api/books",
	})
	assert.Equal(t, "token:anonymous:/api/books", withoutToken)
}

func TestStrategyKeysNeverCollideAcrossStrategies(t *testing.T) {
	t.Parallel()

	in := ratelimit.KeyInput{
		RemoteAddr: "user",
		Subject:    "user",
		AuthHeader: "user",
		Path:       "/p",
	}

	keys := map[string]bool{
		ratelimit.StrategyIPAddress.Key(in): true,
		ratelimit.StrategyUser.Key(in):      true,
		ratelimit.StrategyToken.Key(in):     true,
	}

	assert.Len(t, keys, 3)
}
