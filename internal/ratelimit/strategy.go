package ratelimit

import (
	"log"
	"net"
)

// Strategy selects which request attribute identifies a client for
// rate limiting.
type Strategy int

const (
	StrategyIPAddress Strategy = iota
	StrategyUser
	StrategyToken
)

// ParseStrategy maps a config value to a Strategy. Unrecognized values
// fall back to IP-based limiting rather than disabling limits.
func ParseStrategy(value string) Strategy {
	switch value {
	case "IP_ADDRESS":
		return StrategyIPAddress
	case "USER":
		return StrategyUser
	case "TOKEN":
		return StrategyToken
	default:
		log.Printf("Unknown rate limit strategy %q, falling back to IP_ADDRESS", value)
		return StrategyIPAddress
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyUser:
		return "USER"
	case StrategyToken:
		return "TOKEN"
	default:
		return "IP_ADDRESS"
	}
}

// KeyInput carries the request attributes a strategy may derive a
// counter key from.
type KeyInput struct {
	RemoteAddr string // host:port as seen on the connection
	Subject    string // authenticated user id, empty when anonymous
	AuthHeader string // raw Authorization header value
	Path       string
}

// Key builds the counter key for a request. Keys are prefixed with the
// strategy tag so counters are never shared between strategies.
func (s Strategy) Key(in KeyInput) string {
	switch s {
	case StrategyUser:
		// Admission runs ahead of token validation, so in the wired
		// pipeline Subject is always empty and all traffic shares the
		// placeholder bucket. The subject branch only activates if
		// identity extraction ever moves ahead of admission.
		subject := in.Subject
		if subject == "" {
			subject = "user"
		}
		return "user:" + subject + ":" + in.Path
	case StrategyToken:
		token := in.AuthHeader
		if token == "" {
			token = "anonymous"
		}
		return "token:" + token + ":" + in.Path
	default:
		return "ip:" + remoteIP(in.RemoteAddr) + ":" + in.Path
	}
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
