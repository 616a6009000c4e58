package ratelimit

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bookworm-labs/books-api/internal/config"
)

// Policy is one rate-limit rule: how many requests a key may make
// within a fixed window. The default policy carries a nil Pattern.
type Policy struct {
	Pattern *regexp.Regexp
	Limit   int
	Window  time.Duration
}

// PolicyStore holds the global enable flag, the default policy and the
// ordered endpoint overrides. It is immutable after construction.
type PolicyStore struct {
	enabled   bool
	def       Policy
	overrides []Policy
}

func NewPolicyStore(cfg config.RateLimitConfig) (*PolicyStore, error) {
	defWindow, err := cfg.Default.Window()
	if err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	store := &PolicyStore{
		enabled: cfg.Enabled,
		def: Policy{
			Limit:  cfg.Default.Limit,
			Window: defWindow,
		},
	}

	for i, ep := range cfg.Endpoints {
		// Full-path match semantics: the override applies only when the
		// pattern matches the entire request path.
		pattern, err := regexp.Compile(`\A(?:` + ep.Pattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d: invalid pattern %q: %w", i, ep.Pattern, err)
		}

		window, err := ep.Window()
		if err != nil {
			return nil, fmt.Errorf("endpoint %d (%s): %w", i, ep.Pattern, err)
		}

		store.overrides = append(store.overrides, Policy{
			Pattern: pattern,
			Limit:   ep.Limit,
			Window:  window,
		})
	}

	return store, nil
}

func (s *PolicyStore) Enabled() bool {
	return s.enabled
}

// Resolve returns the policy for a request path. Overrides are tested
// in declaration order and the first match wins; the default policy
// applies when none match.
func (s *PolicyStore) Resolve(path string) Policy {
	for _, p := range s.overrides {
		if p.Pattern.MatchString(path) {
			return p
		}
	}

	return s.def
}
