package artifacts

import (
	"context"
	"strings"

	"github.com/dvloznov/finance-insights/internal/model"
)

// Scoped prefixes every key of an underlying store so several owners can
// share one directory or bucket.
type Scoped struct {
	base   model.Store
	prefix string
}

// ForUser returns a store whose keys are namespaced by userID. Characters
// outside [A-Za-z0-9-] are replaced so the prefix stays a single path element.
func ForUser(base model.Store, userID string) *Scoped {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, userID)
	return &Scoped{base: base, prefix: "user-" + clean + "_"}
}

// Put implements model.Store.
func (s *Scoped) Put(ctx context.Context, key string, data []byte) error {
	return s.base.Put(ctx, s.prefix+key, data)
}

// Get implements model.Store.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.base.Get(ctx, s.prefix+key)
}

// Location implements model.Store.
func (s *Scoped) Location(key string) string {
	return s.base.Location(s.prefix + key)
}

var _ model.Store = (*Scoped)(nil)
