package source

import (
	"context"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// maxSeen bounds the targets Combined remembers for deduplication. Once full,
// new targets are still checked against the remembered ones but no longer
// recorded, so memory stays bounded on long-running streams.
const maxSeen = 1 << 20

// Combined runs multiple sources sequentially and deduplicates targets so
// each unique target is yielded at most once, up to maxSeen distinct targets.
type Combined struct {
	sources []Source
	limit   int
}

// NewCombined creates a Combined source over the provided sources. They are
// run in order and duplicate targets (same kind and value) are suppressed.
func NewCombined(sources ...Source) *Combined {
	return &Combined{sources: sources, limit: maxSeen}
}

// Enumerate runs each child source in sequence, passing unique targets to
// yield.
func (c *Combined) Enumerate(ctx context.Context, yield func(types.Target) error) error {
	seen := make(map[types.Target]struct{})

	for _, s := range c.sources {
		err := s.Enumerate(ctx, func(t types.Target) error {
			if _, ok := seen[t]; ok {
				return nil
			}
			if len(seen) < c.limit {
				seen[t] = struct{}{}
			}
			return yield(t)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
