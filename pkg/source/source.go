// Package source produces the lazy sequence of targets a scan consumes.
package source

import (
	"context"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// Source discovers targets to scan.
type Source interface {
	// Enumerate calls yield once per target, in order, until the source is
	// exhausted, ctx is done, or yield returns an error. An error from yield
	// stops enumeration and is returned unchanged.
	Enumerate(ctx context.Context, yield func(types.Target) error) error
}

// Static yields a fixed list of targets.
type Static []types.Target

// Enumerate yields each target in order.
func (s Static) Enumerate(ctx context.Context, yield func(types.Target) error) error {
	for _, t := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(t); err != nil {
			return err
		}
	}
	return nil
}
