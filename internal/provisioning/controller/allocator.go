package controller

import (
	"context"
	"fmt"
)

// SequenceStore reports the highest sequences persisted so far, soft-deleted
// companies included.
type SequenceStore interface {
	MaxModuleSequence(ctx context.Context, code string) (int, error)
	MaxTenantSequence(ctx context.Context) (int, error)
}

// NextModuleSequence proposes the next sequence under a module code. The
// proposal is only a candidate; the unique business id index settles races
// at commit.
func NextModuleSequence(ctx context.Context, store SequenceStore, code string) (int, error) {
	highest, err := store.MaxModuleSequence(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("allocate module sequence for %s: %w", code, err)
	}
	return highest + 1, nil
}

// NextTenantSequence proposes the next global tenant sequence.
func NextTenantSequence(ctx context.Context, store SequenceStore) (int, error) {
	highest, err := store.MaxTenantSequence(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate tenant sequence: %w", err)
	}
	return highest + 1, nil
}
