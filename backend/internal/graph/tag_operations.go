package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

// ============================================================================
// Tag Operations
// ============================================================================

// SetTags upserts each tag and links it to owner (a User or a Question).
// Existing links are kept, so calling it twice with the same tag adds nothing.
func (t *Tx) SetTags(ctx context.Context, owner store.Ref, tags TagSet) error {
	if owner.Label != constants.LabelUser && owner.Label != constants.LabelQuestion {
		return apperrors.NewValidation("owner", fmt.Sprintf("%s nodes cannot be tagged", owner.Label))
	}
	for _, name := range tags.Sorted() {
		ref := TagRef(name)
		if _, err := t.tx.UpsertNode(ctx, ref, nil); err != nil {
			return fmt.Errorf("failed to upsert tag %s: %w", name, err)
		}
		linked, err := t.tx.MergeRelationship(ctx, ref, constants.RelTagged, owner)
		if err != nil {
			return fmt.Errorf("failed to tag %s: %w", owner, err)
		}
		if !linked {
			ok, err := t.tx.HasRelationship(ctx, ref, constants.RelTagged, owner)
			if err != nil {
				return fmt.Errorf("failed to verify tag link: %w", err)
			}
			if !ok {
				return apperrors.NewNotFound(owner.Label, owner.Value)
			}
		}
	}
	t.repo.logger.Debug("Tagged node",
		zap.String("owner", owner.String()),
		zap.String("tags", tags.String()),
	)
	return nil
}

// ClearTags removes every tag link of owner; returns how many were removed
func (t *Tx) ClearTags(ctx context.Context, owner store.Ref) (int, error) {
	n, err := t.tx.DeleteRelationships(ctx, owner, constants.RelTagged, store.Incoming, constants.LabelTag)
	if err != nil {
		return 0, fmt.Errorf("failed to clear tags: %w", err)
	}
	return n, nil
}

// InterestTags returns the tags a user is TAGGED with
func (t *Tx) InterestTags(ctx context.Context, username string) (TagSet, error) {
	nodes, err := t.tx.Related(ctx, UserRef(username), constants.RelTagged, store.Incoming, constants.LabelTag)
	if err != nil {
		return nil, fmt.Errorf("failed to load interests: %w", err)
	}
	return NewTagSet(namesFromNodes(nodes, propName)...), nil
}
