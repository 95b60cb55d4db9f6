package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talecraft/backend/internal/storage"
)

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	Deleted      bool        `json:"deleted"`
	BlobsRemoved int         `json:"blobs_removed"`
	Counts       ChildCounts `json:"counts"`
}

// DeletionService removes a story, its child rows and its blobs.
type DeletionService struct {
	repo   StoryRepository
	store  storage.BlobStore
	logger *zap.Logger
}

func NewDeletionService(repo StoryRepository, store storage.BlobStore, logger *zap.Logger) *DeletionService {
	return &DeletionService{repo: repo, store: store, logger: logger}
}

// DeleteStory verifies ownership, clears the story's blob prefix, then lets
// the cascade delete take the relational rows. A blob-store failure is logged
// and does not block the relational delete.
func (s *DeletionService) DeleteStory(ctx context.Context, ownerID, storyID uuid.UUID) (*DeleteResult, error) {
	if _, err := s.repo.GetStory(ctx, ownerID, storyID); err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteByPrefix(ctx, AudioStoragePrefix(storyID))
	if err != nil {
		s.logger.Error("blob prefix delete failed",
			zap.String("story_id", storyID.String()),
			zap.Error(err),
		)
	}

	counts, err := s.repo.CountChildren(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("count story children: %w", err)
	}

	if err := s.repo.DeleteStory(ctx, storyID); err != nil {
		return nil, fmt.Errorf("delete story: %w", err)
	}

	s.logger.Info("story deleted",
		zap.String("story_id", storyID.String()),
		zap.Int("scenes", counts.Scenes),
		zap.Int("audio", counts.Audio),
		zap.Int("questions", counts.Questions),
		zap.Int("blobs_removed", removed),
	)

	return &DeleteResult{Deleted: true, BlobsRemoved: removed, Counts: counts}, nil
}
