package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadTask carries everything the async phase needs after the synchronous
// transaction has committed.
type UploadTask struct {
	StoryID   uuid.UUID
	Scenes    []*Scene
	Audio     map[string][]byte
	Visemes   map[string][]VisemeFrame
	Durations map[string]float64
}

// UploadLauncher starts the detached audio upload phase for an accepted
// story. Launch must return without waiting for the uploads.
type UploadLauncher interface {
	Launch(task UploadTask)
}

// AssembleResult is the immediate acknowledgement returned to the caller
// before any audio has been uploaded.
type AssembleResult struct {
	StoryID  uuid.UUID `json:"story_id"`
	Accepted bool      `json:"accepted"`
}

// AssemblyService turns a draft story into a persisted aggregate and hands
// the audio blobs off to the detached upload phase.
type AssemblyService struct {
	repo     StoryRepository
	uploader UploadLauncher
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAssemblyService(repo StoryRepository, uploader UploadLauncher, logger *zap.Logger) *AssemblyService {
	return &AssemblyService{
		repo:     repo,
		uploader: uploader,
		validate: validator.New(),
		logger:   logger,
	}
}

// Assemble validates the draft, persists story, scenes and questions in one
// transaction, launches the detached audio upload phase and returns
// acceptance. Nothing of the story is visible if the transaction fails.
func (s *AssemblyService) Assemble(ctx context.Context, ownerID uuid.UUID, draft *DraftStory, audio map[string][]byte, visemes map[string][]VisemeFrame, durations map[string]float64) (*AssembleResult, error) {
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	now := time.Now()
	story := &Story{
		ID:                  uuid.New(),
		OwnerID:             ownerID,
		Title:               draft.Title,
		Theme:               draft.Theme,
		TotalScenes:         draft.TotalScenes,
		ThumbnailURL:        draft.ThumbnailURL,
		ContextImageURL:     draft.ContextImageURL,
		VoiceID:             draft.VoiceID,
		AvatarURL:           draft.AvatarURL,
		MusicName:           draft.MusicName,
		MusicFileKey:        draft.MusicFileKey,
		MusicVolume:         draft.MusicVolume,
		GamificationEnabled: draft.GamificationEnabled,
		QuestionTiming:      draft.QuestionTiming,
		QuestionTypes:       draft.QuestionTypes,
		TotalQuestions:      draft.TotalQuestions,
		Status:              StatusUploading,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if story.TotalScenes == 0 {
		story.TotalScenes = len(draft.Scenes)
	}
	if story.QuestionTiming == "" {
		story.QuestionTiming = TimingNone
	}

	scenes := make([]*Scene, 0, len(draft.Scenes))
	questions := make([]*Question, 0)
	for _, ds := range draft.Scenes {
		scene := &Scene{
			ID:                uuid.New(),
			StoryID:           story.ID,
			SceneNumber:       ds.SceneNumber,
			Narration:         ds.Narration,
			NarrationLines:    ds.NarrationLines,
			Characters:        ds.Characters,
			VisualDescription: ds.VisualDescription,
			ImageURL:          ds.ImageURL,
			ScenePrompt:       ds.ScenePrompt,
		}
		scenes = append(scenes, scene)

		if ds.Question != nil {
			sceneID := scene.ID
			questions = append(questions, &Question{
				ID:            uuid.New(),
				StoryID:       story.ID,
				SceneID:       &sceneID,
				Type:          QuestionDuring,
				Question:      ds.Question.Question,
				Choices:       ds.Question.Choices,
				CorrectAnswer: ds.Question.CorrectAnswer,
				CreatedAt:     now,
			})
		}
	}
	for _, dq := range draft.AfterQuestions {
		questions = append(questions, &Question{
			ID:            uuid.New(),
			StoryID:       story.ID,
			Type:          QuestionAfter,
			Question:      dq.Question,
			Choices:       dq.Choices,
			CorrectAnswer: dq.CorrectAnswer,
			CreatedAt:     now,
		})
	}

	if err := s.repo.CreateStoryAggregate(ctx, story, scenes, questions); err != nil {
		return nil, fmt.Errorf("persist story aggregate: %w", err)
	}

	s.logger.Info("story accepted",
		zap.String("story_id", story.ID.String()),
		zap.Int("scenes", len(scenes)),
		zap.Int("questions", len(questions)),
		zap.Int("audio_blobs", len(audio)),
	)

	// The caller is acknowledged now; uploads continue with nobody waiting.
	s.uploader.Launch(UploadTask{
		StoryID:   story.ID,
		Scenes:    scenes,
		Audio:     audio,
		Visemes:   visemes,
		Durations: durations,
	})

	return &AssembleResult{StoryID: story.ID, Accepted: true}, nil
}

// Archive marks a finished story as archived. Ownership is checked the same
// way retrieval does it.
func (s *AssemblyService) Archive(ctx context.Context, ownerID, storyID uuid.UUID) error {
	if _, err := s.repo.GetStory(ctx, ownerID, storyID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, storyID, StatusArchived)
}

func (s *AssemblyService) validateDraft(draft *DraftStory) error {
	if draft == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidDraft)
	}
	// Background music is mandatory by product rule.
	if draft.MusicFileKey == "" {
		return fmt.Errorf("%w: background music file is required", ErrInvalidDraft)
	}
	if err := s.validate.Struct(draft); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, err.Error())
	}
	// Scene numbers must be exactly 1..N: n distinct values all within range
	// leave no room for gaps.
	n := len(draft.Scenes)
	seen := make(map[int]bool, n)
	for _, ds := range draft.Scenes {
		if ds.SceneNumber < 1 || ds.SceneNumber > n {
			return fmt.Errorf("%w: scene number %d outside 1..%d", ErrInvalidDraft, ds.SceneNumber, n)
		}
		if seen[ds.SceneNumber] {
			return fmt.Errorf("%w: duplicate scene number %d", ErrInvalidDraft, ds.SceneNumber)
		}
		seen[ds.SceneNumber] = true
	}
	return nil
}
