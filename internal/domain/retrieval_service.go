package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetrievalService reconstructs a playable StoryView from normalized storage.
type RetrievalService struct {
	repo   StoryRepository
	logger *zap.Logger
}

func NewRetrievalService(repo StoryRepository, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{repo: repo, logger: logger}
}

// GetStoryDetail assembles the nested playback view. Scenes come back ordered
// by scene number and audio by line number; lines whose upload never landed
// show up as null entries, never as errors.
func (s *RetrievalService) GetStoryDetail(ctx context.Context, ownerID, storyID uuid.UUID) (*StoryView, error) {
	story, err := s.repo.GetStory(ctx, ownerID, storyID)
	if err != nil {
		return nil, err
	}

	scenes, err := s.repo.GetScenes(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}

	view := &StoryView{
		ID:                  story.ID,
		Title:               story.Title,
		Theme:               story.Theme,
		TotalScenes:         story.TotalScenes,
		ThumbnailURL:        story.ThumbnailURL,
		ContextImageURL:     story.ContextImageURL,
		VoiceID:             story.VoiceID,
		AvatarURL:           story.AvatarURL,
		MusicName:           story.MusicName,
		MusicFileKey:        story.MusicFileKey,
		MusicVolume:         story.MusicVolume,
		GamificationEnabled: story.GamificationEnabled,
		QuestionTiming:      story.QuestionTiming,
		Status:              story.Status,
		CreatedAt:           story.CreatedAt,
		Scenes:              make([]SceneView, 0, len(scenes)),
		AfterStoryQuestions: []QuestionView{},
	}

	for _, scene := range scenes {
		sv, err := s.buildSceneView(ctx, scene)
		if err != nil {
			return nil, err
		}
		view.Scenes = append(view.Scenes, sv)
	}

	after, err := s.repo.GetAfterQuestions(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("load after-story questions: %w", err)
	}
	for _, q := range after {
		view.AfterStoryQuestions = append(view.AfterStoryQuestions, QuestionView{
			Question:      q.Question,
			Choices:       q.Choices,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	return view, nil
}

// ListStories returns the owner's stories, newest first, metadata only.
func (s *RetrievalService) ListStories(ctx context.Context, ownerID uuid.UUID) ([]*Story, error) {
	return s.repo.ListStories(ctx, ownerID)
}

func (s *RetrievalService) buildSceneView(ctx context.Context, scene *Scene) (SceneView, error) {
	sv := SceneView{
		SceneNumber:    scene.SceneNumber,
		Narration:      scene.Narration,
		NarrationLines: scene.NarrationLines,
		Characters:     scene.Characters,
		ImageURL:       scene.ImageURL,
		AudioURLs:      make([]*string, len(scene.NarrationLines)),
		VisemeData:     make([][]VisemeFrame, len(scene.NarrationLines)),
	}

	audio, err := s.repo.GetSceneAudio(ctx, scene.ID)
	if err != nil {
		return SceneView{}, fmt.Errorf("load audio for scene %d: %w", scene.SceneNumber, err)
	}
	for _, a := range audio {
		idx := a.LineNumber - 1
		if idx < 0 || idx >= len(sv.AudioURLs) {
			s.logger.Warn("audio row outside narration range",
				zap.String("scene_id", scene.ID.String()),
				zap.Int("line_number", a.LineNumber),
			)
			continue
		}
		url := a.AudioURL
		sv.AudioURLs[idx] = &url
		sv.VisemeData[idx] = a.VisemeData
	}

	question, err := s.repo.GetSceneQuestion(ctx, scene.ID)
	if err != nil {
		return SceneView{}, fmt.Errorf("load question for scene %d: %w", scene.SceneNumber, err)
	}
	if question != nil {
		answer := question.CorrectAnswer
		sv.Gamification = SceneQuestionView{
			HasQuestion:   true,
			Question:      question.Question,
			Choices:       question.Choices,
			CorrectAnswer: &answer,
		}
	}

	return sv, nil
}
