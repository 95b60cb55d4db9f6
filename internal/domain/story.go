package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoryStatus tracks the lifecycle of a story aggregate.
type StoryStatus string

const (
	StatusDraft     StoryStatus = "draft"
	StatusUploading StoryStatus = "uploading"
	StatusComplete  StoryStatus = "complete"
	StatusArchived  StoryStatus = "archived"
)

// QuestionTiming controls when quiz questions are shown during playback.
type QuestionTiming string

const (
	TimingNone   QuestionTiming = "none"
	TimingDuring QuestionTiming = "during"
	TimingAfter  QuestionTiming = "after"
	TimingBoth   QuestionTiming = "both"
)

// QuestionType distinguishes scene-anchored questions from end-of-story ones.
type QuestionType string

const (
	QuestionDuring QuestionType = "during"
	QuestionAfter  QuestionType = "after"
)

// Story is the root of the story aggregate.
type Story struct {
	ID                  uuid.UUID      `json:"id"`
	OwnerID             uuid.UUID      `json:"owner_id"`
	Title               string         `json:"title"`
	Theme               string         `json:"theme"`
	TotalScenes         int            `json:"total_scenes"`
	ThumbnailURL        string         `json:"thumbnail_url"`
	ContextImageURL     string         `json:"context_image_url"`
	VoiceID             string         `json:"voice_id"`
	AvatarURL           string         `json:"avatar_url"`
	MusicName           string         `json:"music_name"`
	MusicFileKey        string         `json:"music_file_key"`
	MusicVolume         float64        `json:"music_volume"`
	GamificationEnabled bool           `json:"gamification_enabled"`
	QuestionTiming      QuestionTiming `json:"question_timing"`
	QuestionTypes       []string       `json:"question_types"`
	TotalQuestions      int            `json:"total_questions"`
	Status              StoryStatus    `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Scene is one illustrated page of a story, ordered by SceneNumber (1-based).
type Scene struct {
	ID                uuid.UUID `json:"id"`
	StoryID           uuid.UUID `json:"story_id"`
	SceneNumber       int       `json:"scene_number"`
	Narration         string    `json:"narration"`
	NarrationLines    []string  `json:"narration_lines"`
	Characters        []string  `json:"characters"`
	VisualDescription string    `json:"visual_description"`
	ImageURL          string    `json:"image_url"`
	ScenePrompt       string    `json:"scene_prompt"`
}

// SceneAudio is one synthesized narration line. A missing row for a given
// line number means that line's upload failed or is still pending.
type SceneAudio struct {
	ID         uuid.UUID     `json:"id"`
	SceneID    uuid.UUID     `json:"scene_id"`
	LineNumber int           `json:"line_number"`
	AudioKey   string        `json:"audio_key"`
	AudioURL   string        `json:"audio_url"`
	LineText   string        `json:"line_text"`
	FileSize   int64         `json:"file_size"`
	Duration   float64       `json:"duration"`
	VisemeData []VisemeFrame `json:"viseme_data,omitempty"`
}

// VisemeFrame is a per-character timing entry used for lip-sync playback.
type VisemeFrame struct {
	Symbol    string  `json:"symbol"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// CorrectAnswer pairs the winning choice letter with its text.
type CorrectAnswer struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is a quiz question owned by a story. SceneID is set for
// during-story questions and nil for after-story ones.
type Question struct {
	ID            uuid.UUID     `json:"id"`
	StoryID       uuid.UUID     `json:"story_id"`
	SceneID       *uuid.UUID    `json:"scene_id,omitempty"`
	Type          QuestionType  `json:"question_type"`
	Question      string        `json:"question"`
	Choices       []string      `json:"choices"`
	CorrectAnswer CorrectAnswer `json:"correct_answer"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ChildCounts reports how many child rows a story owns, used by deletion.
type ChildCounts struct {
	Scenes    int `json:"scenes"`
	Audio     int `json:"audio"`
	Questions int `json:"questions"`
}

// AudioBlobKey is the deterministic key the draft producer uses for the audio
// blob of a given scene and narration line (both 1-based).
func AudioBlobKey(sceneNumber, lineNumber int) string {
	return fmt.Sprintf("scene_%d_line_%d", sceneNumber, lineNumber)
}

// AudioStoragePrefix is the blob-store prefix under which all of a story's
// audio lives. Prefix-delete on it removes exactly that story's blobs.
func AudioStoragePrefix(storyID uuid.UUID) string {
	return fmt.Sprintf("stories/%s/", storyID)
}

// AudioStorageKey is the blob-store object key for one narration line.
func AudioStorageKey(storyID uuid.UUID, sceneNumber, lineNumber int) string {
	return fmt.Sprintf("%saudio/scene_%d_line_%d.mp3", AudioStoragePrefix(storyID), sceneNumber, lineNumber)
}

// StoryRepository is the persistence boundary for the story aggregate.
type StoryRepository interface {
	// CreateStoryAggregate inserts the story, its scenes and its questions in
	// a single transaction. Either everything is visible afterwards or
	// nothing is.
	CreateStoryAggregate(ctx context.Context, story *Story, scenes []*Scene, questions []*Question) error
	// GetStory returns the story only if it belongs to ownerID.
	GetStory(ctx context.Context, ownerID, storyID uuid.UUID) (*Story, error)
	ListStories(ctx context.Context, ownerID uuid.UUID) ([]*Story, error)
	GetScenes(ctx context.Context, storyID uuid.UUID) ([]*Scene, error)
	GetSceneAudio(ctx context.Context, sceneID uuid.UUID) ([]*SceneAudio, error)
	GetSceneQuestion(ctx context.Context, sceneID uuid.UUID) (*Question, error)
	GetAfterQuestions(ctx context.Context, storyID uuid.UUID) ([]*Question, error)
	// InsertSceneAudio records one uploaded line. Re-inserting the same
	// (scene, line_number) pair is a no-op.
	InsertSceneAudio(ctx context.Context, audio *SceneAudio) error
	UpdateStatus(ctx context.Context, storyID uuid.UUID, status StoryStatus) error
	CountChildren(ctx context.Context, storyID uuid.UUID) (ChildCounts, error)
	DeleteStory(ctx context.Context, storyID uuid.UUID) error
}
