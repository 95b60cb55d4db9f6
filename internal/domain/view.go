package domain

import (
	"time"

	"github.com/google/uuid"
)

// StoryView is the fully assembled read model returned for playback. Field
// names follow the playback client contract, hence camelCase.
type StoryView struct {
	ID                  uuid.UUID      `json:"id"`
	Title               string         `json:"title"`
	Theme               string         `json:"theme"`
	TotalScenes         int            `json:"totalScenes"`
	ThumbnailURL        string         `json:"thumbnailUrl"`
	ContextImageURL     string         `json:"contextImageUrl"`
	VoiceID             string         `json:"voiceId"`
	AvatarURL           string         `json:"avatarUrl"`
	MusicName           string         `json:"musicName"`
	MusicFileKey        string         `json:"musicFileKey"`
	MusicVolume         float64        `json:"musicVolume"`
	GamificationEnabled bool           `json:"gamificationEnabled"`
	QuestionTiming      QuestionTiming `json:"questionTiming"`
	Status              StoryStatus    `json:"status"`
	CreatedAt           time.Time      `json:"createdAt"`
	Scenes              []SceneView    `json:"scenes"`
	AfterStoryQuestions []QuestionView `json:"afterStoryQuestions"`
}

// SceneView is one playable scene. AudioURLs and VisemeData are aligned with
// NarrationLines; an entry is null when that line's audio never made it.
type SceneView struct {
	SceneNumber    int               `json:"sceneNumber"`
	Narration      string            `json:"narration"`
	NarrationLines []string          `json:"narrationLines"`
	Characters     []string          `json:"characters"`
	ImageURL       string            `json:"imageUrl"`
	AudioURLs      []*string         `json:"audioUrls"`
	VisemeData     [][]VisemeFrame   `json:"visemeDataArray"`
	Gamification   SceneQuestionView `json:"gamification"`
}

// SceneQuestionView is the optional during-story question of a scene.
type SceneQuestionView struct {
	HasQuestion   bool           `json:"hasQuestion"`
	Question      string         `json:"question,omitempty"`
	Choices       []string       `json:"choices,omitempty"`
	CorrectAnswer *CorrectAnswer `json:"correctAnswer,omitempty"`
}

// QuestionView is an after-story question in the playback payload.
type QuestionView struct {
	Question      string        `json:"question"`
	Choices       []string      `json:"choices"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer"`
}
