package domain

// DraftStory is the in-memory output of upstream AI generation, not yet
// persisted. It arrives together with a map of audio blobs and a parallel map
// of viseme data, both keyed by AudioBlobKey.
type DraftStory struct {
	Title               string         `json:"title" validate:"required"`
	Theme               string         `json:"theme"`
	TotalScenes         int            `json:"total_scenes"`
	ThumbnailURL        string         `json:"thumbnail_url"`
	ContextImageURL     string         `json:"context_image_url"`
	VoiceID             string         `json:"voice_id"`
	AvatarURL           string         `json:"avatar_url"`
	MusicName           string         `json:"music_name"`
	MusicFileKey        string         `json:"music_file_key"`
	MusicVolume         float64        `json:"music_volume" validate:"gte=0,lte=1"`
	GamificationEnabled bool           `json:"gamification_enabled"`
	QuestionTiming      QuestionTiming `json:"question_timing" validate:"omitempty,oneof=none during after both"`
	QuestionTypes       []string       `json:"question_types"`
	TotalQuestions      int            `json:"total_questions"`
	Scenes              []DraftScene   `json:"scenes" validate:"min=1,dive"`
	AfterQuestions      []DraftQuestion `json:"after_questions" validate:"dive"`
}

// DraftScene is one generated scene. Question, when present, is a
// during-story question anchored to this scene.
type DraftScene struct {
	SceneNumber       int            `json:"scene_number" validate:"gte=1"`
	Narration         string         `json:"narration"`
	NarrationLines    []string       `json:"narration_lines" validate:"min=1"`
	Characters        []string       `json:"characters"`
	VisualDescription string         `json:"visual_description"`
	ImageURL          string         `json:"image_url"`
	ScenePrompt       string         `json:"scene_prompt"`
	Question          *DraftQuestion `json:"question,omitempty"`
}

// DraftQuestion is a quiz question as produced by generation.
type DraftQuestion struct {
	Question      string        `json:"question" validate:"required"`
	Choices       []string      `json:"choices" validate:"min=2"`
	CorrectAnswer CorrectAnswer `json:"correct_answer"`
}
