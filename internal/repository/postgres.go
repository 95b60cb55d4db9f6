package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talecraft/backend/internal/domain"
)

// PostgresRepository implements domain.StoryRepository using PostgreSQL.
// Structured sub-documents (narration lines, characters, choices, answers,
// viseme data) live in JSONB columns and are decoded leniently: a malformed
// document reads back as its zero value instead of failing the query.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const storyColumns = `id, owner_id, title, theme, total_scenes, thumbnail_url, context_image_url,
		voice_id, avatar_url, music_name, music_file_key, music_volume,
		gamification_enabled, question_timing, question_types, total_questions,
		status, created_at, updated_at`

// CreateStoryAggregate inserts the story with all scenes and questions in one
// transaction. On any failure the whole aggregate rolls back, so a partial
// story is never visible to readers.
func (r *PostgresRepository) CreateStoryAggregate(ctx context.Context, story *domain.Story, scenes []*domain.Scene, questions []*domain.Question) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	questionTypes, err := json.Marshal(story.QuestionTypes)
	if err != nil {
		return fmt.Errorf("marshal question_types: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stories (`+storyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		story.ID,
		story.OwnerID,
		story.Title,
		story.Theme,
		story.TotalScenes,
		story.ThumbnailURL,
		story.ContextImageURL,
		story.VoiceID,
		story.AvatarURL,
		story.MusicName,
		story.MusicFileKey,
		story.MusicVolume,
		story.GamificationEnabled,
		story.QuestionTiming,
		questionTypes,
		story.TotalQuestions,
		story.Status,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}

	for _, scene := range scenes {
		lines, err := json.Marshal(scene.NarrationLines)
		if err != nil {
			return fmt.Errorf("marshal narration_lines: %w", err)
		}
		characters, err := json.Marshal(scene.Characters)
		if err != nil {
			return fmt.Errorf("marshal characters: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO scenes (id, story_id, scene_number, narration, narration_lines, characters, visual_description, image_url, scene_prompt)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			scene.ID,
			scene.StoryID,
			scene.SceneNumber,
			scene.Narration,
			lines,
			characters,
			scene.VisualDescription,
			scene.ImageURL,
			scene.ScenePrompt,
		)
		if err != nil {
			return fmt.Errorf("insert scene %d: %w", scene.SceneNumber, err)
		}
	}

	for _, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices: %w", err)
		}
		answer, err := json.Marshal(q.CorrectAnswer)
		if err != nil {
			return fmt.Errorf("marshal correct_answer: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO gamification_questions (id, story_id, scene_id, question_type, question, choices, correct_answer, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			q.ID,
			q.StoryID,
			q.SceneID,
			q.Type,
			q.Question,
			choices,
			answer,
			q.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetStory fetches the story filtered by id and owner. Both "does not exist"
// and "not yours" collapse into domain.ErrStoryNotFound.
func (r *PostgresRepository) GetStory(ctx context.Context, ownerID, storyID uuid.UUID) (*domain.Story, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+storyColumns+`
		FROM stories WHERE id = $1 AND owner_id = $2
	`, storyID, ownerID)
	return scanStory(row)
}

// ListStories returns the owner's stories, newest first.
func (r *PostgresRepository) ListStories(ctx context.Context, ownerID uuid.UUID) ([]*domain.Story, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+storyColumns+`
		FROM stories WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := []*domain.Story{}
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

// GetScenes returns a story's scenes ordered by scene number ascending.
func (r *PostgresRepository) GetScenes(ctx context.Context, storyID uuid.UUID) ([]*domain.Scene, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, story_id, scene_number, narration, narration_lines, characters, visual_description, image_url, scene_prompt
		FROM scenes WHERE story_id = $1
		ORDER BY scene_number ASC
	`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenes := []*domain.Scene{}
	for rows.Next() {
		var scene domain.Scene
		var lines, characters []byte
		err := rows.Scan(
			&scene.ID,
			&scene.StoryID,
			&scene.SceneNumber,
			&scene.Narration,
			&lines,
			&characters,
			&scene.VisualDescription,
			&scene.ImageURL,
			&scene.ScenePrompt,
		)
		if err != nil {
			return nil, err
		}
		unmarshalLenient(lines, &scene.NarrationLines)
		unmarshalLenient(characters, &scene.Characters)
		scenes = append(scenes, &scene)
	}
	return scenes, rows.Err()
}

// GetSceneAudio returns a scene's audio rows ordered by line number
// ascending. Lines without a row are simply absent from the result.
func (r *PostgresRepository) GetSceneAudio(ctx context.Context, sceneID uuid.UUID) ([]*domain.SceneAudio, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, scene_id, line_number, audio_key, audio_url, line_text, file_size, duration, viseme_data
		FROM scene_audio WHERE scene_id = $1
		ORDER BY line_number ASC
	`, sceneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audio := []*domain.SceneAudio{}
	for rows.Next() {
		var a domain.SceneAudio
		var visemes []byte
		err := rows.Scan(
			&a.ID,
			&a.SceneID,
			&a.LineNumber,
			&a.AudioKey,
			&a.AudioURL,
			&a.LineText,
			&a.FileSize,
			&a.Duration,
			&visemes,
		)
		if err != nil {
			return nil, err
		}
		unmarshalLenient(visemes, &a.VisemeData)
		audio = append(audio, &a)
	}
	return audio, rows.Err()
}

// GetSceneQuestion returns the scene's during-story question, or nil when the
// scene has none. Multiple rows are tolerated by taking the first.
func (r *PostgresRepository) GetSceneQuestion(ctx context.Context, sceneID uuid.UUID) (*domain.Question, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, story_id, scene_id, question_type, question, choices, correct_answer, created_at
		FROM gamification_questions
		WHERE scene_id = $1 AND question_type = 'during'
		ORDER BY created_at ASC
		LIMIT 1
	`, sceneID)

	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return q, nil
}

// GetAfterQuestions returns the story-level questions in insertion order.
func (r *PostgresRepository) GetAfterQuestions(ctx context.Context, storyID uuid.UUID) ([]*domain.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, story_id, scene_id, question_type, question, choices, correct_answer, created_at
		FROM gamification_questions
		WHERE story_id = $1 AND scene_id IS NULL
		ORDER BY created_at ASC
	`, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []*domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// InsertSceneAudio records one uploaded narration line. The unique
// (scene_id, line_number) constraint makes re-runs of the upload phase
// idempotent: conflicts are absorbed, never duplicated.
func (r *PostgresRepository) InsertSceneAudio(ctx context.Context, audio *domain.SceneAudio) error {
	if audio.ID == uuid.Nil {
		audio.ID = uuid.New()
	}

	var visemes []byte
	if len(audio.VisemeData) > 0 {
		var err error
		visemes, err = json.Marshal(audio.VisemeData)
		if err != nil {
			return fmt.Errorf("marshal viseme_data: %w", err)
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO scene_audio (id, scene_id, line_number, audio_key, audio_url, line_text, file_size, duration, viseme_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (scene_id, line_number) DO NOTHING
	`,
		audio.ID,
		audio.SceneID,
		audio.LineNumber,
		audio.AudioKey,
		audio.AudioURL,
		audio.LineText,
		audio.FileSize,
		audio.Duration,
		visemes,
	)
	if err != nil {
		return fmt.Errorf("insert scene audio: %w", err)
	}
	return nil
}

// UpdateStatus transitions the story's lifecycle status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, storyID uuid.UUID, status domain.StoryStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE stories SET status = $2, updated_at = $3 WHERE id = $1
	`, storyID, status, time.Now())
	if err != nil {
		return fmt.Errorf("update story status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoryNotFound
	}
	return nil
}

// CountChildren counts a story's child rows for deletion reporting.
func (r *PostgresRepository) CountChildren(ctx context.Context, storyID uuid.UUID) (domain.ChildCounts, error) {
	var counts domain.ChildCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scenes WHERE story_id = $1),
			(SELECT COUNT(*) FROM scene_audio sa JOIN scenes s ON sa.scene_id = s.id WHERE s.story_id = $1),
			(SELECT COUNT(*) FROM gamification_questions WHERE story_id = $1)
	`, storyID).Scan(&counts.Scenes, &counts.Audio, &counts.Questions)
	if err != nil {
		return domain.ChildCounts{}, fmt.Errorf("count story children: %w", err)
	}
	return counts, nil
}

// DeleteStory removes the story row; scenes, audio and questions go with it
// through the cascading foreign keys.
func (r *PostgresRepository) DeleteStory(ctx context.Context, storyID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, storyID)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoryNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*domain.Story, error) {
	var story domain.Story
	var questionTypes []byte
	err := row.Scan(
		&story.ID,
		&story.OwnerID,
		&story.Title,
		&story.Theme,
		&story.TotalScenes,
		&story.ThumbnailURL,
		&story.ContextImageURL,
		&story.VoiceID,
		&story.AvatarURL,
		&story.MusicName,
		&story.MusicFileKey,
		&story.MusicVolume,
		&story.GamificationEnabled,
		&story.QuestionTiming,
		&questionTypes,
		&story.TotalQuestions,
		&story.Status,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoryNotFound
		}
		return nil, err
	}
	unmarshalLenient(questionTypes, &story.QuestionTypes)
	return &story, nil
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var q domain.Question
	var choices, answer []byte
	err := row.Scan(
		&q.ID,
		&q.StoryID,
		&q.SceneID,
		&q.Type,
		&q.Question,
		&choices,
		&answer,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	unmarshalLenient(choices, &q.Choices)
	unmarshalLenient(answer, &q.CorrectAnswer)
	return &q, nil
}

// unmarshalLenient decodes a JSONB sub-document, leaving the target at its
// zero value when the column is NULL or the stored JSON is malformed. A
// broken sub-document must never fail the whole read.
func unmarshalLenient(data []byte, v any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}
