package domain_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/talecraft/backend/internal/domain"
)

// fakeRepo is an in-memory domain.StoryRepository mirroring the contract of
// the Postgres implementation: owner-scoped lookups, ordered reads, unique
// (scene, line) audio rows and cascading delete.
type fakeRepo struct {
	mu        sync.Mutex
	stories   map[uuid.UUID]*domain.Story
	scenes    []*domain.Scene
	audio     []*domain.SceneAudio
	questions []*domain.Question

	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stories: make(map[uuid.UUID]*domain.Story)}
}

func (r *fakeRepo) CreateStoryAggregate(ctx context.Context, story *domain.Story, scenes []*domain.Scene, questions []*domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	seen := map[int]bool{}
	for _, s := range scenes {
		if seen[s.SceneNumber] {
			return fmt.Errorf("unique violation on scene_number %d", s.SceneNumber)
		}
		seen[s.SceneNumber] = true
	}
	cp := *story
	r.stories[story.ID] = &cp
	r.scenes = append(r.scenes, scenes...)
	r.questions = append(r.questions, questions...)
	return nil
}

func (r *fakeRepo) GetStory(ctx context.Context, ownerID, storyID uuid.UUID) (*domain.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.stories[storyID]
	if !ok || story.OwnerID != ownerID {
		return nil, domain.ErrStoryNotFound
	}
	cp := *story
	return &cp, nil
}

func (r *fakeRepo) ListStories(ctx context.Context, ownerID uuid.UUID) ([]*domain.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Story{}
	for _, s := range r.stories {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) GetScenes(ctx context.Context, storyID uuid.UUID) ([]*domain.Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Scene{}
	for _, s := range r.scenes {
		if s.StoryID == storyID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

func (r *fakeRepo) GetSceneAudio(ctx context.Context, sceneID uuid.UUID) ([]*domain.SceneAudio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.SceneAudio{}
	for _, a := range r.audio {
		if a.SceneID == sceneID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, nil
}

func (r *fakeRepo) GetSceneQuestion(ctx context.Context, sceneID uuid.UUID) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.questions {
		if q.Type == domain.QuestionDuring && q.SceneID != nil && *q.SceneID == sceneID {
			return q, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetAfterQuestions(ctx context.Context, storyID uuid.UUID) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Question{}
	for _, q := range r.questions {
		if q.StoryID == storyID && q.SceneID == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertSceneAudio(ctx context.Context, audio *domain.SceneAudio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.audio {
		if existing.SceneID == audio.SceneID && existing.LineNumber == audio.LineNumber {
			return nil
		}
	}
	if audio.ID == uuid.Nil {
		audio.ID = uuid.New()
	}
	cp := *audio
	r.audio = append(r.audio, &cp)
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, storyID uuid.UUID, status domain.StoryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.stories[storyID]
	if !ok {
		return domain.ErrStoryNotFound
	}
	story.Status = status
	return nil
}

func (r *fakeRepo) CountChildren(ctx context.Context, storyID uuid.UUID) (domain.ChildCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts domain.ChildCounts
	sceneIDs := map[uuid.UUID]bool{}
	for _, s := range r.scenes {
		if s.StoryID == storyID {
			counts.Scenes++
			sceneIDs[s.ID] = true
		}
	}
	for _, a := range r.audio {
		if sceneIDs[a.SceneID] {
			counts.Audio++
		}
	}
	for _, q := range r.questions {
		if q.StoryID == storyID {
			counts.Questions++
		}
	}
	return counts, nil
}

func (r *fakeRepo) DeleteStory(ctx context.Context, storyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stories[storyID]; !ok {
		return domain.ErrStoryNotFound
	}
	delete(r.stories, storyID)

	sceneIDs := map[uuid.UUID]bool{}
	scenes := r.scenes[:0]
	for _, s := range r.scenes {
		if s.StoryID == storyID {
			sceneIDs[s.ID] = true
			continue
		}
		scenes = append(scenes, s)
	}
	r.scenes = scenes

	audio := r.audio[:0]
	for _, a := range r.audio {
		if !sceneIDs[a.SceneID] {
			audio = append(audio, a)
		}
	}
	r.audio = audio

	questions := r.questions[:0]
	for _, q := range r.questions {
		if q.StoryID != storyID {
			questions = append(questions, q)
		}
	}
	r.questions = questions
	return nil
}

// fakeStore is an in-memory storage.BlobStore. Setting failSuffix makes Put
// fail for any key ending with it, simulating a per-file upload failure.
type fakeStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	failSuffix string
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSuffix != "" && strings.HasSuffix(key, s.failSuffix) {
		return "", fmt.Errorf("simulated upload failure for %s", key)
	}
	s.blobs[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *fakeStore) DeleteByKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(s.blobs, key)
			deleted++
		}
	}
	return deleted, nil
}

// noopLauncher accepts upload tasks without running them, for tests that
// only exercise the synchronous phase.
type noopLauncher struct {
	tasks []domain.UploadTask
}

func (l *noopLauncher) Launch(task domain.UploadTask) {
	l.tasks = append(l.tasks, task)
}
