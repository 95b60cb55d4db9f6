package uploader

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/talecraft/backend/internal/domain"
	"github.com/talecraft/backend/internal/storage"
)

const audioContentType = "audio/mpeg"

// AudioUploader runs the detached phase of story assembly: uploading every
// narration line's audio blob and recording the resulting URLs. One failed
// line never aborts the rest, and the story always ends up in status
// complete once every line has been attempted.
type AudioUploader struct {
	repo        domain.StoryRepository
	store       storage.BlobStore
	logger      *zap.Logger
	concurrency int
	wg          sync.WaitGroup
}

// NewAudioUploader creates an uploader that processes up to concurrency line
// uploads in parallel per story.
func NewAudioUploader(repo domain.StoryRepository, store storage.BlobStore, concurrency int, logger *zap.Logger) *AudioUploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AudioUploader{
		repo:        repo,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Launch starts processing the task in the background and returns
// immediately. The HTTP handler that accepted the story never waits on it.
func (u *AudioUploader) Launch(task domain.UploadTask) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		// Detached from the request context on purpose: the caller's
		// connection is long gone by the time uploads run.
		u.ProcessStory(context.Background(), task)
	}()
}

// Wait blocks until every launched task has finished. Used on shutdown and
// by tests.
func (u *AudioUploader) Wait() {
	u.wg.Wait()
}

type lineJob struct {
	scene      *domain.Scene
	lineNumber int
	lineText   string
}

// ProcessStory uploads each narration line's blob through a small worker
// pool, then flips the story to complete regardless of per-line failures.
func (u *AudioUploader) ProcessStory(ctx context.Context, task domain.UploadTask) {
	log := u.logger.With(zap.String("story_id", task.StoryID.String()))

	jobs := make(chan lineJob)
	var workers sync.WaitGroup
	for i := 0; i < u.concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for job := range jobs {
				u.processLine(ctx, log, task, job)
			}
		}()
	}

	for _, scene := range task.Scenes {
		for i, text := range scene.NarrationLines {
			jobs <- lineJob{scene: scene, lineNumber: i + 1, lineText: text}
		}
	}
	close(jobs)
	workers.Wait()

	if err := u.repo.UpdateStatus(ctx, task.StoryID, domain.StatusComplete); err != nil {
		log.Error("failed to mark story complete", zap.Error(err))
		return
	}
	log.Info("story upload phase finished")
}

func (u *AudioUploader) processLine(ctx context.Context, log *zap.Logger, task domain.UploadTask, job lineJob) {
	blobKey := domain.AudioBlobKey(job.scene.SceneNumber, job.lineNumber)
	log = log.With(
		zap.Int("scene", job.scene.SceneNumber),
		zap.Int("line", job.lineNumber),
	)

	data, ok := task.Audio[blobKey]
	if !ok || len(data) == 0 {
		log.Warn("no audio blob for line, skipping")
		return
	}

	storageKey := domain.AudioStorageKey(task.StoryID, job.scene.SceneNumber, job.lineNumber)
	url, err := u.store.Put(ctx, storageKey, data, audioContentType)
	if err != nil {
		// Soft gap: the line's SceneAudio row is simply absent.
		log.Error("audio upload failed", zap.Error(err))
		return
	}

	audio := &domain.SceneAudio{
		SceneID:    job.scene.ID,
		LineNumber: job.lineNumber,
		AudioKey:   storageKey,
		AudioURL:   url,
		LineText:   job.lineText,
		FileSize:   int64(len(data)),
		Duration:   task.Durations[blobKey],
		VisemeData: task.Visemes[blobKey],
	}
	if err := u.repo.InsertSceneAudio(ctx, audio); err != nil {
		log.Error("failed to record audio row", zap.Error(err))
	}
}
