package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talecraft/backend/internal/domain"
	"github.com/talecraft/backend/internal/middleware"
	"github.com/talecraft/backend/pkg/response"
)

// StoryHandler exposes the story assembly, retrieval and deletion services
// over HTTP.
type StoryHandler struct {
	assembly  *domain.AssemblyService
	retrieval *domain.RetrievalService
	deletion  *domain.DeletionService
	logger    *zap.Logger
}

func NewStoryHandler(assembly *domain.AssemblyService, retrieval *domain.RetrievalService, deletion *domain.DeletionService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		assembly:  assembly,
		retrieval: retrieval,
		deletion:  deletion,
		logger:    logger,
	}
}

// assembleRequest is the draft payload from the generation frontend. Audio
// blobs arrive base64-encoded, keyed scene_{N}_line_{M}; viseme and duration
// data are keyed the same way.
type assembleRequest struct {
	Story        domain.DraftStory               `json:"story"`
	AudioData    map[string]string               `json:"audio_data"`
	VisemeData   map[string][]domain.VisemeFrame `json:"viseme_data"`
	DurationData map[string]float64              `json:"duration_data"`
}

// CreateStory accepts a draft story, persists it and acknowledges before the
// audio uploads run.
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req assembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	audio := make(map[string][]byte, len(req.AudioData))
	for key, encoded := range req.AudioData {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			// A broken blob becomes a soft gap, same as a failed upload.
			h.logger.Warn("undecodable audio blob", zap.String("key", key), zap.Error(err))
			continue
		}
		audio[key] = data
	}

	result, err := h.assembly.Assemble(r.Context(), ownerID, &req.Story, audio, req.VisemeData, req.DurationData)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDraft) {
			response.ValidationFailed(w, err.Error())
			return
		}
		h.logger.Error("story assembly failed", zap.Error(err))
		response.InternalError(w, "failed to save story")
		return
	}

	response.Created(w, result)
}

// GetStory returns the full playable view of one story.
func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	ownerID, storyID, ok := h.ownerAndStoryID(w, r)
	if !ok {
		return
	}

	view, err := h.retrieval.GetStoryDetail(r.Context(), ownerID, storyID)
	if err != nil {
		if errors.Is(err, domain.ErrStoryNotFound) {
			response.NotFound(w, "story not found")
			return
		}
		h.logger.Error("story retrieval failed", zap.Error(err))
		response.InternalError(w, "failed to load story")
		return
	}

	response.OK(w, view)
}

// ListStories returns the owner's story shelf, newest first.
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	stories, err := h.retrieval.ListStories(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("story listing failed", zap.Error(err))
		response.InternalError(w, "failed to list stories")
		return
	}

	response.OK(w, stories)
}

// DeleteStory removes a story, its child rows and its blobs.
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	ownerID, storyID, ok := h.ownerAndStoryID(w, r)
	if !ok {
		return
	}

	result, err := h.deletion.DeleteStory(r.Context(), ownerID, storyID)
	if err != nil {
		if errors.Is(err, domain.ErrStoryNotFound) {
			response.NotFound(w, "story not found")
			return
		}
		h.logger.Error("story deletion failed", zap.Error(err))
		response.InternalError(w, "failed to delete story")
		return
	}

	response.OK(w, result)
}

// ArchiveStory marks a story as archived.
func (h *StoryHandler) ArchiveStory(w http.ResponseWriter, r *http.Request) {
	ownerID, storyID, ok := h.ownerAndStoryID(w, r)
	if !ok {
		return
	}

	if err := h.assembly.Archive(r.Context(), ownerID, storyID); err != nil {
		if errors.Is(err, domain.ErrStoryNotFound) {
			response.NotFound(w, "story not found")
			return
		}
		h.logger.Error("story archive failed", zap.Error(err))
		response.InternalError(w, "failed to archive story")
		return
	}

	response.OK(w, map[string]bool{"archived": true})
}

func (h *StoryHandler) ownerAndStoryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return uuid.Nil, uuid.Nil, false
	}

	storyID, err := uuid.Parse(chi.URLParam(r, "storyID"))
	if err != nil {
		response.BadRequest(w, "invalid story id")
		return uuid.Nil, uuid.Nil, false
	}

	return ownerID, storyID, true
}
