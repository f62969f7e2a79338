// pipeline.go — callback конвейера обработки.
// POST /api/v1/pipeline/files/{id}/status — вердикт обработки файла.
// Защищён HS256-токеном конвейера, а не сессией браузера.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
)

// pipelineStatusRequest — тело callback-а конвейера.
type pipelineStatusRequest struct {
	Status string `json:"status"`
	// Error — описание причины при status=failed (пишется только в лог)
	Error string `json:"error,omitempty"`
}

// PipelineFileStatus выполняет переход статуса файла по вердикту конвейера.
// Допустимы только processed и failed, и только из processing:
// повторный callback по тому же файлу получает 404.
func (h *APIHandler) PipelineFileStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.ValidationError(w, "Идентификатор файла должен быть UUID")
		return
	}

	var req pipelineStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.files.UpdateStatus(r.Context(), fileID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}
