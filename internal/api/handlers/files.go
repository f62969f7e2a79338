// files.go — обработчики реестра файлов.
// GET    /api/v1/files?q=&page= — страница файлов пользователя
// GET    /api/v1/files/{id}    — один файл
// DELETE /api/v1/files/{id}    — удаление файла
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
	"github.com/arturkryukov/kbconsole/internal/domain/model"
)

// fileListResponse — страница реестра файлов.
type fileListResponse struct {
	Files    []*model.FileRecord `json:"files"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// ListFiles возвращает страницу файлов текущего пользователя.
// q — подстрока поиска по имени или категории; page — с нуля.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	q := r.URL.Query().Get("q")
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.ValidationError(w, "Параметр page должен быть целым числом")
			return
		}
		page = parsed
	}

	files, total, err := h.files.List(r.Context(), session.UserID, q, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if files == nil {
		files = []*model.FileRecord{}
	}
	if page < 0 {
		page = 0
	}

	writeJSON(w, http.StatusOK, fileListResponse{
		Files:    files,
		Total:    total,
		Page:     page,
		PageSize: h.files.PageSize(),
	})
}

// GetFile возвращает один файл текущего пользователя.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	fileID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.ValidationError(w, "Идентификатор файла должен быть UUID")
		return
	}

	f, err := h.files.Get(r.Context(), session.UserID, fileID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// DeleteFile безвозвратно удаляет файл текущего пользователя.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	fileID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.ValidationError(w, "Идентификатор файла должен быть UUID")
		return
	}

	if err := h.files.Delete(r.Context(), session.UserID, fileID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
