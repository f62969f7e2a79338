// uploads.go — обработчики приёма файлов в базу знаний.
// POST /api/v1/uploads/document        — документ (multipart)
// POST /api/v1/uploads/audio           — аудиозапись (multipart)
// POST /api/v1/uploads/transcript      — транскрипт (JSON)
// POST /api/v1/uploads/company-profile — профиль компании (JSON)
// POST /api/v1/uploads/refresh         — обновление базы знаний
package handlers

import (
	"errors"
	"io"
	"net/http"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
	"github.com/arturkryukov/kbconsole/internal/service"
)

// Предел размера multipart-загрузки (64 MB).
const maxUploadBytes = 64 << 20

// transcriptRequest — тело запроса сохранения транскрипта.
type transcriptRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url"`
}

// companyProfileRequest — тело запроса профиля компании.
type companyProfileRequest struct {
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	Size        string `json:"size"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// readMultipartFile извлекает файл из multipart-формы.
// Возвращает имя, MIME-тип и содержимое; при ошибке пишет 400 и nil.
func readMultipartFile(w http.ResponseWriter, r *http.Request) (filename, contentType string, content []byte, ok bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return "", "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Отсутствует поле file")
		return "", "", nil, false
	}
	defer file.Close()

	content, err = io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		apierrors.ValidationError(w, "Ошибка чтения файла: "+err.Error())
		return "", "", nil, false
	}
	if len(content) > maxUploadBytes {
		apierrors.ValidationError(w, "Файл превышает предельный размер 64 MB")
		return "", "", nil, false
	}

	return header.Filename, header.Header.Get("Content-Type"), content, true
}

// UploadDocument принимает документ из multipart-формы {file, category}.
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	filename, contentType, content, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	f, err := h.uploads.UploadDocument(r.Context(), session.UserID, session.Email, service.DocumentUpload{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
		Category:    r.FormValue("category"),
	})
	if err != nil {
		// Запись уже в реестре со статусом processing и попадёт к клиенту
		// через список и SSE; в ответе — только конверт ошибки конвейера
		if errors.Is(err, service.ErrWebhookUnavailable) && f != nil {
			apierrors.PipelineUnavailable(w, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// UploadAudio принимает аудиозапись из multipart-формы {file}.
func (h *APIHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	filename, contentType, content, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	f, err := h.uploads.UploadAudio(r.Context(), session.UserID, session.Email, service.AudioUpload{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		if errors.Is(err, service.ErrWebhookUnavailable) && f != nil {
			apierrors.PipelineUnavailable(w, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// UploadTranscript сохраняет транскрипт как синтезированный .txt.
func (h *APIHandler) UploadTranscript(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req transcriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.uploads.UploadTranscript(r.Context(), session.UserID, session.Email, service.TranscriptUpload{
		Name:     req.Name,
		Category: req.Category,
		Content:  req.Content,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrWebhookUnavailable) && f != nil {
			apierrors.PipelineUnavailable(w, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// UploadCompanyProfile синтезирует и принимает профиль компании.
func (h *APIHandler) UploadCompanyProfile(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req companyProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.uploads.UploadCompanyProfile(r.Context(), session.UserID, session.Email, service.CompanyProfileUpload{
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		Size:        req.Size,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, service.ErrWebhookUnavailable) && f != nil {
			apierrors.PipelineUnavailable(w, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// RefreshKnowledgeBase запускает обновление базы знаний.
func (h *APIHandler) RefreshKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	if err := h.uploads.Refresh(r.Context(), session.UserID, session.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
