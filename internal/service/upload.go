// upload.go — сервис приёма файлов в базу знаний.
//
// Все потоки загрузки работают одинаково: валидация, запись в реестр
// со статусом processing, передача содержимого конвейеру обработки.
// Ошибка конвейера не откатывает запись — конечный статус выставит
// сам конвейер через callback; запись остаётся в processing.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/repository"
	"github.com/arturkryukov/kbconsole/internal/webhook"
)

// Байт в мегабайте — для пересчёта размера файла в size_mb.
const bytesPerMB = 1048576

// DocumentUpload — входные данные загрузки документа.
type DocumentUpload struct {
	// Filename — имя файла
	Filename string
	// ContentType — MIME-тип файла
	ContentType string
	// Content — содержимое файла
	Content []byte
	// Category — категория базы знаний (обязательная)
	Category string
}

// AudioUpload — входные данные загрузки аудиозаписи.
// Категория всегда Audio.
type AudioUpload struct {
	// Filename — имя файла
	Filename string
	// ContentType — MIME-тип файла
	ContentType string
	// Content — содержимое файла
	Content []byte
}

// TranscriptUpload — входные данные сохранения транскрипта.
// Из текста синтезируется UTF-8 файл <Name>.txt.
type TranscriptUpload struct {
	// Name — имя транскрипта (без расширения)
	Name string
	// Category — категория базы знаний (обязательная)
	Category string
	// Content — текст транскрипта
	Content string
	// VideoURL — ссылка на исходное видео (опционально)
	VideoURL string
}

// CompanyProfileUpload — входные данные профиля компании.
// Из полей синтезируется текстовый документ категории Company Profile.
type CompanyProfileUpload struct {
	// CompanyName — название компании (обязательное)
	CompanyName string
	// Industry — отрасль
	Industry string
	// Size — размер компании
	Size string
	// Location — расположение
	Location string
	// Description — описание деятельности
	Description string
}

// UploadService — сервис приёма файлов.
type UploadService struct {
	fileRepo repository.FileRepository
	client   *webhook.Client
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewUploadService создаёт сервис приёма файлов.
func NewUploadService(
	fileRepo repository.FileRepository,
	client *webhook.Client,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		fileRepo: fileRepo,
		client:   client,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "upload_service")),
	}
}

// UploadDocument принимает документ: запись в реестр + передача конвейеру.
func (s *UploadService) UploadDocument(ctx context.Context, userID, email string, up DocumentUpload) (*model.FileRecord, error) {
	if len(up.Content) == 0 {
		return nil, fmt.Errorf("%w: файл не выбран", ErrValidation)
	}
	if strings.TrimSpace(up.Category) == "" {
		return nil, fmt.Errorf("%w: категория не указана", ErrValidation)
	}

	f := s.newRecord(userID, up.Filename, up.Category, up.ContentType, len(up.Content))
	f.MimeType = up.ContentType

	return s.registerAndSubmit(ctx, email, f, webhook.Submission{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Content:     up.Content,
		Email:       email,
	}, false)
}

// UploadAudio принимает аудиозапись. Категория назначается автоматически.
func (s *UploadService) UploadAudio(ctx context.Context, userID, email string, up AudioUpload) (*model.FileRecord, error) {
	if len(up.Content) == 0 {
		return nil, fmt.Errorf("%w: файл не выбран", ErrValidation)
	}

	f := s.newRecord(userID, up.Filename, model.CategoryAudio, up.ContentType, len(up.Content))

	return s.registerAndSubmit(ctx, email, f, webhook.Submission{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Content:     up.Content,
		Email:       email,
	}, true)
}

// UploadTranscript сохраняет транскрипт как синтезированный .txt.
// При наличии ссылки на видео она добавляется первой строкой файла.
func (s *UploadService) UploadTranscript(ctx context.Context, userID, email string, up TranscriptUpload) (*model.FileRecord, error) {
	if strings.TrimSpace(up.Name) == "" || strings.TrimSpace(up.Content) == "" {
		return nil, fmt.Errorf("%w: имя и текст транскрипта обязательны", ErrValidation)
	}
	if strings.TrimSpace(up.Category) == "" {
		return nil, fmt.Errorf("%w: категория не указана", ErrValidation)
	}

	text := up.Content
	if up.VideoURL != "" {
		text = fmt.Sprintf("Video: %s\n\n%s", up.VideoURL, text)
	}
	content := []byte(text)
	filename := up.Name + ".txt"

	f := s.newRecord(userID, filename, up.Category, "text/plain", len(content))
	f.VideoURL = up.VideoURL

	return s.registerAndSubmit(ctx, email, f, webhook.Submission{
		Filename:    filename,
		ContentType: "text/plain",
		Content:     content,
		Email:       email,
		VideoURL:    up.VideoURL,
	}, false)
}

// UploadCompanyProfile синтезирует текстовый профиль компании
// и отправляет его конвейеру как обычный документ.
func (s *UploadService) UploadCompanyProfile(ctx context.Context, userID, email string, up CompanyProfileUpload) (*model.FileRecord, error) {
	if strings.TrimSpace(up.CompanyName) == "" {
		return nil, fmt.Errorf("%w: название компании обязательно", ErrValidation)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", up.CompanyName)
	if up.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", up.Industry)
	}
	if up.Size != "" {
		fmt.Fprintf(&b, "Size: %s\n", up.Size)
	}
	if up.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", up.Location)
	}
	if up.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", up.Description)
	}
	content := []byte(b.String())
	filename := up.CompanyName + " - Company Profile.txt"

	f := s.newRecord(userID, filename, model.CategoryCompanyProfile, "text/plain", len(content))

	return s.registerAndSubmit(ctx, email, f, webhook.Submission{
		Filename:    filename,
		ContentType: "text/plain",
		Content:     content,
		Email:       email,
	}, false)
}

// Refresh запускает обновление базы знаний через webhook.
// Исход сообщается пользователю toast-уведомлениями.
func (s *UploadService) Refresh(ctx context.Context, userID, email string) error {
	s.notifier.Push(userID, notify.SeverityInfo, "Knowledge base refresh started")

	if err := s.client.TriggerRefresh(ctx, email); err != nil {
		s.logger.Error("Обновление базы знаний не запустилось",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.notifier.Push(userID, notify.SeverityError, "Knowledge base refresh failed")
		return fmt.Errorf("%w: %s", ErrWebhookUnavailable, err.Error())
	}

	s.notifier.Push(userID, notify.SeveritySuccess, "Knowledge base refreshed")
	return nil
}

// newRecord создаёт FileRecord со статусом processing.
func (s *UploadService) newRecord(userID, name, category, mimeType string, sizeBytes int) *model.FileRecord {
	return &model.FileRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       name,
		Category:   category,
		SizeMB:     float64(sizeBytes) / bytesPerMB,
		MimeType:   mimeType,
		Status:     model.FileStatusProcessing,
		UploadDate: time.Now().UTC(),
	}
}

// registerAndSubmit записывает файл в реестр и передаёт его конвейеру.
// Порядок строгий: сначала запись (источник правды для консоли), затем
// webhook. Ошибка webhook-а не удаляет запись — файл остаётся в
// processing до вердикта конвейера или ручного удаления.
func (s *UploadService) registerAndSubmit(ctx context.Context, email string, f *model.FileRecord, sub webhook.Submission, audio bool) (*model.FileRecord, error) {
	if err := s.fileRepo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("запись файла в реестр: %w", err)
	}

	s.logger.Info("Файл принят в реестр",
		slog.String("file_id", f.ID),
		slog.String("user_id", f.UserID),
		slog.String("name", f.Name),
		slog.String("category", f.Category),
	)

	var err error
	if audio {
		err = s.client.SubmitAudio(ctx, sub)
	} else {
		err = s.client.SubmitDocument(ctx, sub)
	}
	if err != nil {
		s.logger.Error("Конвейер не принял файл",
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()),
		)
		s.notifier.Push(f.UserID, notify.SeverityError,
			fmt.Sprintf("Upload of \"%s\" failed", f.Name))
		return f, fmt.Errorf("%w: %s", ErrWebhookUnavailable, err.Error())
	}

	s.notifier.Push(f.UserID, notify.SeveritySuccess,
		fmt.Sprintf("\"%s\" uploaded", f.Name))
	return f, nil
}
