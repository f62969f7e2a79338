// files.go — сервис реестра файлов базы знаний.
// Постраничная выборка с поиском, удаление, смена статуса конвейером.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/repository"
)

// FileService — сервис реестра файлов.
type FileService struct {
	fileRepo repository.FileRepository
	notifier *notify.Notifier
	pageSize int
	logger   *slog.Logger
}

// NewFileService создаёт сервис реестра файлов.
// pageSize — фиксированный размер страницы (KB_FILE_PAGE_SIZE).
func NewFileService(
	fileRepo repository.FileRepository,
	notifier *notify.Notifier,
	pageSize int,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		notifier: notifier,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "file_service")),
	}
}

// PageSize возвращает размер страницы реестра.
func (s *FileService) PageSize() int {
	return s.pageSize
}

// List возвращает страницу файлов пользователя и точное общее количество
// совпадений. page — номер страницы, начиная с нуля; search — подстрока
// для регистронезависимого поиска по имени или категории.
func (s *FileService) List(ctx context.Context, userID, search string, page int) ([]*model.FileRecord, int, error) {
	if page < 0 {
		page = 0
	}
	filters := repository.FileListFilters{Search: search}

	files, err := s.fileRepo.List(ctx, userID, filters, s.pageSize, page*s.pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка файлов: %w", err)
	}

	total, err := s.fileRepo.Count(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт файлов: %w", err)
	}

	return files, total, nil
}

// Get возвращает файл пользователя по ID.
func (s *FileService) Get(ctx context.Context, userID, fileID string) (*model.FileRecord, error) {
	f, err := s.fileRepo.GetByID(ctx, userID, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла: %w", err)
	}
	return f, nil
}

// Delete безвозвратно удаляет файл пользователя.
// Исход операции сообщается владельцу toast-уведомлением.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	f, err := s.fileRepo.GetByID(ctx, userID, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение файла для удаления: %w", err)
	}

	if err := s.fileRepo.Delete(ctx, userID, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.notifier.Push(userID, notify.SeverityError,
			fmt.Sprintf("Failed to delete \"%s\"", f.Name))
		return fmt.Errorf("удаление файла: %w", err)
	}

	s.logger.Info("Файл удалён из реестра",
		slog.String("file_id", fileID),
		slog.String("user_id", userID),
		slog.String("name", f.Name),
	)
	s.notifier.Push(userID, notify.SeveritySuccess,
		fmt.Sprintf("\"%s\" deleted", f.Name))
	return nil
}

// UpdateStatus выполняет переход статуса по запросу конвейера обработки.
// Допустимы только processed и failed, и только из processing.
// Владелец получает toast о завершении обработки; изменение строки
// расходится подписчикам через триггер NOTIFY.
func (s *FileService) UpdateStatus(ctx context.Context, fileID, newStatus string) (*model.FileRecord, error) {
	if newStatus != model.FileStatusProcessed && newStatus != model.FileStatusFailed {
		return nil, fmt.Errorf("%w: недопустимый статус %q, допустимые: processed, failed",
			ErrValidation, newStatus)
	}

	f, err := s.fileRepo.UpdateStatus(ctx, fileID, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("смена статуса файла: %w", err)
	}

	s.logger.Info("Статус файла обновлён конвейером",
		slog.String("file_id", fileID),
		slog.String("status", newStatus),
	)

	severity := notify.SeveritySuccess
	if newStatus == model.FileStatusFailed {
		severity = notify.SeverityError
	}
	s.notifier.Push(f.UserID, severity,
		fmt.Sprintf("File \"%s\" is now %s", f.Name, newStatus))

	return f, nil
}
