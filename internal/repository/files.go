package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
)

// FileRepository — интерфейс CRUD для таблицы files.
// Все выборки и изменения выполняются в пределах одного владельца.
type FileRepository interface {
	// Create создаёт новую запись файла в реестре.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл владельца по UUID.
	GetByID(ctx context.Context, userID, fileID string) (*model.FileRecord, error)
	// List возвращает страницу файлов владельца, новые сверху.
	List(ctx context.Context, userID string, filters FileListFilters, limit, offset int) ([]*model.FileRecord, error)
	// Count возвращает точное количество файлов владельца с учётом фильтров.
	Count(ctx context.Context, userID string, filters FileListFilters) (int, error)
	// UpdateStatus переводит файл из статуса processing в newStatus.
	// ErrNotFound, если файла нет или он уже не в processing.
	UpdateStatus(ctx context.Context, fileID, newStatus string) (*model.FileRecord, error)
	// Delete удаляет запись файла владельца без возможности восстановления.
	Delete(ctx context.Context, userID, fileID string) error
}

// FileListFilters — фильтры для списка файлов.
type FileListFilters struct {
	// Search — подстрока для регистронезависимого поиска по имени или категории.
	Search string
	// Status — фильтр по статусу обработки.
	Status *string
	// Category — фильтр по категории.
	Category *string
}

// fileRepo — реализация FileRepository.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий реестра файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

const fileColumns = `id, user_id, name, category, size_mb, mime_type, video_url,
		status, upload_date, created_at, updated_at`

func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (id, user_id, name, category, size_mb, mime_type, video_url,
			status, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.UserID, f.Name, f.Category, f.SizeMB, f.MimeType, f.VideoURL,
		f.Status, f.UploadDate,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, userID, fileID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1 AND user_id = $2`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, fileID, userID).Scan(
		&f.ID, &f.UserID, &f.Name, &f.Category, &f.SizeMB, &f.MimeType, &f.VideoURL,
		&f.Status, &f.UploadDate, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// buildFileWhere строит WHERE-условие и аргументы для выборки файлов.
// Первым условием всегда идёт владелец.
func buildFileWhere(userID string, filters FileListFilters) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argNum := 2

	if filters.Search != "" {
		conditions = append(conditions,
			fmt.Sprintf("(name ILIKE $%d OR category ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filters.Status)
		argNum++
	}
	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *filters.Category)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *fileRepo) List(ctx context.Context, userID string, filters FileListFilters, limit, offset int) ([]*model.FileRecord, error) {
	where, args := buildFileWhere(userID, filters)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM files
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, fileColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.Name, &f.Category, &f.SizeMB, &f.MimeType, &f.VideoURL,
			&f.Status, &f.UploadDate, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *fileRepo) Count(ctx context.Context, userID string, filters FileListFilters) (int, error) {
	where, args := buildFileWhere(userID, filters)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return count, nil
}

func (r *fileRepo) UpdateStatus(ctx context.Context, fileID, newStatus string) (*model.FileRecord, error) {
	// Переход допустим только из processing — условие в WHERE.
	query := fmt.Sprintf(`
		UPDATE files
		SET status = $2
		WHERE id = $1 AND status = 'processing'
		RETURNING %s`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, fileID, newStatus).Scan(
		&f.ID, &f.UserID, &f.Name, &f.Category, &f.SizeMB, &f.MimeType, &f.VideoURL,
		&f.Status, &f.UploadDate, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) Delete(ctx context.Context, userID, fileID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1 AND user_id = $2`, fileID, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
