package model

import "time"

// Статусы файла в реестре. Начальный статус всегда processing;
// переходы processing -> processed | failed выполняет внешний конвейер.
const (
	FileStatusProcessing = "processing"
	FileStatusProcessed  = "processed"
	FileStatusFailed     = "failed"
)

// Категории, назначаемые сервисом автоматически.
const (
	CategoryAudio          = "Audio"
	CategoryCompanyProfile = "Company Profile"
)

// FileRecord — запись файла в реестре базы знаний.
// Хранится в таблице files. JSON-теги совпадают с именами колонок:
// в таком же виде строка приходит в NOTIFY-событиях и уходит в API.
type FileRecord struct {
	// ID — UUID записи
	ID string `json:"id"`
	// UserID — UUID владельца
	UserID string `json:"user_id"`
	// Name — отображаемое имя файла
	Name string `json:"name"`
	// Category — категория базы знаний
	Category string `json:"category"`
	// SizeMB — размер файла в мегабайтах
	SizeMB float64 `json:"size_mb"`
	// MimeType — MIME-тип файла
	MimeType string `json:"mime_type"`
	// VideoURL — ссылка на исходное видео (для транскриптов, опционально)
	VideoURL string `json:"video_url"`
	// Status — статус обработки (processing, processed, failed)
	Status string `json:"status"`
	// UploadDate — время загрузки
	UploadDate time.Time `json:"upload_date"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
}
