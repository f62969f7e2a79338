package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
)

// ProfileRepository — интерфейс CRUD для таблицы profiles.
type ProfileRepository interface {
	// Create создаёт профиль пользователя (в одной транзакции с users).
	Create(ctx context.Context, p *model.Profile) error
	// GetByID возвращает профиль по UUID пользователя.
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// Update обновляет отображаемые данные профиля.
	Update(ctx context.Context, p *model.Profile) error
	// SetIntegration устанавливает флаг интеграции провайдера.
	SetIntegration(ctx context.Context, id, provider string, connected bool) error
}

// profileRepo — реализация ProfileRepository.
type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id, email, full_name, avatar_url, github_connected, slack_connected, updated_at`

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		RETURNING github_connected, slack_connected, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.Email, p.FullName, p.AvatarURL,
	).Scan(&p.GitHubConnected, &p.SlackConnected, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: профиль уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания профиля: %w", err)
	}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1`, profileColumns)

	p := &model.Profile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.FullName, &p.AvatarURL,
		&p.GitHubConnected, &p.SlackConnected, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) Update(ctx context.Context, p *model.Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $2, avatar_url = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, p.ID, p.FullName, p.AvatarURL).Scan(&p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return nil
}

func (r *profileRepo) SetIntegration(ctx context.Context, id, provider string, connected bool) error {
	// Колонка выбирается по провайдеру; флаги независимы друг от друга.
	var column string
	switch provider {
	case model.ProviderGitHub:
		column = "github_connected"
	case model.ProviderSlack:
		column = "slack_connected"
	default:
		return fmt.Errorf("неизвестный провайдер интеграции: %q", provider)
	}

	query := fmt.Sprintf(
		`UPDATE profiles SET %s = $2, updated_at = now() WHERE id = $1`, column)

	tag, err := r.db.Exec(ctx, query, id, connected)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага интеграции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
