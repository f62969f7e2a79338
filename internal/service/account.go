// account.go — сервис учётных записей: регистрация, вход, профиль, пароль.
// Пароли хранятся только как bcrypt-хэши.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
	"github.com/arturkryukov/kbconsole/internal/repository"
)

// AccountService — сервис учётных записей.
type AccountService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	txRunner    *repository.TxRunner
	logger      *slog.Logger
}

// NewAccountService создаёт сервис учётных записей.
func NewAccountService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	txRunner *repository.TxRunner,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		txRunner:    txRunner,
		logger:      logger.With(slog.String("component", "account_service")),
	}
}

// SignUp регистрирует пользователя и создаёт профиль в одной транзакции.
func (s *AccountService) SignUp(ctx context.Context, email, password, fullName string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: некорректный email", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: пароль не может быть пустым", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
	}

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := repository.NewUserRepository(tx).Create(ctx, u); err != nil {
			return err
		}
		p := &model.Profile{ID: u.ID, Email: u.Email, FullName: u.FullName}
		return repository.NewProfileRepository(tx).Create(ctx, p)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: пользователь с таким email уже зарегистрирован", ErrConflict)
		}
		return nil, fmt.Errorf("регистрация пользователя: %w", err)
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", u.ID),
		slog.String("email", u.Email),
	)
	return u, nil
}

// SignIn проверяет учётные данные и отмечает время входа.
// Неверный email и неверный пароль неразличимы для вызывающего.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	now := time.Now().UTC()
	if err := s.userRepo.TouchLastSignIn(ctx, u.ID, now); err != nil {
		// Вход состоялся; отметка времени не критична
		s.logger.Warn("Не удалось отметить время входа",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	} else {
		u.LastSignInAt = &now
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.String("user_id", u.ID),
		slog.String("email", u.Email),
	)
	return u, nil
}

// GetProfile возвращает профиль пользователя.
// Отсутствие профиля — не ошибка для вызывающего: возвращается nil
// с записью в лог (консоль работает и без профиля).
func (s *AccountService) GetProfile(ctx context.Context, userID string) *model.Profile {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Не удалось получить профиль",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return p
}

// GetUser возвращает пользователя по ID.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

// ChangePassword заменяет пароль пользователя.
// Пустой пароль отклоняется до любых обращений к хранилищу.
func (s *AccountService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: пароль не может быть пустым", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("хэширование пароля: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("обновление пароля: %w", err)
	}

	s.logger.Info("Пароль пользователя обновлён",
		slog.String("user_id", userID),
	)
	return nil
}
