// Пакет repository — доступ к таблицам консоли (users, profiles, files)
// в PostgreSQL. Все запросы — чистый SQL через pgx, без ORM; строки реестра
// всегда читаются и пишутся с фильтром по владельцу.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена. Возвращается и когда строка
	// существует, но принадлежит другому пользователю.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (например, повторный email).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — исполнитель SQL-запросов. Реализуется как *pgxpool.Pool, так и
// pgx.Tx: одни и те же репозитории работают и на общем пуле, и внутри
// транзакции регистрации (пользователь и профиль создаются атомарно).
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner выполняет операции консоли в одной транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner над пулом хранилища.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции: ошибка fn откатывает её,
// успех — коммитит. Ошибки fn возвращаются без обёртки, чтобы сервисы
// могли распознать сентинелы репозиториев через errors.Is.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникальности PostgreSQL.
// Репозитории переводят его в ErrConflict (email пользователя,
// id профиля).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
