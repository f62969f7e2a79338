// helpers_test.go — in-memory реализации репозиториев для unit-тестов сервисов.
package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/repository"
)

// testLogger — logger, пишущий в никуда.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testNotifier — Notifier с длинным TTL для тестов.
func testNotifier() *notify.Notifier {
	return notify.NewNotifier(time.Minute, testLogger())
}

// collectToasts выгребает все уведомления пользователя через подписку.
func collectToasts(n *notify.Notifier, userID string) []notify.Toast {
	ch, unsubscribe := n.Subscribe(userID)
	defer unsubscribe()

	var toasts []notify.Toast
	for {
		select {
		case t := <-ch:
			toasts = append(toasts, t)
		default:
			return toasts
		}
	}
}

// fakeFileRepo — in-memory реализация FileRepository.
type fakeFileRepo struct {
	files     map[string]*model.FileRecord
	seq       int
	createErr error
	deleteErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*model.FileRecord)}
}

func (r *fakeFileRepo) Create(_ context.Context, f *model.FileRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.files[f.ID]; ok {
		return repository.ErrConflict
	}
	r.seq++
	now := time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)
	f.CreatedAt = now
	f.UpdatedAt = now
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, userID, fileID string) (*model.FileRecord, error) {
	f, ok := r.files[fileID]
	if !ok || f.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// matches повторяет семантику поиска: подстрока без учёта регистра
// по имени или категории.
func matches(f *model.FileRecord, filters repository.FileListFilters) bool {
	if filters.Search != "" {
		s := strings.ToLower(filters.Search)
		if !strings.Contains(strings.ToLower(f.Name), s) &&
			!strings.Contains(strings.ToLower(f.Category), s) {
			return false
		}
	}
	if filters.Status != nil && f.Status != *filters.Status {
		return false
	}
	if filters.Category != nil && f.Category != *filters.Category {
		return false
	}
	return true
}

func (r *fakeFileRepo) selectFiles(userID string, filters repository.FileListFilters) []*model.FileRecord {
	var result []*model.FileRecord
	for _, f := range r.files {
		if f.UserID != userID || !matches(f, filters) {
			continue
		}
		cp := *f
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *fakeFileRepo) List(_ context.Context, userID string, filters repository.FileListFilters, limit, offset int) ([]*model.FileRecord, error) {
	all := r.selectFiles(userID, filters)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeFileRepo) Count(_ context.Context, userID string, filters repository.FileListFilters) (int, error) {
	return len(r.selectFiles(userID, filters)), nil
}

func (r *fakeFileRepo) UpdateStatus(_ context.Context, fileID, newStatus string) (*model.FileRecord, error) {
	f, ok := r.files[fileID]
	if !ok || f.Status != model.FileStatusProcessing {
		return nil, repository.ErrNotFound
	}
	f.Status = newStatus
	f.UpdatedAt = time.Now().UTC()
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, userID, fileID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	f, ok := r.files[fileID]
	if !ok || f.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.files, fileID)
	return nil
}

// fakeUserRepo — in-memory реализация UserRepository.
type fakeUserRepo struct {
	users map[string]*model.User // по ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) TouchLastSignIn(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastSignInAt = &at
	return nil
}

// fakeProfileRepo — in-memory реализация ProfileRepository.
type fakeProfileRepo struct {
	profiles map[string]*model.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (r *fakeProfileRepo) Create(_ context.Context, p *model.Profile) error {
	if _, ok := r.profiles[p.ID]; ok {
		return repository.ErrConflict
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *model.Profile) error {
	existing, ok := r.profiles[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.FullName = p.FullName
	existing.AvatarURL = p.AvatarURL
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeProfileRepo) SetIntegration(_ context.Context, id, provider string, connected bool) error {
	p, ok := r.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch provider {
	case model.ProviderGitHub:
		p.GitHubConnected = connected
	case model.ProviderSlack:
		p.SlackConnected = connected
	default:
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
