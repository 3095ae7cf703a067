package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// UserRepository is the last-resort user store.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	lastID int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]domain.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindAll(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.byEmail(email); ok {
		return &u, nil
	}
	return nil, nil
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail(user.Email); taken {
		return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicate, user.Email)
	}
	r.lastID++
	user.ID = r.lastID
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return &user, nil
}

func (r *UserRepository) Update(_ context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if patch.Email != nil {
		if other, taken := r.byEmail(*patch.Email); taken && other.ID != id {
			return nil, fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicate, *patch.Email)
		}
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	r.users[id] = u
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

// byEmail must be called with r.mu held.
func (r *UserRepository) byEmail(email string) (domain.User, bool) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return domain.User{}, false
}
