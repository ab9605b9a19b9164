package users

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps user accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers returns all users ordered by email.
func (r *MemoryRepository) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, email := range slices.Sorted(maps.Keys(r.byEmail)) {
		out = append(out, cloneUser(r.users[r.byEmail[email]]))
	}
	return out, nil
}

// GetUser fetches a user by ID.
func (r *MemoryRepository) GetUser(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

// FindByEmail fetches a user by case-insensitive email.
func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

// CreateUser inserts a user, assigning an id when blank.
func (r *MemoryRepository) CreateUser(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if _, taken := r.byEmail[u.Email]; taken {
		return User{}, ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	u = cloneUser(u)
	r.users[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return cloneUser(u), nil
}

// UpdateUser replaces the stored assignments and profile of u.ID.
func (r *MemoryRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[u.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Email = current.Email
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = r.now()
	u = cloneUser(u)
	r.users[u.ID] = u
	return cloneUser(u), nil
}

// RemoveRoleFromAll strips roleID from every user.
func (r *MemoryRepository) RemoveRoleFromAll(ctx context.Context, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if i := slices.Index(u.RoleIDs, roleID); i >= 0 {
			u.RoleIDs = slices.Delete(slices.Clone(u.RoleIDs), i, i+1)
			u.UpdatedAt = r.now()
			r.users[id] = u
		}
	}
	return nil
}

// RemoveDepartmentFromAll strips departmentID from every user.
func (r *MemoryRepository) RemoveDepartmentFromAll(ctx context.Context, departmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if i := slices.Index(u.DepartmentIDs, departmentID); i >= 0 {
			u.DepartmentIDs = slices.Delete(slices.Clone(u.DepartmentIDs), i, i+1)
			u.UpdatedAt = r.now()
			r.users[id] = u
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u User) User {
	u.RoleIDs = append([]string{}, u.RoleIDs...)
	u.DepartmentIDs = append([]string{}, u.DepartmentIDs...)
	return u
}

var _ RepositoryPort = (*MemoryRepository)(nil)
