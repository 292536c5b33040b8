// Package testing provides test utilities and in-memory stores for testing the platform
package testing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/elby-ai/elby-backend/models"
	"github.com/elby-ai/elby-backend/utils"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of
// repository.UserRepository. It keeps copies of stored users so callers
// cannot mutate the store through returned pointers.
type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User

	// SaveErr, when set, is returned by every write. Used to exercise
	// failure paths.
	SaveErr error
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		users:  make(map[uint]models.User),
	}
}

func (r *MemoryUserRepository) ByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) ByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	return r.ByID(ctx, id)
}

func (r *MemoryUserRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.UUID == id {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) ByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.VerificationToken != nil && *user.VerificationToken == token {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) List(ctx context.Context, filter models.UserFilter, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uint, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	matched := make([]*models.User, 0)
	for _, id := range ids {
		user := r.users[id]
		if !matchesFilter(user, filter) {
			continue
		}
		u := user
		matched = append(matched, &u)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func matchesFilter(user models.User, filter models.UserFilter) bool {
	if filter.Email != nil && !strings.EqualFold(user.Email, *filter.Email) {
		return false
	}
	if filter.EmailContains != nil && !strings.Contains(strings.ToLower(user.Email), strings.ToLower(*filter.EmailContains)) {
		return false
	}
	if filter.Role != nil && user.Role != *filter.Role {
		return false
	}
	if filter.Plan != nil && user.Plan != *filter.Plan {
		return false
	}
	if filter.IsActive != nil && utils.IsTrue(user.IsActive) != *filter.IsActive {
		return false
	}
	if filter.TwoFactorEnabled != nil && utils.IsTrue(user.TwoFactorEnabled) != *filter.TwoFactorEnabled {
		return false
	}
	return true
}

func (r *MemoryUserRepository) Save(ctx context.Context, user *models.User) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	} else if user.ID >= r.nextID {
		r.nextID = user.ID + 1
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *models.User) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) UpdateUsage(ctx context.Context, userID uint, usage models.Usage) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Usage = usage
	r.users[userID] = user
	return nil
}

func (r *MemoryUserRepository) CountActiveSuperAdmins(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, user := range r.users {
		if user.Role == models.RoleSuperAdmin && utils.IsTrue(user.IsActive) {
			count++
		}
	}
	return count, nil
}

// MemorySessionRepository is an in-memory implementation of
// repository.UserSessionRepository.
type MemorySessionRepository struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]models.UserSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		nextID:   1,
		sessions: make(map[uint]models.UserSession),
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, session *models.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == 0 {
		session.ID = r.nextID
		r.nextID++
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *MemorySessionRepository) BySessionToken(ctx context.Context, token string) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.SessionToken == token {
			s := session
			return &s, nil
		}
	}
	return nil, nil
}

func (r *MemorySessionRepository) ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshToken != nil && *session.RefreshToken == token {
			s := session
			return &s, nil
		}
	}
	return nil, nil
}

func (r *MemorySessionRepository) Revoke(ctx context.Context, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.IsActive = utils.ToPtr(false)
	r.sessions[sessionID] = session
	return nil
}

func (r *MemorySessionRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			session.IsActive = utils.ToPtr(false)
			r.sessions[id] = session
		}
	}
	return nil
}

// ActiveCountForUser reports how many live sessions a user holds.
func (r *MemorySessionRepository) ActiveCountForUser(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && utils.IsTrue(session.IsActive) {
			count++
		}
	}
	return count
}

// MemoryAuditRepository is an in-memory implementation of
// repository.AuditLogRepository.
type MemoryAuditRepository struct {
	mu      sync.Mutex
	nextID  uint
	Entries []models.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{nextID: 1}
}

func (r *MemoryAuditRepository) Save(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == 0 {
		entry.ID = r.nextID
		r.nextID++
	}
	r.Entries = append(r.Entries, *entry)
	return nil
}

func (r *MemoryAuditRepository) ByFilter(ctx context.Context, filter models.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*models.AuditLog, 0)
	for i := len(r.Entries) - 1; i >= 0; i-- {
		entry := r.Entries[i]
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		if filter.UserID != nil && (entry.UserID == nil || *entry.UserID != *filter.UserID) {
			continue
		}
		if filter.Success != nil && utils.IsTrue(entry.Success) != *filter.Success {
			continue
		}
		e := entry
		matched = append(matched, &e)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountByAction reports how many entries were recorded for an action.
func (r *MemoryAuditRepository) CountByAction(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.Entries {
		if entry.Action == action {
			count++
		}
	}
	return count
}

// MemoryContentRepository is an in-memory implementation of
// repository.SiteContentRepository.
type MemoryContentRepository struct {
	mu      sync.Mutex
	content *models.SiteContent
}

func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{}
}

func (r *MemoryContentRepository) Get(ctx context.Context) (*models.SiteContent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.content == nil {
		content := &models.SiteContent{}
		content.ApplyDefaults()
		return content, nil
	}
	content := *r.content
	content.ApplyDefaults()
	return &content, nil
}

func (r *MemoryContentRepository) Update(ctx context.Context, content *models.SiteContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *content
	r.content = &c
	return nil
}
