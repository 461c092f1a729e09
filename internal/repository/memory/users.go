package memory

import (
	"errors"
	"strings"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userRepo struct {
	s *Store
}

// Users returns the account view of the store.
func (s *Store) Users() repository.UserRepository {
	return userRepo{s: s}
}

func (r userRepo) CreateUser(email, password, displayName string, roles []models.UserRole) (models.User, error) {
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	if !models.IsValidRoleList(normalized) {
		return models.User{}, errors.New("invalid roles")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if _, exists := r.s.usersByEmail[normalizedEmail]; exists {
		return models.User{}, errors.New("email already registered")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        normalizedEmail,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        normalized,
	}
	r.s.users[user.ID] = user
	r.s.usersByEmail[user.Email] = user.ID
	return cloneUser(user), nil
}

func (r userRepo) AuthenticateUser(email, password string) (models.User, error) {
	r.s.mu.RLock()
	userID, ok := r.s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	var user *models.User
	if ok {
		user = r.s.users[userID]
	}
	r.s.mu.RUnlock()

	if user == nil || !user.IsActive {
		return models.User{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return cloneUser(user), nil
}

func (r userRepo) GetUserByID(userID string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if user, ok := r.s.users[userID]; ok {
		return cloneUser(user), nil
	}
	return models.User{}, models.ErrNotFound
}

func cloneUser(u *models.User) models.User {
	out := *u
	out.Roles = append([]models.UserRole(nil), u.Roles...)
	return out
}
