package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(email, password, displayName string, roles []models.UserRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(email, password, displayName string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleCustomer}
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))
	if !models.IsValidRoleList(normalized) {
		return models.User{}, errors.New("invalid roles")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        normalized,
	}

	const query = `
		INSERT INTO users (email, display_name, password_hash, is_active, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err = u.db.QueryRow(query, user.Email, user.DisplayName, user.PasswordHash, user.IsActive, pq.Array(toStringSlice(user.Roles))).Scan(&user.ID)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	user, err := u.getUser("email = $1", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	user, err := u.getUser("id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (u *userRepository) getUser(where string, arg interface{}) (models.User, error) {
	var (
		user  models.User
		roles pq.StringArray
	)

	query := `
		SELECT id, email, display_name, password_hash, is_active, roles
		FROM users
		WHERE ` + where
	err := u.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.IsActive,
		&roles,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(models.NormalizeRoles(toUserRoleSlice(roles)))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}

	return user, nil
}
