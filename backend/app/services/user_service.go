package services

import (
	"crypto/subtle"
	"errors"
	"strings"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/config"
	"fota-manager/backend/global"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users   *repo.CredentialRepository
	adminID string
	cost    int
}

func NewUserService(users *repo.CredentialRepository, adminID string) *UserService {
	if adminID == "" {
		adminID = "admin"
	}
	return &UserService{users: users, adminID: adminID, cost: bcrypt.DefaultCost}
}

// SetCost changes the bcrypt cost for newly stored passwords.
func (s *UserService) SetCost(cost int) { s.cost = cost }

func (s *UserService) AdminID() string { return s.adminID }

func (s *UserService) IsAdmin(userID string) bool { return userID == s.adminID }

// EnsureAdmin creates the credential file with a single admin row when the
// file does not exist yet. An existing file is left alone.
func (s *UserService) EnsureAdmin(password string) error {
	ok, err := s.users.Exists()
	if err != nil {
		return apperr.Internal("bootstrap credentials", err)
	}
	if ok {
		return nil
	}
	if password == "" {
		password = config.DefaultAdminPassword
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	err = s.users.Create(models.Credential{UserID: s.adminID, Password: hash})
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return err
	}
	global.Logger.Info().Str("user", s.adminID).Str("path", s.users.Path()).Msg("credential file created")
	return nil
}

// Verify checks userID and password against the first matching row.
func (s *UserService) Verify(userID, password string) (bool, error) {
	c, err := s.users.FindByUserID(userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, apperr.Auth("verify", "invalid user ID or password")
	}
	if err != nil {
		return false, err
	}
	if !passwordMatches(c.Password, password) {
		return false, apperr.Auth("verify", "invalid user ID or password")
	}
	return s.IsAdmin(userID), nil
}

// AddUser appends a user row. Duplicate IDs are not rejected; Verify only
// ever sees the first one.
func (s *UserService) AddUser(userID, password string) error {
	if strings.TrimSpace(userID) == "" || password == "" {
		return apperr.Validation("add user", "user ID and password are required")
	}
	if strings.ContainsAny(userID, ",\r\n\"") {
		return apperr.Validation("add user", "user ID %q contains reserved characters", userID)
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.users.Append(models.Credential{UserID: userID, Password: hash}); err != nil {
		return err
	}
	global.Logger.Info().Str("user", userID).Msg("user added")
	return nil
}

func (s *UserService) ListUsers() ([]string, error) {
	rows, err := s.users.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, c := range rows {
		out = append(out, c.UserID)
	}
	return out, nil
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	return string(b), nil
}

// passwordMatches accepts bcrypt hashes and legacy plaintext rows.
func passwordMatches(stored, given string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
