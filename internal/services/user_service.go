package services

import (
	"errors"

	"github.com/broker-one/core/internal/database/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the username is already taken
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates invalid login credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooShort indicates the password is too short
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// UserService handles broker account business logic
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new broker account with encrypted password
func (s *UserService) CreateUser(username, password, nickname string) (*models.User, error) {
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}

	// Check if username already exists
	var existingUser models.User
	if err := s.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	newUser := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Nickname:     nickname,
	}

	if err := s.db.Create(newUser).Error; err != nil {
		return nil, err
	}

	// Create default settings
	settings := &models.UserSettings{
		UserID:         newUser.ID,
		ValidateDrafts: true,
		AgentName:      "Alex",
	}
	if err := s.db.Create(settings).Error; err != nil {
		s.db.Delete(newUser)
		return nil, err
	}

	return newUser, nil
}

// Authenticate verifies credentials and returns the user on success
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var foundUser models.User
	if err := s.db.First(&foundUser, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var foundUser models.User
	if err := s.db.Where("username = ?", username).First(&foundUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// ListUsers returns all broker accounts
func (s *UserService) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser updates user profile information
func (s *UserService) UpdateUser(id uint, nickname string) (*models.User, error) {
	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	foundUser.Nickname = nickname
	if err := s.db.Save(foundUser).Error; err != nil {
		return nil, err
	}
	return foundUser, nil
}

// ChangePassword updates a user's password after verifying the old one
func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	foundUser.PasswordHash = string(hashedPassword)
	return s.db.Save(foundUser).Error
}

// ResetPassword sets a user's password without the old one (CLI administration)
func (s *UserService) ResetPassword(username, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByUsername(username)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	foundUser.PasswordHash = string(hashedPassword)
	return s.db.Save(foundUser).Error
}

// GetSettings retrieves a user's settings, creating defaults if missing
func (s *UserService) GetSettings(userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = models.UserSettings{
		UserID:         userID,
		ValidateDrafts: true,
		AgentName:      "Alex",
	}
	if err := s.db.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings persists broker settings
func (s *UserService) UpdateSettings(userID uint, update models.UserSettings) (*models.UserSettings, error) {
	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}

	settings.ValidateDrafts = update.ValidateDrafts
	if update.AgentName != "" {
		settings.AgentName = update.AgentName
	}
	if update.Theme != "" {
		settings.Theme = update.Theme
	}
	if update.Font != "" {
		settings.Font = update.Font
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
