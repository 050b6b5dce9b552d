package user

import (
	"context"
	"fmt"
	"time"

	userRepo "appispot/database/repository/user"
	"appispot/models"
	"appispot/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationRequest carries a new account's details.
type RegistrationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// AuthResponse contains only the user's ID and the JWT token.
type AuthResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// UserService defines business logic for user operations.
type UserService interface {
	// Register creates a new account and returns its ID and token.
	Register(req RegistrationRequest) (*AuthResponse, error)
	// Authenticate verifies credentials and returns ID and token.
	Authenticate(email, password string) (*AuthResponse, error)
	// GetByID retrieves a user (safe view) by its unique ID.
	GetByID(userID string) (*models.User, error)
	// Update applies allowed profile changes and returns the updated user.
	Update(userID string, updates map[string]any) (*models.User, error)
	// Delete removes a user account.
	Delete(userID string) error
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo userRepo.UserRepository
}

// Register validates the details, hashes the password, persists the user and
// issues a token.
func (s *DefaultUserService) Register(req RegistrationRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	existing, err := s.Repo.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user with email %s already exists", req.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role != models.RoleHost {
		role = models.RoleGuest
	}
	now := time.Now()
	u := models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         role,
		Phone:        req.Phone,
		Location:     req.Location,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(&u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.issueToken(&u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{ID: u.ID, Token: token}, nil
}

// Authenticate verifies the user's credentials and issues a fresh token.
func (s *DefaultUserService) Authenticate(email, password string) (*AuthResponse, error) {
	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user for authentication: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{ID: u.ID, Token: token}, nil
}

// issueToken generates a JWT and caches its hash so middleware can verify
// without a database round trip.
func (s *DefaultUserService) issueToken(u *models.User) (string, error) {
	token, err := utils.GenerateToken(u.ID, u.Email, utils.TokenDuration)
	if err != nil {
		return "", fmt.Errorf("failed to generate auth token: %w", err)
	}

	cacheKey := utils.AuthCachePrefix + u.ID
	if client := utils.GetAuthCacheClient(); client != nil {
		if err := client.Set(context.Background(), cacheKey, utils.HashToken(token), utils.AuthCacheTTL).Err(); err != nil {
			return "", fmt.Errorf("failed to cache auth token: %w", err)
		}
	}
	return token, nil
}

// GetByID returns a user by ID with sensitive fields projected out.
func (s *DefaultUserService) GetByID(userID string) (*models.User, error) {
	u, err := s.Repo.GetByIDWithProjection(userID, bson.M{"passwordHash": 0})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// Update applies allowed profile fields and returns the updated user.
func (s *DefaultUserService) Update(userID string, updates map[string]any) (*models.User, error) {
	allowed := map[string]bool{
		"fullName": true,
		"avatar":   true,
		"phone":    true,
		"location": true,
	}
	fields := map[string]any{}
	for k, v := range updates {
		if allowed[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return s.GetByID(userID)
	}
	fields["updatedAt"] = time.Now()

	if err := s.Repo.UpdateWithDocument(userID, fields); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetByID(userID)
}

// Delete removes a user record by its ID.
func (s *DefaultUserService) Delete(userID string) error {
	if err := s.Repo.Delete(userID); err != nil {
		return fmt.Errorf("failed to delete user with id %s: %w", userID, err)
	}
	return nil
}
