package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-rescue-backend/internal/geo"
	"food-rescue-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const jwtExpiry = 7 * 24 * time.Hour

// Claims is what a validated token carries
type Claims struct {
	UserID string
	Role   models.Role
}

// UserService handles registration, login and account updates
type UserService struct {
	userRepo  UserStore
	jwtSecret string
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, jwtSecret string) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Name         string     `json:"name" validate:"required,max=120"`
	Email        string     `json:"email" validate:"required,email"`
	Password     string     `json:"password" validate:"required,min=8,max=72"`
	Role         string     `json:"role" validate:"required,oneof=donor ngo"`
	Phone        *string    `json:"phone,omitempty"`
	Address      *string    `json:"address,omitempty"`
	Organization *string    `json:"organization,omitempty"`
	Location     *geo.Point `json:"location,omitempty"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a donor or NGO account. NGOs start unverified.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if !role.Registrable() {
		return nil, fmt.Errorf("role %s cannot self-register: %w", role, models.ErrForbidden)
	}
	if in.Location != nil && !in.Location.Valid() {
		return nil, fmt.Errorf("location out of range: %w", models.ErrValidation)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user already exists: %w", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        in.Phone,
		Address:      in.Address,
		Organization: in.Organization,
		Verified:     role == models.RoleDonor,
		Active:       true,
		Location:     in.Location,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks credentials and issues a token
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	if !user.Active {
		return nil, fmt.Errorf("account is deactivated: %w", models.ErrForbidden)
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string, role models.Role) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     now.Add(jwtExpiry).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns its claims
func (s *UserService) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("user_id not found in token")
	}

	roleName, _ := claims["role"].(string)
	role, err := models.ParseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("invalid role in token: %w", err)
	}

	return &Claims{UserID: userID, Role: role}, nil
}

// GetUser returns the user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateLocation sets the user's coordinate used for proximity features
func (s *UserService) UpdateLocation(ctx context.Context, userID string, loc *geo.Point) error {
	if loc != nil && !loc.Valid() {
		return fmt.Errorf("location out of range: %w", models.ErrValidation)
	}
	return s.userRepo.UpdateLocation(ctx, userID, loc)
}

// UpdatePushToken updates the push token for a user
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return s.userRepo.UpdatePushToken(ctx, userID, pushToken)
}

// SetVerified lets an admin verify or unverify an account
func (s *UserService) SetVerified(ctx context.Context, adminID, userID string, verified bool) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	return s.userRepo.SetVerified(ctx, userID, verified)
}

// SetActive lets an admin deactivate or reactivate an account
func (s *UserService) SetActive(ctx context.Context, adminID, userID string, active bool) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if adminID == userID && !active {
		return fmt.Errorf("cannot deactivate yourself: %w", models.ErrValidation)
	}
	return s.userRepo.SetActive(ctx, userID, active)
}

func (s *UserService) requireAdmin(ctx context.Context, userID string) error {
	admin, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !admin.Role.IsAdmin() || !admin.Active {
		return fmt.Errorf("admin only: %w", models.ErrForbidden)
	}
	return nil
}
