package service

import (
	"context"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"
	"taskflow/pkg/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthService handles registration and credential login
type AuthService struct {
	users  repository.IUserRepository
	tokens *auth.TokenService
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.IUserRepository, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a user and returns a fresh access token for it.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if err := util.ValidateEmail(email); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if err := util.ValidateName(req.FullName); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if req.Password == "" {
		return nil, apperrors.InvalidInput("password cannot be empty")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Failed to look up email", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Email already registered")
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to create user", err)
	}

	return s.tokenResponse(user)
}

// Login verifies credentials and returns an access token.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Failed to look up email", err)
	}
	if user == nil || !util.VerifyPassword(req.Password, user.PasswordHash) {
		// One message for both cases; do not reveal whether the email exists
		return nil, apperrors.Unauthenticated("Invalid credentials")
	}

	return s.tokenResponse(user)
}

// Me returns the profile for an authenticated user id.
func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.Unauthenticated("User not found")
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *AuthService) tokenResponse(user *model.User) (*model.TokenResponse, error) {
	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user.ToResponse(),
	}, nil
}
