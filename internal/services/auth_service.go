package services

import (
	"context"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const usernameAttempts = 5

// IDTokenVerifier verifies Google sign-in tokens. *auth.Client from the Firebase SDK satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthService interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	GoogleLogin(ctx context.Context, idToken string) (*models.AuthResult, error)
}

type authService struct {
	users     repositories.UserRepository
	verifier  IDTokenVerifier // nil when Firebase is not configured
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewAuthService(users repositories.UserRepository, verifier IDTokenVerifier, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) AuthService {
	return &authService{
		users:     users,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Signup registers a local account and signs the new user in
func (s *authService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.PersonalInfo.Email))

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("Email already registered.")
	} else if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.PersonalInfo.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		PersonalInfo: models.PersonalInfo{
			Fullname:   strings.ToLower(strings.TrimSpace(req.PersonalInfo.Fullname)),
			Email:      email,
			Password:   string(hashedPassword),
			Username:   username,
			ProfileImg: defaultProfileImg(),
		},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User signed up", zap.String("user_id", user.ID.Hex()), zap.String("username", username))
	return s.authResult(user)
}

// Login checks local credentials
func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.PersonalInfo.Email)))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, err
	}
	if user.PersonalInfo.Password == "" {
		return nil, apperrors.Unauthorized("This account was created with Google. Please sign in with Google.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PersonalInfo.Password), []byte(req.PersonalInfo.Password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid password.")
	}
	return s.authResult(user)
}

// GoogleLogin signs in with a Firebase ID token. Unknown Google identities get an account;
// a local account with the same email is linked to the Google identity.
func (s *authService) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResult, error) {
	if s.verifier == nil {
		return nil, apperrors.Unauthorized("Google sign-in is not available")
	}

	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.log.Debug("Rejected Google ID token", zap.Error(err))
		return nil, apperrors.Unauthorized("Invalid or expired Google token")
	}

	user, err := s.users.GetUserByFirebaseUID(ctx, token.UID)
	if err == nil {
		return s.authResult(user)
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	email := strings.ToLower(claimString(token.Claims, "email"))
	if email == "" {
		return nil, apperrors.Unauthorized("Google account has no email address")
	}

	user, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user, err = s.users.UpdateUserFields(ctx, user.ID, map[string]interface{}{
			"firebase_uid": token.UID,
			"google_auth":  true,
		})
		if err != nil {
			return nil, err
		}
		s.log.Info("Linked Google identity", zap.String("user_id", user.ID.Hex()))
		return s.authResult(user)
	case !apperrors.Is(err, apperrors.KindNotFound):
		return nil, err
	}

	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	fullname := strings.ToLower(claimString(token.Claims, "name"))
	if fullname == "" {
		fullname, _, _ = strings.Cut(email, "@")
	}
	profileImg := claimString(token.Claims, "picture")
	if profileImg == "" {
		profileImg = defaultProfileImg()
	}

	user = &models.User{
		PersonalInfo: models.PersonalInfo{
			Fullname:   fullname,
			Email:      email,
			Username:   username,
			ProfileImg: profileImg,
		},
		GoogleAuth:  true,
		FirebaseUID: token.UID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User signed up with Google", zap.String("user_id", user.ID.Hex()))
	return s.authResult(user)
}

func (s *authService) generateUsername(ctx context.Context, email string) (string, error) {
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		candidate := usernameCandidate(email)
		exists, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperrors.Conflict("Could not generate a unique username, please try again")
}

func (s *authService) authResult(user *models.User) (*models.AuthResult, error) {
	token, err := GenerateToken(user.ID, user.PersonalInfo.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &models.AuthResult{User: user, Token: token}, nil
}

// GenerateToken signs an HS256 access token for the user
func GenerateToken(userID primitive.ObjectID, email string, secret []byte, ttl time.Duration) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: userID.Hex(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return strings.TrimSpace(v)
}
