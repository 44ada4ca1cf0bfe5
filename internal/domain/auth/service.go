package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"melowms/internal/core/apperror"
	"melowms/internal/core/id"
	"melowms/internal/core/store"
	"melowms/pkg/logger"
)

// User is an account document stored under users/{id}. A user belongs to
// one company and, unless super admin, works out of one branch.
type User struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"passwordHash"`
	Company      string     `json:"company"`
	Branch       string     `json:"branch"`
	Roles        []string   `json:"roles"`
	IsSuperAdmin bool       `json:"isSuperAdmin"`
	CreatedTime  time.Time  `json:"createdTime"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// UserPath returns the account document path.
func UserPath(userID string) string {
	return "users/" + userID
}

// Service manages accounts and sessions.
type Service struct {
	store store.Store
	jwt   *JWTService
}

// NewService creates an auth service.
func NewService(st store.Store, jwtSvc *JWTService) *Service {
	return &Service{store: st, jwt: jwtSvc}
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Email        string
	Name         string
	Password     string
	CompanyID    string
	BranchID     string
	Roles        []string
	IsSuperAdmin bool
}

// Register creates an account with a bcrypt password hash. Emails are
// unique across the platform.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return "", apperror.NewValidation("a valid email is required")
	}
	if len(in.Password) < 8 {
		return "", apperror.NewValidation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	userID := id.New().String()
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Query(store.Query{
			Collection: "users",
			Filters:    []store.Filter{{Field: "email", Op: store.OpEqual, Value: email}},
			Limit:      1,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return apperror.NewDuplicate("user", "email", email)
		}

		return tx.Create(UserPath(userID), User{
			Email:        email,
			Name:         in.Name,
			PasswordHash: string(hash),
			Company:      in.CompanyID,
			Branch:       in.BranchID,
			Roles:        in.Roles,
			IsSuperAdmin: in.IsSuperAdmin,
			CreatedTime:  time.Now().UTC(),
		})
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "user registered", "user_id", userID)
	return userID, nil
}

// Session is the result of a successful login.
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
	User        User
}

// Login verifies credentials and issues an access token. Wrong email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	docs, err := s.store.Query(ctx, store.Query{
		Collection: "users",
		Filters:    []store.Filter{{Field: "email", Op: store.OpEqual, Value: email}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	var user User
	if err := docs[0].DataTo(&user); err != nil {
		return nil, err
	}
	userID := docs[0].ID()

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(&user, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Update(UserPath(userID), user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user logged in", "user_id", userID)
	return &Session{UserID: userID, AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser loads an account.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	snapshot, err := s.store.Get(ctx, UserPath(userID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("user", userID)
	}
	var user User
	if err := snapshot.DataTo(&user); err != nil {
		return nil, err
	}
	return &user, nil
}
