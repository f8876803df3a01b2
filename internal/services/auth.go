package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	workerrepos "github.com/loopworks/traintrack-backend/internal/data/repos/worker"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/ctxutil"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Worker      *types.Worker `json:"worker"`
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)

	// SetContextFromToken verifies the bearer token and stashes the caller's
	// worker id in the context for downstream handlers.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)

	GetWorker(ctx context.Context, workerID uuid.UUID) (*types.Worker, error)
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	workerRepo workerrepos.WorkerRepo
	jwtSecret  []byte
	accessTTL  time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, workerRepo workerrepos.WorkerRepo, jwtSecret string, accessTTL time.Duration) AuthService {
	return &authService{
		db:         db,
		log:        baseLog.With("service", "AuthService"),
		workerRepo: workerRepo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.workerRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, storeErr("check email", err)
	}
	if len(existing) > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	w := &types.Worker{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
	}
	if _, err := s.workerRepo.Create(ctx, nil, []*types.Worker{w}); err != nil {
		// The unique index on email backstops the pre-check under races.
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return nil, ErrEmailTaken
		}
		return nil, storeErr("create worker", err)
	}

	s.log.Info("worker registered", "worker_id", w.ID.String())
	return s.issueToken(w)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	workers, err := s.workerRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, storeErr("look up worker", err)
	}
	if len(workers) == 0 {
		return nil, ErrInvalidCredentials
	}
	w := workers[0]
	if err := bcrypt.CompareHashAndPassword([]byte(w.Password), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueToken(w)
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ctx, ErrInvalidCredentials
	}
	workerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, ErrInvalidCredentials
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		WorkerID:    workerID,
	}), nil
}

func (s *authService) GetWorker(ctx context.Context, workerID uuid.UUID) (*types.Worker, error) {
	workers, err := s.workerRepo.GetByIDs(ctx, nil, []uuid.UUID{workerID})
	if err != nil {
		return nil, storeErr("load worker", err)
	}
	if len(workers) == 0 {
		return nil, ErrInvalidCredentials
	}
	return workers[0], nil
}

func (s *authService) issueToken(w *types.Worker) (*AuthResult, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   w.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    "traintrack",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Worker: w, AccessToken: signed, ExpiresAt: expiresAt}, nil
}
