package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pagebuilder/api/internal/auth"
	"pagebuilder/api/internal/authpw"
	"pagebuilder/api/internal/blob"
	"pagebuilder/api/internal/config"
	"pagebuilder/api/internal/export"
	"pagebuilder/api/internal/layout"
	"pagebuilder/api/internal/reconcile"
	"pagebuilder/api/internal/scope"
	"pagebuilder/api/internal/store"
	"pagebuilder/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByID(context.Context, int64) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	CreateUser(context.Context, string, string) (store.User, error)
	CreateProject(context.Context, int64, string) (store.Project, error)
	ListProjects(context.Context, int64) ([]store.Project, error)
	GetProject(context.Context, int64) (store.Project, error)
	DeleteProject(context.Context, int64) error
	CreatePage(context.Context, int64, string) (store.Page, error)
	ListPages(context.Context, int64) ([]store.Page, error)
	GetPage(context.Context, int64) (store.Page, error)
	DeletePage(context.Context, int64) error
	CreateComponent(context.Context, store.Component) (store.Component, error)
	GetComponent(context.Context, int64, int64) (store.Component, error)
	ComponentByCompID(context.Context, int64, string) (store.Component, error)
	DeleteComponent(context.Context, int64) error
	ListPageComponents(context.Context, int64) ([]store.Component, error)
	ListProjectComponents(context.Context, int64) ([]store.ProjectComponent, error)
	WithTx(context.Context, func(store.Tx) error) error
}

// SessionStore keeps refresh sessions and revoked access token ids. Both the
// Postgres store and the Redis session store satisfy it.
type SessionStore interface {
	SaveRefreshSession(context.Context, string, store.User, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

// Publisher uploads rendered project pages to object storage.
type Publisher interface {
	Publish(ctx context.Context, projectID int64, pages []blob.Page) (blob.Manifest, error)
}

type Service struct {
	cfg        config.Config
	store      dataStore
	sessions   SessionStore
	passwords  *authpw.Service
	scope      *scope.Resolver
	reconciler *reconcile.Reconciler
	normalizer layout.Normalizer
	exporter   *export.Service
	publisher  Publisher
	logger     *zap.Logger
}

type Option func(*options)

type options struct {
	sessions  SessionStore
	capturer  export.Capturer
	publisher Publisher
}

// WithSessionStore keeps sessions outside the primary database.
func WithSessionStore(s SessionStore) Option {
	return func(o *options) { o.sessions = s }
}

// WithCapturer enables PDF and PNG exports.
func WithCapturer(c export.Capturer) Option {
	return func(o *options) { o.capturer = c }
}

// WithPublisher enables project publishing.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New builds the service over Postgres. Sessions stay in Postgres unless
// WithSessionStore names another store.
func New(cfg config.Config, pg *store.PostgresStore, logger *zap.Logger, opts ...Option) *Service {
	o := options{sessions: pg}
	for _, opt := range opts {
		opt(&o)
	}
	return newService(cfg, pg, o, logger)
}

func newService(cfg config.Config, ds dataStore, o options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalizer := layout.Normalizer{}
	if cfg.Layout.LegacyOffsets {
		normalizer.Mode = layout.OffsetsRelativeToOffset
	}
	return &Service{
		cfg:        cfg,
		store:      ds,
		sessions:   o.sessions,
		passwords:  authpw.NewService(ds),
		scope:      scope.NewResolver(ds, logger),
		reconciler: reconcile.New(ds),
		normalizer: normalizer,
		exporter:   export.NewService(o.capturer),
		publisher:  o.publisher,
		logger:     logger,
	}
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignUp(ctx context.Context, email, firstPassword, secondPassword string) (map[string]any, error) {
	user, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{
		Email:          email,
		FirstPassword:  firstPassword,
		SecondPassword: secondPassword,
	})
	switch {
	case errors.Is(err, authpw.ErrPasswordMismatch):
		return nil, domainError(http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match", map[string]any{"passwordMatch": false})
	case errors.Is(err, authpw.ErrInvalidEmail):
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Enter a valid email address", map[string]any{"field": "email"})
	case errors.Is(err, authpw.ErrEmptyPassword):
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Password is required", map[string]any{"field": "firstPassword"})
	case errors.Is(err, authpw.ErrPasswordTooLong):
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Password is too long", map[string]any{"field": "firstPassword"})
	case errors.Is(err, authpw.ErrEmailTaken):
		return nil, domainError(http.StatusBadRequest, "EMAIL_TAKEN", "A user with that email already exists", map[string]any{"field": "email"})
	case err != nil:
		return nil, err
	}
	s.logger.Info("user signed up", zap.Int64("user_id", user.ID))
	return map[string]any{"id": user.ID, "email": user.Email}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return Session{}, domainError(http.StatusBadRequest, "INVALID_CREDENTIALS", "Unable to log in with provided credentials", nil)
	}
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.NewClaims(user.ID, user.Email, jti, now, expiresAt))
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.logger.Warn("revoke access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh session", zap.Error(err))
		}
	}
	return nil
}
