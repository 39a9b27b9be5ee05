package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/repository"
	"go.uber.org/zap"
)

type AccountStore interface {
	UpsertUserByMobile(ctx context.Context, mobile, fullName string) (*models.User, error)
	FindUserByMobile(ctx context.Context, mobile string) (*models.User, error)
}

type SessionIssuer interface {
	Issue(user *models.User) (*identity.Session, error)
}

type syncInput struct {
	Mobile   string `json:"mobile" validate:"required,e164"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

type lookupInput struct {
	Mobile string `json:"mobile" validate:"required,e164"`
}

// Accounts keeps database users in step with identities verified by the provider.
type Accounts struct {
	store    AccountStore
	verifier identity.Verifier
	sessions SessionIssuer
	cache    UserCache
	logger   *zap.Logger
}

func NewAccounts(store AccountStore, verifier identity.Verifier, sessions SessionIssuer, logger *zap.Logger, opts ...Option) *Accounts {
	o := buildOptions(opts)
	return &Accounts{
		store:    store,
		verifier: verifier,
		sessions: sessions,
		cache:    o.users,
		logger:   logger.Named("accounts"),
	}
}

// SyncUser creates the user for mobile, or renames the existing one.
func (a *Accounts) SyncUser(ctx context.Context, mobile, fullName string) (*models.User, error) {
	in := syncInput{Mobile: strings.TrimSpace(mobile), FullName: strings.TrimSpace(fullName)}
	if err := check(&in, nil); err != nil {
		return nil, err
	}

	user, err := a.store.UpsertUserByMobile(ctx, in.Mobile, in.FullName)
	if err != nil {
		return nil, fail("sync user", err)
	}

	if err := a.cache.CacheUser(ctx, user); err != nil {
		a.logger.Warn("Failed to cache user", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// CheckUserExists looks the user up by mobile, cache first.
func (a *Accounts) CheckUserExists(ctx context.Context, mobile string) (*models.User, bool, error) {
	in := lookupInput{Mobile: strings.TrimSpace(mobile)}
	if err := check(&in, nil); err != nil {
		return nil, false, err
	}

	if user, ok, err := a.cache.GetCachedUser(ctx, in.Mobile); err != nil {
		a.logger.Warn("User cache read failed", zap.Error(err))
	} else if ok {
		return user, true, nil
	}

	user, err := a.store.FindUserByMobile(ctx, in.Mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail("look up user", err)
	}

	if err := a.cache.CacheUser(ctx, user); err != nil {
		a.logger.Warn("Failed to cache user", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, true, nil
}

// Register verifies the provider token, records the user under the verified phone and
// opens a session.
func (a *Accounts) Register(ctx context.Context, idToken, fullName string) (*identity.Session, error) {
	id, err := a.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := a.SyncUser(ctx, id.Phone, fullName)
	if err != nil {
		return nil, err
	}
	return a.issue(user)
}

// Login verifies the provider token and opens a session for an already registered user.
func (a *Accounts) Login(ctx context.Context, idToken string) (*identity.Session, error) {
	id, err := a.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, ok, err := a.CheckUserExists(ctx, id.Phone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotRegistered
	}
	return a.issue(user)
}

func (a *Accounts) issue(user *models.User) (*identity.Session, error) {
	session, err := a.sessions.Issue(user)
	if err != nil {
		return nil, fail("create session", err)
	}
	a.logger.Info("Session issued", zap.String("user_id", user.ID))
	return session, nil
}
