// Package session binds HTTP requests to the cart they operate on.
//
// Anonymous visitors are identified by a session id kept in a signed cookie.
// When a visitor authenticates, the guest cart of their session is merged
// into their user cart exactly once per login.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// Session value keys.
const (
	keySessionID = "sid"
	keyBoundUser = "bound_user"
)

// DefaultMergeTTL bounds how long a merge guard outlives a crashed holder.
const DefaultMergeTTL = 30 * time.Second

// Merger moves a guest cart into a user cart.
type Merger interface {
	MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (repository.MergeResult, error)
}

// Binder resolves the cart owner of each request.
type Binder struct {
	store      sessions.Store
	cookieName string
	merger     Merger
	guard      MergeGuard
	mergeTTL   time.Duration
	logger     zerolog.Logger
}

// NewBinder creates a binder storing session ids in a signed cookie.
func NewBinder(cfg config.SessionConfig, merger Merger, guard MergeGuard, logger zerolog.Logger) *Binder {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return NewBinderWithStore(store, cfg.CookieName, merger, guard, logger)
}

// NewBinderWithStore creates a binder on an existing session store.
func NewBinderWithStore(store sessions.Store, cookieName string, merger Merger, guard MergeGuard, logger zerolog.Logger) *Binder {
	return &Binder{
		store:      store,
		cookieName: cookieName,
		merger:     merger,
		guard:      guard,
		mergeTTL:   DefaultMergeTTL,
		logger:     logger.With().Str("component", "session-binder").Logger(),
	}
}

// Resolve returns the owner for the request, issuing a session id when the
// visitor has none and merging the guest cart on the first authenticated
// request after a login.
//
// The session cookie is written to w when it changed, so Resolve must run
// before anything writes the response body.
func (b *Binder) Resolve(w http.ResponseWriter, r *http.Request) (model.Owner, error) {
	sess, err := b.store.Get(r, b.cookieName)
	if err != nil {
		// Tampered or rotated cookies decode as a fresh session.
		b.logger.Warn().Err(err).Msg("discarding unreadable session cookie")
	}

	dirty := false
	issued := false

	sessionID, _ := sess.Values[keySessionID].(string)
	if sessionID == "" {
		sessionID = uuid.NewString()
		sess.Values[keySessionID] = sessionID
		dirty = true
		issued = true
	}

	boundUser, _ := sess.Values[keyBoundUser].(string)
	userID := middleware.UserIDFromContext(r.Context())

	var owner model.Owner
	switch {
	case userID == "":
		owner = model.SessionOwner(sessionID)
		if boundUser != "" {
			// Logged out: the next login must merge again.
			delete(sess.Values, keyBoundUser)
			dirty = true
		}

	case userID == boundUser:
		owner = model.UserOwner(userID)

	default:
		owner = model.UserOwner(userID)

		// A freshly issued session cannot own a cart yet.
		merged := true
		if !issued {
			merged, err = b.MergeOnLogin(r.Context(), sessionID, userID)
			if err != nil {
				return model.Owner{}, err
			}
		}
		if merged {
			sess.Values[keyBoundUser] = userID
			dirty = true
		}
	}

	if dirty {
		if err := sess.Save(r, w); err != nil {
			b.logger.Error().Err(err).Msg("failed to save session")
			return model.Owner{}, fmt.Errorf("failed to save session: %w", err)
		}
	}

	return owner, nil
}

// MergeOnLogin merges the session cart into the user's cart under the merge
// guard. It reports false without merging when another request holds the
// guard for the same login.
func (b *Binder) MergeOnLogin(ctx context.Context, sessionID, userID string) (bool, error) {
	key := sessionID + ":" + userID

	acquired, err := b.guard.Acquire(ctx, key, b.mergeTTL)
	if err != nil {
		b.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to acquire merge guard")
		return false, fmt.Errorf("%w: merge guard: %w", model.ErrStorage, err)
	}
	if !acquired {
		b.logger.Debug().
			Str("session_id", sessionID).
			Str("user_id", userID).
			Msg("merge already in progress")
		return false, nil
	}

	// A merge of an already merged session moves nothing, so the hold only
	// needs to cover the merge itself.
	defer func() {
		if relErr := b.guard.Release(context.WithoutCancel(ctx), key); relErr != nil {
			b.logger.Error().Err(relErr).Str("session_id", sessionID).Msg("failed to release merge guard")
		}
	}()

	result, err := b.merger.MergeSessionIntoUser(ctx, sessionID, userID)
	if err != nil {
		return false, err
	}

	b.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Int("moved", result.Moved).
		Int("combined", result.Combined).
		Msg("guest cart merged on login")

	return true, nil
}

// Middleware resolves the owner and stores it in the request context.
// Failures are passed to onError, which writes the response.
func (b *Binder) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := b.Resolve(w, r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

type ownerKey struct{}

var errNoOwner = errors.New("no cart owner in request context")

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner model.Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner stored by Middleware.
func OwnerFromContext(ctx context.Context) (model.Owner, error) {
	owner, ok := ctx.Value(ownerKey{}).(model.Owner)
	if !ok || !owner.Valid() {
		return model.Owner{}, errNoOwner
	}
	return owner, nil
}
