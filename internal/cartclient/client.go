// Package cartclient is the client side of the cart API.
//
// A Client mirrors one visitor's cart. It never computes item counts or
// totals itself: every successful mutation is followed by a full refetch and
// the server snapshot replaces the local state. Only one request runs at a
// time; a second action while one is in flight is refused with ErrBusy.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrBusy is returned when an action starts while another is in flight.
	ErrBusy = errors.New("cart request already in progress")
	// ErrInvalidQuantity is returned for quantities below 1. Nothing is sent.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrRefreshFailed wraps the refetch error when the server accepted a
	// change but the cart could not be reloaded. Repeating the change would
	// apply it twice; call Refresh instead.
	ErrRefreshFailed = errors.New("cart saved but refresh failed")
)

// refetchDelay separates the two refetch attempts after a mutation.
const refetchDelay = 200 * time.Millisecond

// APIError is an error response from the cart API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// State is the observable cart state.
type State struct {
	Items     []model.CartLine
	ItemCount int
	Subtotal  decimal.Decimal
	IsLoading bool
	IsOpen    bool
}

// Notifier shows a failed action to the user.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

// Notify calls f(err).
func (f NotifierFunc) Notify(err error) { f(err) }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its cookie jar, if any,
// keeps the session cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithNotifier sets where failed actions are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client is one visitor's view of their cart.
type Client struct {
	baseURL  string
	http     *http.Client
	notifier Notifier
	logger   zerolog.Logger

	mu        sync.Mutex
	token     string
	state     State
	listeners []func(State)
}

// New creates a client for the API at baseURL. Unless WithHTTPClient is
// given, the client keeps cookies for the lifetime of the visit.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zerolog.Nop(),
		state:   State{Subtotal: decimal.Zero},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http = &http.Client{Jar: jar}
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(error) {})
	}
	c.logger = c.logger.With().Str("component", "cart-client").Logger()

	return c, nil
}

// SetToken replaces the bearer token, e.g. after the visitor logs in or out.
// An empty token makes requests anonymous.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// State returns a copy of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// OnChange registers fn to be called with the new state after every change.
func (c *Client) OnChange(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Refresh replaces the state with the server's cart.
func (c *Client) Refresh(ctx context.Context) error {
	return c.run(ctx, false, nil)
}

// AddItem adds a product configuration and opens the drawer on success.
func (c *Client) AddItem(ctx context.Context, req model.AddLineRequest) error {
	return c.run(ctx, true, func() error {
		return c.send(ctx, http.MethodPost, "/api/cart", req)
	})
}

// UpdateQuantity sets a line's quantity. Quantities below 1 are refused
// without a request; removing a line is always an explicit RemoveItem.
func (c *Client) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	if quantity < 1 {
		c.notifier.Notify(ErrInvalidQuantity)
		return ErrInvalidQuantity
	}
	return c.run(ctx, false, func() error {
		return c.send(ctx, http.MethodPatch, "/api/cart/"+lineID.String(), model.UpdateQuantityRequest{Quantity: &quantity})
	})
}

// RemoveItem deletes a line.
func (c *Client) RemoveItem(ctx context.Context, lineID uuid.UUID) error {
	return c.run(ctx, false, func() error {
		return c.send(ctx, http.MethodDelete, "/api/cart/"+lineID.String(), nil)
	})
}

// ClearCart deletes every line.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.run(ctx, false, func() error {
		return c.send(ctx, http.MethodDelete, "/api/cart", nil)
	})
}

// OpenDrawer shows the cart drawer.
func (c *Client) OpenDrawer() { c.setOpen(func(bool) bool { return true }) }

// CloseDrawer hides the cart drawer.
func (c *Client) CloseDrawer() { c.setOpen(func(bool) bool { return false }) }

// ToggleDrawer flips the cart drawer.
func (c *Client) ToggleDrawer() { c.setOpen(func(open bool) bool { return !open }) }

func (c *Client) setOpen(next func(bool) bool) {
	c.mu.Lock()
	c.state.IsOpen = next(c.state.IsOpen)
	c.mu.Unlock()
	c.emit()
}

// run performs mutate, if any, then refetches the cart. The state changes
// only when both succeed.
func (c *Client) run(ctx context.Context, openOnSuccess bool, mutate func() error) error {
	c.mu.Lock()
	if c.state.IsLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.IsLoading = true
	c.mu.Unlock()
	c.emit()

	snap, err := c.mutateAndFetch(ctx, mutate)

	c.mu.Lock()
	c.state.IsLoading = false
	if err == nil {
		c.state.Items = snap.Items
		c.state.ItemCount = snap.ItemCount
		c.state.Subtotal = snap.Subtotal
		if openOnSuccess {
			c.state.IsOpen = true
		}
	}
	c.mu.Unlock()
	c.emit()

	if err != nil {
		c.logger.Warn().Err(err).Msg("cart request failed")
		c.notifier.Notify(err)
	}
	return err
}

func (c *Client) mutateAndFetch(ctx context.Context, mutate func() error) (*model.CartSnapshot, error) {
	if mutate == nil {
		return c.fetch(ctx, 1)
	}
	if err := mutate(); err != nil {
		return nil, err
	}

	// The change is committed from here on, so a failed reload gets a
	// second chance and is then reported apart from a rejected change.
	snap, err := c.fetch(ctx, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return snap, nil
}

func (c *Client) fetch(ctx context.Context, attempts uint64) (*model.CartSnapshot, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(refetchDelay), attempts-1),
		ctx,
	)

	return backoff.RetryWithData(func() (*model.CartSnapshot, error) {
		var snap model.CartSnapshot
		if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &snap); err != nil {
			c.logger.Debug().Err(err).Msg("cart refetch failed")
			return nil, err
		}
		return &snap, nil
	}, policy)
}

// send performs a mutation. Its response snapshot is ignored in favour of
// the refetch.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) error {
	return c.do(ctx, method, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody model.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Code = errBody.Error
			apiErr.Message = errBody.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode cart: %w", err)
	}
	return nil
}

func (c *Client) snapshotLocked() State {
	s := c.state
	s.Items = append([]model.CartLine(nil), c.state.Items...)
	return s
}

func (c *Client) emit() {
	c.mu.Lock()
	state := c.snapshotLocked()
	listeners := append([]func(State)(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
