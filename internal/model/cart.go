package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity is the largest quantity a single cart line may hold.
// Merges clamp to it; adds and updates beyond it are rejected.
const MaxLineQuantity = 9999

// ValidQuantity reports whether q is an acceptable line quantity.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxLineQuantity
}

// Owner identifies whose cart an operation targets.
// Exactly one of UserID and SessionID is set.
type Owner struct {
	UserID    string
	SessionID string
}

// UserOwner returns the owner key of an authenticated user.
func UserOwner(userID string) Owner {
	return Owner{UserID: userID}
}

// SessionOwner returns the owner key of an anonymous session.
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// Valid reports whether exactly one identity is set.
func (o Owner) Valid() bool {
	return (o.UserID == "") != (o.SessionID == "")
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.UserID != ""
}

// Key returns a stable string form, used for locking and logging.
func (o Owner) Key() string {
	if o.IsUser() {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

// CartLine is one product line in a cart.
//
// ProductName, ProductImage, Options and UnitPrice are copied from the
// catalogue when the line is created and never refreshed afterwards.
type CartLine struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       *string         `json:"-" db:"user_id"`
	SessionID    *string         `json:"-" db:"session_id"`
	ProductID    string          `json:"productId" db:"product_id"`
	ProductName  string          `json:"productName" db:"product_name"`
	ProductImage string          `json:"productImage,omitempty" db:"product_image"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Options      Options         `json:"options" db:"options"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TotalPrice   decimal.Decimal `json:"totalPrice" db:"total_price"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// Signature returns the duplicate-detection key of the line within its cart.
func (l *CartLine) Signature() string {
	return l.ProductID + "|" + l.Options.Signature()
}

// CartSnapshot is the full cart state returned by every cart operation.
type CartSnapshot struct {
	Items     []CartLine      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"itemCount"`
}

// NewSnapshot builds a snapshot from lines already in insertion order.
func NewSnapshot(lines []CartLine) *CartSnapshot {
	snap := &CartSnapshot{
		Items:    make([]CartLine, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	for _, line := range lines {
		snap.Items = append(snap.Items, line)
		snap.Subtotal = snap.Subtotal.Add(line.TotalPrice)
		snap.ItemCount += line.Quantity
	}
	return snap
}

// LineTotal is the single definition of a line's total price.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// AddLineRequest is the payload of POST /api/cart.
type AddLineRequest struct {
	ProductID    string           `json:"productId"`
	ProductName  string           `json:"productName"`
	ProductImage *string          `json:"productImage,omitempty"`
	Quantity     int              `json:"quantity"`
	Options      Options          `json:"options,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unitPrice"`
}

// UpdateQuantityRequest is the payload of PATCH /api/cart/{lineId}.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}
