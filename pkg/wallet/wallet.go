// Package wallet holds the wallet bookkeeping domain: the entity, the
// storage surface, and request validation. Every operation is scoped to
// the owning user; a wallet is never visible outside its owner's account.
package wallet

import (
	"context"
	"time"

	"github.com/walletvault/walletvault/pkg/auth"
)

// Wallet is an address bookmark owned by a single user. The (user, chain,
// address) triple is unique per user, enforced by the storage layer.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Tag       string    `json:"tag"`
	Chain     string    `json:"chain"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the persistence surface for wallets. Reads and writes always
// carry the owning user's ID so cross-user access is impossible at the
// query level, not just the handler level.
type Store interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, userID, id string) (*Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*Wallet, error)
	UpdateWallet(ctx context.Context, w *Wallet) error
	DeleteWallet(ctx context.Context, userID, id string) error
}

// CreateRequest is the payload of POST /api/wallet
type CreateRequest struct {
	Tag     string `json:"tag"`
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

// Validate checks that the chain and address are present. The tag is
// optional.
func (r *CreateRequest) Validate() error {
	if r.Chain == "" {
		return auth.BadRequest("Chain is required")
	}
	if r.Address == "" {
		return auth.BadRequest("Address is required")
	}
	return nil
}

// UpdateRequest is the payload of PUT /api/wallet/{id}. All fields are
// optional but at least one must be set.
type UpdateRequest struct {
	Tag     *string `json:"tag"`
	Chain   *string `json:"chain"`
	Address *string `json:"address"`
}

// Empty reports whether the update carries no fields at all
func (r *UpdateRequest) Empty() bool {
	return r.Tag == nil && r.Chain == nil && r.Address == nil
}

// Apply copies the set fields onto the wallet
func (r *UpdateRequest) Apply(w *Wallet) {
	if r.Tag != nil {
		w.Tag = *r.Tag
	}
	if r.Chain != nil {
		w.Chain = *r.Chain
	}
	if r.Address != nil {
		w.Address = *r.Address
	}
}
