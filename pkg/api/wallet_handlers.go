package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/walletvault/walletvault/pkg/httputil"
	"github.com/walletvault/walletvault/pkg/middleware"
	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/storage"
	"github.com/walletvault/walletvault/pkg/wallet"
)

// WalletHandlers serves the wallet CRUD endpoints. Every operation runs
// behind the auth gate and is scoped to the authenticated user.
type WalletHandlers struct {
	store  wallet.Store
	logger *observability.Logger
}

// NewWalletHandlers creates the wallet endpoint handlers
func NewWalletHandlers(store wallet.Store, logger *observability.Logger) *WalletHandlers {
	return &WalletHandlers{store: store, logger: logger}
}

func (h *WalletHandlers) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := middleware.GetIdentity(r)
	if !ok || identity.ID == "" {
		httputil.WriteAPIError(w, r, http.StatusUnauthorized, "User not found")
		return "", false
	}
	return identity.ID, true
}

// Create handles POST /api/wallet
func (h *WalletHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req wallet.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := time.Now().UTC()
	entry := &wallet.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Tag:       req.Tag,
		Chain:     req.Chain,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateWallet(r.Context(), entry); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httputil.WriteBadRequest(w, r, "Wallet already exists")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("wallet create failed")
		httputil.WriteInternalError(w, r)
		return
	}

	httputil.WriteCreated(w, r, "Wallet created successfully", entry) //nolint:errcheck
}

// List handles GET /api/wallet
func (h *WalletHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	wallets, err := h.store.ListWallets(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("wallet list failed")
		httputil.WriteAPIError(w, r, http.StatusInternalServerError, "Failed to fetch wallets")
		return
	}

	httputil.WriteSuccess(w, r, "Wallets fetched successfully", wallets) //nolint:errcheck
}

// Get handles GET /api/wallet/{id}
func (h *WalletHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.store.GetWallet(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, r, "Wallet not found")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("wallet fetch failed")
		httputil.WriteAPIError(w, r, http.StatusInternalServerError, "Failed to fetch wallet")
		return
	}

	httputil.WriteSuccess(w, r, "Wallet fetched successfully", entry) //nolint:errcheck
}

// Update handles PUT /api/wallet/{id}
func (h *WalletHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req wallet.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Empty() {
		httputil.WriteBadRequest(w, r, "At least one field (tag, chain, or address) is required to update")
		return
	}

	entry, err := h.store.GetWallet(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, r, "Wallet not found")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("wallet fetch failed")
		httputil.WriteAPIError(w, r, http.StatusInternalServerError, "Failed to update wallet")
		return
	}

	req.Apply(entry)
	entry.UpdatedAt = time.Now().UTC()

	if err := h.store.UpdateWallet(r.Context(), entry); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			httputil.WriteNotFound(w, r, "Wallet not found")
		case errors.Is(err, storage.ErrAlreadyExists):
			httputil.WriteBadRequest(w, r, "Wallet already exists")
		default:
			h.logger.WithError(err).WithField("user_id", userID).Error("wallet update failed")
			httputil.WriteAPIError(w, r, http.StatusInternalServerError, "Failed to update wallet")
		}
		return
	}

	httputil.WriteSuccess(w, r, "Wallet updated successfully", entry) //nolint:errcheck
}

// Delete handles DELETE /api/wallet/{id}
func (h *WalletHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteWallet(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, r, "Wallet not found")
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("wallet delete failed")
		httputil.WriteAPIError(w, r, http.StatusInternalServerError, "Failed to delete wallet")
		return
	}

	httputil.WriteSuccess(w, r, "Wallet deleted successfully", true) //nolint:errcheck
}
