package http

import (
	"net/http"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/service"

	"github.com/gorilla/mux"
)

type userQuery struct {
	Secret   string `validate:"required"`
	UserType string `validate:"omitempty,oneof=master-admin admin client user"`
}

type userActionRequest struct {
	Secret string `json:"secret" validate:"required"`
	UserID int64  `json:"userId" validate:"required,gt=0"`
}

type earningsRequest struct {
	Secret  string                   `json:"secret" validate:"required"`
	Wallets []service.EarningsUpdate `json:"wallets" validate:"required,dive"`
}

// parseUserQuery validates the secret and optional role filter shared by the
// user lookups. It writes the error response itself and reports false on failure.
func (h *Handler) parseUserQuery(w http.ResponseWriter, r *http.Request) (*domain.Role, bool) {
	q := userQuery{
		Secret:   r.URL.Query().Get("secret"),
		UserType: r.URL.Query().Get("userType"),
	}
	if err := h.validate.Struct(q); err != nil {
		writeBadRequest(w, "")
		return nil, false
	}
	if !authorized(q.Secret, h.appSecret) {
		writeUnauthorized(w)
		return nil, false
	}
	if q.UserType == "" {
		return nil, true
	}
	role := domain.Role(q.UserType)
	return &role, true
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	role, ok := h.parseUserQuery(w, r)
	if !ok {
		return
	}
	users, err := h.services.Users.List(r.Context(), role)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeSuccess(w, users, "Users fetched successfully")
}

// getUser returns a null result when no user holds the wallet.
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	role, ok := h.parseUserQuery(w, r)
	if !ok {
		return
	}
	user, err := h.services.Users.GetByWallet(r.Context(), mux.Vars(r)["walletAddress"], role)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if user == nil {
		writeSuccess(w, nil, "User fetched successfully")
		return
	}
	writeSuccess(w, user, "User fetched successfully")
}

func (h *Handler) decodeUserAction(w http.ResponseWriter, r *http.Request) (*userActionRequest, bool) {
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return nil, false
	}
	var req userActionRequest
	if err := h.decode(body, &req); err != nil {
		writeBadRequest(w, "")
		return nil, false
	}
	if !authorized(req.Secret, h.appSecret) {
		writeUnauthorized(w)
		return nil, false
	}
	return &req, true
}

func (h *Handler) renewUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUserAction(w, r)
	if !ok {
		return
	}
	res, err := h.services.Visa.RenewManually(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, err, msgNoUser)
		return
	}
	writeSuccess(w, map[string]any{"userId": res.UserID, "emailId": res.EmailID}, "Business visa renewed successfully")
}

func (h *Handler) expireUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUserAction(w, r)
	if !ok {
		return
	}
	res, err := h.services.Visa.ExpireManually(r.Context(), req.UserID)
	if err != nil {
		writeError(w, r, err, msgNoUser)
		return
	}
	writeSuccess(w, map[string]any{"emailId": res.EmailID, "userId": res.UserID}, "Business visa expired successfully")
}

func (h *Handler) updateEarnings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return
	}
	var req earningsRequest
	if err := h.decode(body, &req); err != nil {
		writeBadRequest(w, "")
		return
	}
	if !authorized(req.Secret, h.appSecret) {
		writeUnauthorized(w)
		return
	}

	res, err := h.services.Visa.UpdateEarnings(r.Context(), req.Wallets)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeSuccess(w, res, "Earnings updated successfully!")
}
