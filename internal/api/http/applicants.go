package http

import (
	"errors"
	"net/http"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/service"
)

type submitApplicationRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,min=32,max=44"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	DiscordID     string `json:"discordId" validate:"required"`
	Country       string `json:"country" validate:"required"`
}

type decideApplicantRequest struct {
	Secret      string                 `json:"secret" validate:"required"`
	ApplicantID int64                  `json:"applicantId" validate:"required,gt=0"`
	Status      domain.ApplicantStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

type mintVisaRequest struct {
	ApplicantEmail string `json:"applicantEmail" validate:"required,email"`
}

// paymentWebhook is the subset of the payment provider's success event we use.
type paymentWebhook struct {
	ID   string `json:"id"`
	Data struct {
		Payment struct {
			PaymentLink struct {
				ID string `json:"id"`
			} `json:"paymentLink"`
			PersonalInfo struct {
				Email string `json:"email"`
			} `json:"personalInfo"`
		} `json:"payment"`
	} `json:"data"`
}

func (h *Handler) listApplicants(w http.ResponseWriter, r *http.Request) {
	if !authorized(r.Header.Get("Authorization"), h.appSecret) {
		writeUnauthorized(w)
		return
	}
	applicants, err := h.services.Applicants.List(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if applicants == nil {
		applicants = []domain.Applicant{}
	}
	writeSuccess(w, applicants, "Applications fetched successfully")
}

func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return
	}
	var req submitApplicationRequest
	if err := h.decode(body, &req); err != nil {
		logger.WarnContext(r.Context(), "Invalid application", "error", err)
		writeBadRequest(w, "")
		return
	}

	applicant := &domain.Applicant{
		WalletAddress: req.WalletAddress,
		Name:          req.Name,
		Email:         req.Email,
		DiscordID:     req.DiscordID,
		Country:       req.Country,
	}
	if err := h.services.Applicants.Submit(r.Context(), applicant); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeSuccess(w, map[string]string{"applicantId": applicant.Email}, "Application submitted successfully")
}

func (h *Handler) decideApplicant(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return
	}
	var req decideApplicantRequest
	if err := h.decode(body, &req); err != nil {
		writeBadRequest(w, "")
		return
	}
	if !authorized(req.Secret, h.appSecret) {
		writeUnauthorized(w)
		return
	}

	decision, err := h.services.Applicants.Decide(r.Context(), req.ApplicantID, req.Status)
	if err != nil {
		writeError(w, r, err, msgNoApplicant)
		return
	}
	if decision.Status == domain.ApplicantStatusRejected {
		writeSuccess(w, nil, "Applicant rejected successfully")
		return
	}
	if !decision.MintQueued {
		writeSuccess(w, decision, "Applicant accepted; the mint could not be queued and will be retried by the reconciliation job")
		return
	}
	writeSuccess(w, decision, "Applicant accepted successfully")
}

// mintVisa is the queue consumer endpoint. Pushes are authenticated by a
// signed message token or, for operators, the app secret.
func (h *Handler) mintVisa(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return
	}
	if !h.queuePushAuthorized(r, body) {
		writeUnauthorized(w)
		return
	}
	var req mintVisaRequest
	if err := h.decode(body, &req); err != nil {
		writeBadRequest(w, "")
		return
	}

	applicant, err := h.services.Visa.Mint(r.Context(), req.ApplicantEmail)
	if err != nil && applicant == nil {
		writeError(w, r, err, msgNoApplicant)
		return
	}
	if err != nil {
		// The NFT exists; the claim email is retried by the mint reconciliation job.
		logger.WarnContext(r.Context(), "Visa minted without notification", "email", req.ApplicantEmail, "error", err)
	}
	writeSuccess(w, map[string]any{
		"applicantEmail": applicant.Email,
		"nftId":          applicant.NFTID,
		"claimLink":      applicant.NFTClaimLink,
	}, "Business visa minted successfully")
}

func (h *Handler) queuePushAuthorized(r *http.Request, body []byte) bool {
	if sig := r.Header.Get("Upstash-Signature"); sig != "" && h.signer != nil {
		if _, err := h.signer.Verify(sig, body); err != nil {
			logger.WarnContext(r.Context(), "Rejected queue push", "error", err)
			return false
		}
		return true
	}
	return authorized(r.Header.Get("Authorization"), h.appSecret)
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	if !authorized(r.Header.Get("Authorization"), h.webhookSecret) {
		writeUnauthorized(w)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, "")
		return
	}
	var event paymentWebhook
	if err := h.decode(body, &event); err != nil {
		writeBadRequest(w, "")
		return
	}

	email := event.Data.Payment.PersonalInfo.Email
	res, err := h.services.Visa.RenewFromPayment(r.Context(), service.PaymentEvent{
		EventID:       event.ID,
		PaymentLinkID: event.Data.Payment.PaymentLink.ID,
		Email:         email,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		logger.WarnContext(r.Context(), "Payment webhook rejected", "event_id", event.ID, "error", err)
		writeBadRequest(w, "")
		return
	}
	if err != nil {
		writeError(w, r, err, msgNoUser)
		return
	}
	writeSuccess(w, map[string]string{"userEmail": res.UserEmail}, "Business visa renewed successfully")
}
