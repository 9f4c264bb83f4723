package http

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"business-visa-backend/internal/config"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/security"
	"business-visa-backend/internal/service"
	"business-visa-backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// Services holds the business services exposed over HTTP.
type Services struct {
	Applicants service.ApplicantService
	Visa       service.VisaService
	Users      service.UserService
}

// Handler serves the v1 REST API.
type Handler struct {
	services      Services
	signer        security.MessageSigner
	appSecret     string
	webhookSecret string
	validate      *validator.Validate
}

func NewHandler(cfg *config.Config, services Services, signer security.MessageSigner) *Handler {
	return &Handler{
		services:      services,
		signer:        signer,
		appSecret:     cfg.App.Secret,
		webhookSecret: cfg.Sphere.WebhookSecret,
		validate:      validator.New(),
	}
}

// NewRouter builds the HTTP handler tree. files may be nil when images are
// hosted elsewhere.
func NewRouter(cfg *config.Config, services Services, signer security.MessageSigner, files storage.FileReader) http.Handler {
	h := NewHandler(cfg, services, signer)
	limiter := NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.TrustedProxies)

	router := mux.NewRouter()
	router.Use(requestLogging, recordMetrics)
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	router.HandleFunc("/", h.root).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if files != nil {
		RegisterImageRoutes(router, files)
	}

	v1 := router.PathPrefix("/v1").Subrouter()

	applicants := v1.PathPrefix("/applicants").Subrouter()
	applicants.HandleFunc("", h.listApplicants).Methods(http.MethodGet)
	applicants.Handle("", limiter.Handler(http.HandlerFunc(h.submitApplication))).Methods(http.MethodPost)
	applicants.HandleFunc("", h.decideApplicant).Methods(http.MethodPut)
	applicants.HandleFunc("/visa", h.mintVisa).Methods(http.MethodPost)
	applicants.HandleFunc("/renew", h.paymentWebhook).Methods(http.MethodPost)

	users := v1.PathPrefix("/users").Subrouter()
	users.HandleFunc("", h.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/renew", h.renewUser).Methods(http.MethodPut)
	users.HandleFunc("/expire", h.expireUser).Methods(http.MethodPut)
	users.HandleFunc("/earnings", h.updateEarnings).Methods(http.MethodPost)
	users.HandleFunc("/{walletAddress}", h.getUser).Methods(http.MethodGet)

	return withCORS(router)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, nil, "Business visa API server running successfully!")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusNotFound, msgNotFound)
}

// authorized compares a presented secret with the configured one in
// constant time. An unset secret never matches.
func authorized(presented, want string) bool {
	if want == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(want)) == 1
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decode parses a JSON body into dst and validates it.
func (h *Handler) decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}
