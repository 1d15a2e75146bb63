package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gartstein/tenantprov/internal/provisioning/auth"
	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves the REST routes registered on the gateway mux.
type HTTPHandler struct {
	service ProvisioningController
	logger  *zap.Logger
}

func NewHTTPHandler(service ProvisioningController, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// ProvisionCompany handles POST /v1/companies.
func (h *HTTPHandler) ProvisionCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req models.ProvisionRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, r, e.Invalid("body", "must be a JSON object"))
		return
	}

	result, err := h.service.ProvisionCompany(r.Context(), &req)
	if err != nil {
		h.logger.Warn("Provision company failed",
			zap.Error(err),
			zap.String("request_id", RequestID(r.Context())),
			zap.String("operator", auth.Subject(r.Context())),
		)
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, resultToResponse(result))
}

// GetCompany handles GET /v1/companies/{businessId}.
func (h *HTTPHandler) GetCompany(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	company, err := h.service.GetCompany(r.Context(), pathParams["businessId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, &CompanyResponse{Success: true, Company: companyToDTO(company)})
}

// Health handles GET /healthz.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e.KindOf(err) == e.KindGeneric {
		h.logger.Error("Internal server error",
			zap.Error(err),
			zap.String("request_id", RequestID(r.Context())),
		)
	}
	h.writeJSON(w, r, httpStatus(err), toErrorResponse(err))
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response",
			zap.Error(err),
			zap.String("request_id", RequestID(r.Context())),
		)
	}
}
