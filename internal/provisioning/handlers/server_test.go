package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/tenantprov/internal/provisioning/auth"
	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

const provisionBody = `{
	"companyName": "Acme Mobile Detailing",
	"module": "Mobile Detailing",
	"adminEmail": "owner@acme.test",
	"adminPassword": "s3cret!"
}`

func newHTTPTestServer(t *testing.T, ctrl ProvisioningController, limiter *rate.Limiter) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	s := NewServer(50051, 8080, zap.New(core))
	require.NoError(t, s.RegisterHTTPHandlers(NewHTTPHandler(ctrl, zaptest.NewLogger(t)), testSecret, limiter))
	return s, logs
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("ops@tenantprov.test", testSecret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(s *Server, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_RegisterHTTPHandlers(t *testing.T) {
	s, _ := newHTTPTestServer(t, &mockProvisioningController{}, nil)
	assert.NotNil(t, s.httpServer.Handler)
	assert.Equal(t, ":8080", s.httpServer.Addr)
}

func TestHTTP_ProvisionCompany(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		auth       bool
		serviceErr error
		wantStatus int
		wantType   string
		wantField  string
	}{
		{name: "created", body: provisionBody, auth: true, wantStatus: http.StatusCreated},
		{name: "missing token", body: provisionBody, wantStatus: http.StatusUnauthorized},
		{
			name: "malformed body", body: `{"companyName":`, auth: true,
			wantStatus: http.StatusBadRequest, wantType: "validation", wantField: "body",
		},
		{
			name: "validation", body: provisionBody, auth: true,
			serviceErr: e.Invalid("adminEmail", "must be a valid email address"),
			wantStatus: http.StatusBadRequest, wantType: "validation", wantField: "adminEmail",
		},
		{
			name: "duplicate identifier", body: provisionBody, auth: true,
			serviceErr: e.Duplicate("id", nil),
			wantStatus: http.StatusConflict, wantType: "validation", wantField: "id",
		},
		{
			name: "connection", body: provisionBody, auth: true,
			serviceErr: e.ErrUnavailable,
			wantStatus: http.StatusServiceUnavailable, wantType: "connection",
		},
		{
			name: "timeout", body: provisionBody, auth: true,
			serviceErr: e.ErrTimeout,
			wantStatus: http.StatusGatewayTimeout, wantType: "timeout",
		},
		{
			name: "generic", body: provisionBody, auth: true,
			serviceErr: assert.AnError,
			wantStatus: http.StatusInternalServerError, wantType: "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockProvisioningController{
				provisionFunc: func(_ context.Context, req *models.ProvisionRequest) (*models.ProvisionResult, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return sampleResult(req), nil
				},
			}
			s, _ := newHTTPTestServer(t, ctrl, nil)

			authorization := ""
			if tt.auth {
				authorization = bearer(t)
			}
			rec := doRequest(s, http.MethodPost, "/v1/companies", tt.body, authorization)
			assert.Equal(t, tt.wantStatus, rec.Code)

			switch {
			case tt.wantStatus == http.StatusCreated:
				var resp ProvisionResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.True(t, resp.Success)
				assert.Equal(t, "MD-0001-CO-25-00001", resp.Company.BusinessID)
				assert.Equal(t, "owner@acme.test", resp.Admin.Email)
				assert.Empty(t, resp.Warnings)
			case tt.wantType != "":
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantType, resp.ErrorType)
				assert.Equal(t, tt.wantField, resp.Field)
				assert.NotEmpty(t, resp.Message)
			}
		})
	}
}

func TestHTTP_GetCompany(t *testing.T) {
	ctrl := &mockProvisioningController{
		getCompanyFunc: func(_ context.Context, businessID string) (*models.Company, error) {
			if businessID == "FW-0003-CO-25-00011" {
				return &models.Company{ID: uuid.New(), BusinessID: businessID, Name: "Fleet Co"}, nil
			}
			return nil, e.ErrNotFound
		},
	}
	s, _ := newHTTPTestServer(t, ctrl, nil)

	rec := doRequest(s, http.MethodGet, "/v1/companies/FW-0003-CO-25-00011", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CompanyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Fleet Co", resp.Company.Name)

	rec = doRequest(s, http.MethodGet, "/v1/companies/FW-9999-CO-25-00099", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "not_found", errResp.ErrorType)
}

func TestHTTP_Health(t *testing.T) {
	s, _ := newHTTPTestServer(t, &mockProvisioningController{}, nil)
	rec := doRequest(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHTTP_RequestID(t *testing.T) {
	var seen string
	ctrl := &mockProvisioningController{
		getCompanyFunc: func(ctx context.Context, businessID string) (*models.Company, error) {
			seen = RequestID(ctx)
			return &models.Company{ID: uuid.New(), BusinessID: businessID}, nil
		},
	}
	s, logs := newHTTPTestServer(t, ctrl, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/companies/MD-0001-CO-25-00001", nil)
	req.Header.Set(RequestIDHeader, "trace-abc")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "trace-abc", seen)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "trace-abc", ctx["request_id"])
	assert.Equal(t, int64(http.StatusOK), ctx["status"])

	rec = doRequest(s, http.MethodGet, "/healthz", "", "")
	minted := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(minted)
	assert.NoError(t, err, "a request id is minted when the caller sends none")
}

func TestHTTP_RateLimitsWritesOnly(t *testing.T) {
	ctrl := &mockProvisioningController{
		provisionFunc: func(_ context.Context, req *models.ProvisionRequest) (*models.ProvisionResult, error) {
			return sampleResult(req), nil
		},
	}
	s, _ := newHTTPTestServer(t, ctrl, rate.NewLimiter(rate.Every(time.Hour), 1))
	token := bearer(t)

	rec := doRequest(s, http.MethodPost, "/v1/companies", provisionBody, token)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/companies", provisionBody, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = doRequest(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
