package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	validSecret = "test-secret"
	operatorID  = "operator-7"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func tokenExpiringAt(t *testing.T, secret string, expiresAt time.Time) string {
	return signedToken(t, secret, jwt.MapClaims{"sub": operatorID, "exp": expiresAt.Unix()})
}

func TestAuthInterceptor(t *testing.T) {
	const getMethod = "/provisioning.v1.ProvisioningService/GetCompany"

	tests := []struct {
		name       string
		fullMethod string
		token      string
		wantCode   codes.Code
	}{
		{
			name:       "protected method valid token",
			fullMethod: ProvisionCompanyMethod,
			token:      tokenExpiringAt(t, validSecret, time.Now().Add(time.Hour)),
			wantCode:   codes.OK,
		},
		{
			name:       "protected method invalid token",
			fullMethod: ProvisionCompanyMethod,
			token:      tokenExpiringAt(t, "wrong-secret", time.Now().Add(time.Hour)),
			wantCode:   codes.Unauthenticated,
		},
		{
			name:       "protected method expired token",
			fullMethod: ProvisionCompanyMethod,
			token:      tokenExpiringAt(t, validSecret, time.Now().Add(-time.Hour)),
			wantCode:   codes.Unauthenticated,
		},
		{
			name:       "protected method token without expiry",
			fullMethod: ProvisionCompanyMethod,
			token:      signedToken(t, validSecret, jwt.MapClaims{"sub": operatorID}),
			wantCode:   codes.Unauthenticated,
		},
		{
			name:       "protected method missing metadata",
			fullMethod: ProvisionCompanyMethod,
			wantCode:   codes.Unauthenticated,
		},
		{
			name:       "unprotected method no token",
			fullMethod: getMethod,
			wantCode:   codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unary := NewAuthInterceptor(validSecret).Unary()

			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", "Bearer "+tt.token))
			}

			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if tt.fullMethod == ProvisionCompanyMethod && Subject(ctx) != operatorID {
					return nil, status.Error(codes.Unauthenticated, "claims not in context")
				}
				return "response", nil
			}

			resp, err := unary(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.fullMethod}, handler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "response", resp)
			}
		})
	}
}

func TestExtractTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name      string
		metadata  metadata.MD
		wantToken string
		wantCode  codes.Code
	}{
		{"valid authorization header", metadata.Pairs("authorization", "Bearer valid-token"), "valid-token", codes.OK},
		{"missing authorization header", metadata.MD{}, "", codes.Unauthenticated},
		{"malformed authorization header", metadata.Pairs("authorization", "Token valid-token"), "", codes.Unauthenticated},
		{"empty bearer token", metadata.Pairs("authorization", "Bearer "), "", codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromMetadata(tt.metadata)
			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(operatorID, validSecret, time.Minute)
	require.NoError(t, err)

	claims, err := validateToken(token, validSecret)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims["sub"])
	assert.Equal(t, Issuer, claims["iss"])

	_, err = validateToken(token, "wrong-secret")
	assert.Error(t, err)

	expired, err := GenerateToken(operatorID, validSecret, -time.Minute)
	require.NoError(t, err)
	_, err = validateToken(expired, validSecret)
	assert.Error(t, err)
}

func TestSubjectWithoutClaims(t *testing.T) {
	assert.Empty(t, Subject(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	var seenSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSubject = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := HTTPMiddleware(next, validSecret)
	valid := tokenExpiringAt(t, validSecret, time.Now().Add(time.Hour))

	tests := []struct {
		name        string
		method      string
		path        string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"provision with token", http.MethodPost, "/v1/companies", "Bearer " + valid, http.StatusNoContent, operatorID},
		{"provision trailing slash", http.MethodPost, "/v1/companies/", "Bearer " + valid, http.StatusNoContent, operatorID},
		{"provision without token", http.MethodPost, "/v1/companies", "", http.StatusUnauthorized, ""},
		{"provision without prefix", http.MethodPost, "/v1/companies", valid, http.StatusUnauthorized, ""},
		{"provision bad token", http.MethodPost, "/v1/companies", "Bearer nope", http.StatusUnauthorized, ""},
		{"read is public", http.MethodGet, "/v1/companies/MD-0001-CO-25-00001", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenSubject = ""
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, seenSubject)
		})
	}
}
