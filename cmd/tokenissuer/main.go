// This is a **mock authentication service** that hands out operator JWTs
// for the provisioning API, simulating an identity provider.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/tenantprov/internal/provisioning/auth"
	"github.com/gartstein/tenantprov/internal/provisioning/config"
	"go.uber.org/zap"
)

const (
	defaultSubject = "operator"
	tokenTTL       = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

// tokenHandler issues a token for the ?subject= query value.
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := r.URL.Query().Get("subject")
		if subject == "" {
			subject = defaultSubject
		}

		token, err := auth.GenerateToken(subject, secret, tokenTTL)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token}); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
			return
		}
		logger.Info("Issued token", zap.String("subject", subject))
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(cfg.JWTSecret, logger))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.TokenIssuerPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Token issuer running", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("token issuer stopped", zap.Error(err))
	}
}
