package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/novamoderation/novamod/internal/models"

	"gorm.io/gorm"
)

// ErrNoCredentials indicates the request carried no API key at all.
var ErrNoCredentials = errors.New("Missing API key")

// ErrInvalidCredential indicates the presented API key is unknown, revoked,
// or bound to a disabled account.
var ErrInvalidCredential = errors.New("Invalid or revoked API key")

// ErrQuotaExhausted indicates the account has no moderation tokens left.
var ErrQuotaExhausted = errors.New("Insufficient token balance")

// Result describes a successfully authenticated request.
type Result struct {
	AccountID    uint64
	APIKeyID     uint64
	AccountName  string
	TokenBalance int64
}

// Provider authenticates requests using API keys stored in the database.
// A single lookup resolves the credential to an account, confirms the
// account is active, and snapshots the token balance for the quota check.
type Provider struct {
	db *gorm.DB
}

// NewProvider constructs a Provider backed by GORM.
func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

// Authenticate validates the request API key and returns the access result.
// The balance in the result is a snapshot; the debit re-checks it atomically.
func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	if p == nil || p.db == nil || r == nil {
		return nil, fmt.Errorf("access: provider not initialized")
	}

	token := ExtractCredential(r)
	if token == "" {
		return nil, ErrNoCredentials
	}

	var apiKey models.APIKey
	err := p.db.WithContext(ctx).
		Preload("Account").
		Where("api_key = ? AND active = ? AND revoked_at IS NULL", token, true).
		First(&apiKey).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrInvalidCredential
	default:
		return nil, fmt.Errorf("access: query failed: %w", err)
	}

	if apiKey.Account == nil || !apiKey.Account.Active {
		return nil, ErrInvalidCredential
	}
	if apiKey.Account.TokenBalance <= 0 {
		return nil, ErrQuotaExhausted
	}

	now := time.Now().UTC()
	_ = p.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", apiKey.ID).
		Update("last_used_at", &now).Error

	return &Result{
		AccountID:    apiKey.AccountID,
		APIKeyID:     apiKey.ID,
		AccountName:  apiKey.Account.Name,
		TokenBalance: apiKey.Account.TokenBalance,
	}, nil
}

// ExtractCredential pulls an API key from the x-api-key header or a bearer
// Authorization header. The dedicated header wins when both are present.
func ExtractCredential(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-api-key")); v != "" {
		return v
	}
	val := strings.TrimSpace(r.Header.Get("Authorization"))
	if val == "" {
		return ""
	}
	const prefix = "Bearer "
	if strings.HasPrefix(val, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(val, prefix))
	}
	return ""
}
