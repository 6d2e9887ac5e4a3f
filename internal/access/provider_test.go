package access

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novamoderation/novamod/internal/db"
	"github.com/novamoderation/novamod/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openProviderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:access_provider_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedAccountWithKey(t *testing.T, conn *gorm.DB, key string, active bool, balance int64) *models.Account {
	t.Helper()
	account := &models.Account{Name: "tester", Active: active, TokenBalance: balance}
	// Select forces the active column: plain Create drops zero-value fields
	// with a default tag, which would silently seed active = true.
	if errCreate := conn.Select("Name", "Active", "TokenBalance").Create(account).Error; errCreate != nil {
		t.Fatalf("create account: %v", errCreate)
	}
	row := &models.APIKey{AccountID: account.ID, Name: "default", APIKey: key, Active: true}
	if errCreate := conn.Create(row).Error; errCreate != nil {
		t.Fatalf("create api key: %v", errCreate)
	}
	return account
}

func TestAuthenticateMissingCredential(t *testing.T) {
	provider := NewProvider(openProviderTestDB(t))
	req := httptest.NewRequest("POST", "/v1/moderate", nil)

	_, errAuth := provider.Authenticate(context.Background(), req)

	if !errors.Is(errAuth, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", errAuth)
	}
}

func TestAuthenticateUnknownKey(t *testing.T) {
	provider := NewProvider(openProviderTestDB(t))
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("x-api-key", "nvm_does_not_exist")

	_, errAuth := provider.Authenticate(context.Background(), req)

	if !errors.Is(errAuth, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", errAuth)
	}
}

func TestAuthenticateRevokedKey(t *testing.T) {
	conn := openProviderTestDB(t)
	seedAccountWithKey(t, conn, "nvm_revoked", true, 10)
	now := time.Now().UTC()
	if errUpdate := conn.Model(&models.APIKey{}).Where("api_key = ?", "nvm_revoked").
		Updates(map[string]any{"active": false, "revoked_at": &now}).Error; errUpdate != nil {
		t.Fatalf("revoke key: %v", errUpdate)
	}

	provider := NewProvider(conn)
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("x-api-key", "nvm_revoked")

	_, errAuth := provider.Authenticate(context.Background(), req)

	if !errors.Is(errAuth, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", errAuth)
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	conn := openProviderTestDB(t)
	account := seedAccountWithKey(t, conn, "nvm_disabled", false, 10)

	var stored models.Account
	if errFind := conn.First(&stored, account.ID).Error; errFind != nil {
		t.Fatalf("load seeded account: %v", errFind)
	}
	if stored.Active {
		t.Fatalf("seed persisted the account as active")
	}

	provider := NewProvider(conn)
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("x-api-key", "nvm_disabled")

	_, errAuth := provider.Authenticate(context.Background(), req)

	if !errors.Is(errAuth, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", errAuth)
	}
}

func TestAuthenticateExhaustedBalance(t *testing.T) {
	conn := openProviderTestDB(t)
	seedAccountWithKey(t, conn, "nvm_broke", true, 0)

	provider := NewProvider(conn)
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("x-api-key", "nvm_broke")

	_, errAuth := provider.Authenticate(context.Background(), req)

	if !errors.Is(errAuth, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", errAuth)
	}
}

func TestAuthenticateSuccessSnapshotsBalance(t *testing.T) {
	conn := openProviderTestDB(t)
	account := seedAccountWithKey(t, conn, "nvm_valid", true, 7)

	provider := NewProvider(conn)
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("Authorization", "Bearer nvm_valid")

	result, errAuth := provider.Authenticate(context.Background(), req)
	if errAuth != nil {
		t.Fatalf("authenticate: %v", errAuth)
	}
	if result.AccountID != account.ID {
		t.Fatalf("unexpected account id %d", result.AccountID)
	}
	if result.TokenBalance != 7 {
		t.Fatalf("unexpected balance %d", result.TokenBalance)
	}

	var row models.APIKey
	if errFind := conn.Where("api_key = ?", "nvm_valid").First(&row).Error; errFind != nil {
		t.Fatalf("reload key: %v", errFind)
	}
	if row.LastUsedAt == nil {
		t.Fatalf("expected last_used_at to be stamped")
	}
}

func TestExtractCredentialHeaderPrecedence(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/moderate", nil)
	req.Header.Set("x-api-key", "nvm_from_header")
	req.Header.Set("Authorization", "Bearer nvm_from_bearer")

	if got := ExtractCredential(req); got != "nvm_from_header" {
		t.Fatalf("expected x-api-key to win, got %s", got)
	}

	req.Header.Del("x-api-key")
	if got := ExtractCredential(req); got != "nvm_from_bearer" {
		t.Fatalf("expected bearer token, got %s", got)
	}

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := ExtractCredential(req); got != "" {
		t.Fatalf("expected empty for non-bearer scheme, got %s", got)
	}
}
