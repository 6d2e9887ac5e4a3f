package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/novamoderation/novamod/internal/cache"
	"github.com/novamoderation/novamod/internal/config"
	"github.com/novamoderation/novamod/internal/db"
	internalhttp "github.com/novamoderation/novamod/internal/http"
	"github.com/novamoderation/novamod/internal/logging"
	"github.com/novamoderation/novamod/internal/models"
	"github.com/novamoderation/novamod/internal/security"
	"github.com/novamoderation/novamod/internal/upstream"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the moderation gateway with database-backed components.
func RunServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	classifier := upstream.NewClient(cfg.Upstream)
	snapshots := cache.NewSnapshotCache(cfg.Redis)
	router := internalhttp.NewRouter(cfg, conn, classifier, snapshots)

	server := &nethttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("moderation gateway listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, nethttp.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// KeygenParams holds inputs for API key provisioning.
type KeygenParams struct {
	AccountName string
	Email       string
	KeyName     string
	Tokens      int64
}

// Keygen provisions an account with an initial token balance and prints a
// freshly generated API key. Existing accounts are matched by name.
func Keygen(ctx context.Context, configPath string, params KeygenParams) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return "", err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return "", errMigrate
	}

	if params.AccountName == "" {
		return "", fmt.Errorf("app: account name is required")
	}
	if params.KeyName == "" {
		params.KeyName = "default"
	}

	token, errGenerate := security.GenerateAPIKey()
	if errGenerate != nil {
		return "", errGenerate
	}

	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		errFind := tx.Where("name = ?", params.AccountName).First(&account).Error
		switch {
		case errFind == nil:
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			account = models.Account{
				Name:         params.AccountName,
				Email:        params.Email,
				Active:       true,
				TokenBalance: 0,
			}
			if errCreate := tx.Create(&account).Error; errCreate != nil {
				return fmt.Errorf("app: create account: %w", errCreate)
			}
		default:
			return fmt.Errorf("app: lookup account: %w", errFind)
		}

		if params.Tokens > 0 {
			if errCredit := tx.Model(&models.Account{}).
				Where("id = ?", account.ID).
				Update("token_balance", gorm.Expr("token_balance + ?", params.Tokens)).Error; errCredit != nil {
				return fmt.Errorf("app: credit tokens: %w", errCredit)
			}
		}

		row := models.APIKey{
			AccountID: account.ID,
			Name:      params.KeyName,
			APIKey:    token,
			Active:    true,
		}
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return fmt.Errorf("app: create api key: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return "", errTx
	}

	return token, nil
}
