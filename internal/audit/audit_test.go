package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/novamoderation/novamod/internal/db"
	"github.com/novamoderation/novamod/internal/models"
	"github.com/novamoderation/novamod/internal/upstream"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:audit_logger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestRecordPersistsFullResult(t *testing.T) {
	conn := openAuditTestDB(t)
	account := &models.Account{Name: "audit-test", Active: true, TokenBalance: 1}
	if errCreate := conn.Create(account).Error; errCreate != nil {
		t.Fatalf("create account: %v", errCreate)
	}

	logger := NewGormLogger(conn)
	raw := json.RawMessage(`{"status":"success","media":{"media_id":"med_9"}}`)
	logger.Record(context.Background(), Entry{
		RequestID: "req-1",
		AccountID: account.ID,
		ImageURL:  "https://example.com/dog.png",
		Debited:   true,
		Result: &upstream.Result{
			Status:          "success",
			FinalDecision:   "OK",
			ConfidenceScore: 0.87,
			TaskCall:        "porn_moderation",
			MediaID:         "med_9",
			Raw:             raw,
		},
	})

	var row models.Moderation
	if errFind := conn.Where("request_id = ?", "req-1").First(&row).Error; errFind != nil {
		t.Fatalf("load audit row: %v", errFind)
	}
	if row.ImageURL != "https://example.com/dog.png" {
		t.Fatalf("unexpected image url: %s", row.ImageURL)
	}
	if row.Status != "success" || row.FinalDecision != "OK" {
		t.Fatalf("unexpected result fields: %+v", row)
	}
	if row.MediaID == nil || *row.MediaID != "med_9" {
		t.Fatalf("unexpected media id: %v", row.MediaID)
	}
	if !row.Debited {
		t.Fatalf("expected debited flag")
	}
	if len(row.RawResponse) == 0 {
		t.Fatalf("expected raw response payload")
	}
}

func TestRecordPartialResultAfterUpstreamFailure(t *testing.T) {
	conn := openAuditTestDB(t)
	account := &models.Account{Name: "audit-partial", Active: true, TokenBalance: 1}
	if errCreate := conn.Create(account).Error; errCreate != nil {
		t.Fatalf("create account: %v", errCreate)
	}

	logger := NewGormLogger(conn)
	logger.Record(context.Background(), Entry{
		RequestID: "req-2",
		AccountID: account.ID,
		ImageURL:  "https://example.com/broken.png",
	})

	var row models.Moderation
	if errFind := conn.Where("request_id = ?", "req-2").First(&row).Error; errFind != nil {
		t.Fatalf("load audit row: %v", errFind)
	}
	if row.MediaID != nil {
		t.Fatalf("expected nil media id for partial entry")
	}
	if row.Debited {
		t.Fatalf("expected no debit for failed upstream call")
	}
}
