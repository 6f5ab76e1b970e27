package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/broker-one/core/internal/database"
	"github.com/broker-one/core/internal/database/models"
)

func newLogTestDB(t *testing.T) *LogService {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	return NewLogService(db)
}

func TestLogService_WriteAndList(t *testing.T) {
	svc := newLogTestDB(t)

	if err := svc.LogInfo(1, models.LogModuleDraft, "create", "Generated draft 1",
		map[string]interface{}{"confidence": 70}); err != nil {
		t.Fatal(err)
	}
	if err := svc.LogError(1, models.LogModuleMail, "send", "delivery failed", nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.LogInfo(2, models.LogModuleAuth, "login", "User logged in", nil); err != nil {
		t.Fatal(err)
	}

	all, err := svc.ListLogs(LogListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 {
		t.Fatalf("total = %d, want 3", all.Total)
	}

	byUser, err := svc.ListLogs(LogListOptions{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if byUser.Total != 2 {
		t.Errorf("user filter total = %d, want 2", byUser.Total)
	}

	byLevel, err := svc.ListLogs(LogListOptions{Level: "error"})
	if err != nil {
		t.Fatal(err)
	}
	if byLevel.Total != 1 {
		t.Errorf("level filter total = %d, want 1", byLevel.Total)
	}
	if byLevel.Logs[0].Module != string(models.LogModuleMail) {
		t.Errorf("module = %s, want mail", byLevel.Logs[0].Module)
	}

	byModule, err := svc.ListLogs(LogListOptions{Module: string(models.LogModuleAuth)})
	if err != nil {
		t.Fatal(err)
	}
	if byModule.Total != 1 {
		t.Errorf("module filter total = %d, want 1", byModule.Total)
	}
}

func TestLogService_LevelThreshold(t *testing.T) {
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	svc := NewLogServiceWithLevel(db, "warn")

	if err := svc.LogInfo(1, models.LogModuleDraft, "create", "below threshold", nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.LogWarn(1, models.LogModuleDraft, "create", "at threshold", nil); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ListLogs(LogListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, info entries below the threshold must be dropped", result.Total)
	}
}

func TestLogService_LoginHelpers(t *testing.T) {
	svc := newLogTestDB(t)

	if err := svc.LogLogin(1, "broker", "10.0.0.1", true, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.LogLogin(0, "broker", "10.0.0.1", false, errors.New("bad password")); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ListLogs(LogListOptions{Module: string(models.LogModuleAuth)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}
}
