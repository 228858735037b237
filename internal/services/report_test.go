package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

type memReportRepo struct {
	stored map[uuid.UUID]*types.ReportRecord
	saves  int
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{stored: map[uuid.UUID]*types.ReportRecord{}}
}

func (m *memReportRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error) {
	m.stored[record.SessionID] = record
	return record, nil
}

func (m *memReportRepo) Save(ctx context.Context, tx *gorm.DB, record *types.ReportRecord) (*types.ReportRecord, error) {
	m.saves++
	m.stored[record.SessionID] = record
	return record, nil
}

func (m *memReportRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.ReportRecord, error) {
	return m.stored[sessionID], nil
}

func testAssembler(t *testing.T) (*ReportAssembler, *standards.Catalog) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	catalog, err := standards.Load()
	if err != nil {
		t.Fatalf("standards.Load: %v", err)
	}
	ra, err := NewReportAssembler(log, catalog, nil)
	if err != nil {
		t.Fatalf("NewReportAssembler: %v", err)
	}
	return ra, catalog
}

func completedSession(t *testing.T, catalog *standards.Catalog) *types.FeedbackSession {
	t.Helper()
	now := time.Now().UTC()
	email := "preceptor@health.ca"
	session := &types.FeedbackSession{
		ID:           uuid.New(),
		PreceptorID:  uuid.New(),
		State:        types.SessionStateCompleted,
		ContactEmail: &email,
		CompletedAt:  &now,
	}
	// Records inserted in reverse to prove output follows catalog order.
	for i := catalog.Len() - 1; i >= 0; i-- {
		std, _ := catalog.ByIndex(i)
		summary := "summary for " + std.Name
		suggestion := "suggestion for " + std.Name
		record := types.StandardRecord{
			SessionID:  session.ID,
			StandardID: std.ID,
			Summary:    &summary,
			Suggestion: &suggestion,
			Confirmed:  true,
		}
		record.SetKeyPoints([]string{"point one", "point two"})
		session.Records = append(session.Records, record)
	}
	return session
}

func TestAssembleOrdersEntriesByCatalog(t *testing.T) {
	ra, catalog := testAssembler(t)
	session := completedSession(t, catalog)

	report, err := ra.Assemble(context.Background(), session)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(report.Entries) != catalog.Len() {
		t.Fatalf("entries = %d, want %d", len(report.Entries), catalog.Len())
	}
	for i, entry := range report.Entries {
		std, _ := catalog.ByIndex(i)
		if entry.StandardID != std.ID {
			t.Fatalf("entry %d has standard %d, want %d", i, entry.StandardID, std.ID)
		}
		if entry.StandardName != std.FullName {
			t.Fatalf("entry %d name = %q, want %q", i, entry.StandardName, std.FullName)
		}
	}
	if report.ContactEmail != "preceptor@health.ca" {
		t.Fatalf("contact email = %q", report.ContactEmail)
	}
}

func TestAssembleRejectsIncompleteSessions(t *testing.T) {
	ra, catalog := testAssembler(t)

	t.Run("not_completed", func(t *testing.T) {
		session := completedSession(t, catalog)
		session.State = types.SessionStateCollectingFeedback
		_, err := ra.Assemble(context.Background(), session)
		var transition *InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
	})

	t.Run("unconfirmed_record", func(t *testing.T) {
		session := completedSession(t, catalog)
		session.Records[0].Confirmed = false
		_, err := ra.Assemble(context.Background(), session)
		var incomplete *IncompleteSessionError
		if !errors.As(err, &incomplete) {
			t.Fatalf("expected IncompleteSessionError, got %v", err)
		}
	})

	t.Run("missing_record", func(t *testing.T) {
		session := completedSession(t, catalog)
		session.Records = session.Records[:len(session.Records)-1]
		_, err := ra.Assemble(context.Background(), session)
		var incomplete *IncompleteSessionError
		if !errors.As(err, &incomplete) {
			t.Fatalf("expected IncompleteSessionError, got %v", err)
		}
	})
}

func TestAssembleBackfillsContactEmailAfterCapture(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	catalog, err := standards.Load()
	if err != nil {
		t.Fatalf("standards.Load: %v", err)
	}
	reports := newMemReportRepo()
	ra, err := NewReportAssembler(log, catalog, reports)
	if err != nil {
		t.Fatalf("NewReportAssembler: %v", err)
	}

	session := completedSession(t, catalog)
	session.ContactEmail = nil

	// A report fetched before the email arrives persists without an address.
	first, err := ra.Assemble(context.Background(), session)
	if err != nil {
		t.Fatalf("Assemble before email: %v", err)
	}
	if first.ContactEmail != "" {
		t.Fatalf("contact email = %q before capture", first.ContactEmail)
	}

	email := "preceptor@health.ca"
	session.ContactEmail = &email

	second, err := ra.Assemble(context.Background(), session)
	if err != nil {
		t.Fatalf("Assemble after email: %v", err)
	}
	if second.ContactEmail != email {
		t.Fatalf("contact email = %q, want %q", second.ContactEmail, email)
	}
	if len(second.Entries) != len(first.Entries) {
		t.Fatalf("entries changed across assemblies: %d vs %d", len(second.Entries), len(first.Entries))
	}
	if reports.saves != 1 {
		t.Fatalf("stored payload saves = %d, want 1", reports.saves)
	}

	// The persisted artifact now carries the address too.
	stored, err := reports.GetBySessionID(context.Background(), nil, session.ID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	var persisted types.FinalReport
	if err := json.Unmarshal(stored.Payload, &persisted); err != nil {
		t.Fatalf("unmarshal stored payload: %v", err)
	}
	if persisted.ContactEmail != email {
		t.Fatalf("persisted contact email = %q, want %q", persisted.ContactEmail, email)
	}

	// A third call needs no further writes.
	if _, err := ra.Assemble(context.Background(), session); err != nil {
		t.Fatalf("Assemble third call: %v", err)
	}
	if reports.saves != 1 {
		t.Fatalf("stored payload saves = %d after third call, want 1", reports.saves)
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	ra, catalog := testAssembler(t)
	session := completedSession(t, catalog)

	report, err := ra.Assemble(context.Background(), session)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := ra.RenderJSON(report)
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	var decoded types.FinalReport
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal rendered report: %v", err)
	}
	if decoded.SessionID != report.SessionID {
		t.Fatalf("session id = %s, want %s", decoded.SessionID, report.SessionID)
	}
	if len(decoded.Entries) != len(report.Entries) {
		t.Fatalf("entries = %d, want %d", len(decoded.Entries), len(report.Entries))
	}
}

func TestRenderCSVShape(t *testing.T) {
	ra, catalog := testAssembler(t)
	session := completedSession(t, catalog)

	report, err := ra.Assemble(context.Background(), session)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := ra.RenderCSV(report)
	if err != nil {
		t.Fatalf("RenderCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("parse rendered csv: %v", err)
	}
	if len(rows) != catalog.Len()+1 {
		t.Fatalf("rows = %d, want %d", len(rows), catalog.Len()+1)
	}
	if rows[0][0] != "session_id" || rows[0][2] != "standard_name" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	for i, row := range rows[1:] {
		std, _ := catalog.ByIndex(i)
		if row[2] != std.FullName {
			t.Fatalf("row %d standard = %q, want %q", i, row[2], std.FullName)
		}
		if row[5] != "point one; point two" {
			t.Fatalf("row %d key points = %q", i, row[5])
		}
	}
}
