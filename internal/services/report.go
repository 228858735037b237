package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// ReportAssembler turns a completed session into the final report artifact
// and renders it for export. Assembly is idempotent: the first successful
// assembly is persisted and later calls return the stored payload.
type ReportAssembler struct {
	log     *logger.Logger
	catalog *standards.Catalog
	reports repos.ReportRepo
}

func NewReportAssembler(log *logger.Logger, catalog *standards.Catalog, reports repos.ReportRepo) (*ReportAssembler, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, &ConfigurationError{Detail: "standards catalog required"}
	}
	return &ReportAssembler{
		log:     log.With("service", "ReportAssembler"),
		catalog: catalog,
		reports: reports,
	}, nil
}

// Assemble builds the report for a completed session with every standard
// confirmed. Entries come out in catalog order regardless of the order
// records were stored.
func (ra *ReportAssembler) Assemble(ctx context.Context, session *types.FeedbackSession) (*types.FinalReport, error) {
	if session.State != types.SessionStateCompleted {
		return nil, &InvalidTransitionError{
			SessionID: session.ID,
			State:     string(session.State),
		}
	}

	if ra.reports != nil {
		stored, err := ra.reports.GetBySessionID(ctx, nil, session.ID)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			var report types.FinalReport
			if err := json.Unmarshal(stored.Payload, &report); err != nil {
				return nil, fmt.Errorf("decoding stored report for session %s: %w", session.ID, err)
			}
			// A report assembled before the email was captured carries an
			// empty contact address; pick it up once the session has one.
			if report.ContactEmail == "" && session.ContactEmail != nil && *session.ContactEmail != "" {
				report.ContactEmail = *session.ContactEmail
				payload, err := json.Marshal(&report)
				if err != nil {
					return nil, err
				}
				stored.Payload = datatypes.JSON(payload)
				if _, err := ra.reports.Save(ctx, nil, stored); err != nil {
					return nil, err
				}
			}
			return &report, nil
		}
	}

	report := &types.FinalReport{
		SessionID:   session.ID,
		GeneratedAt: time.Now().UTC(),
	}
	if session.ContactEmail != nil {
		report.ContactEmail = *session.ContactEmail
	}

	for _, std := range ra.catalog.All() {
		record := session.RecordForStandard(std.ID)
		if record == nil || !record.Confirmed || record.Summary == nil || record.Suggestion == nil {
			return nil, &IncompleteSessionError{
				SessionID:          session.ID,
				StandardsConfirmed: session.StandardsCompleted(),
				StandardsTotal:     ra.catalog.Len(),
			}
		}
		report.Entries = append(report.Entries, types.ReportEntry{
			StandardID:   std.ID,
			StandardName: std.FullName,
			Summary:      *record.Summary,
			Suggestion:   *record.Suggestion,
			KeyPoints:    record.KeyPointList(),
		})
	}

	if ra.reports != nil {
		payload, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}
		if _, err := ra.reports.Create(ctx, nil, &types.ReportRecord{
			ID:          uuid.New(),
			SessionID:   session.ID,
			Payload:     datatypes.JSON(payload),
			GeneratedAt: report.GeneratedAt,
		}); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// RenderJSON serializes the report for export.
func (ra *ReportAssembler) RenderJSON(report *types.FinalReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// RenderCSV flattens the report to one row per standard. Key points are
// packed into a single column separated by "; ".
func (ra *ReportAssembler) RenderCSV(report *types.FinalReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"session_id", "standard_id", "standard_name", "summary", "suggestion", "key_points", "generated_at"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, entry := range report.Entries {
		row := []string{
			report.SessionID.String(),
			fmt.Sprintf("%d", entry.StandardID),
			entry.StandardName,
			entry.Summary,
			entry.Suggestion,
			strings.Join(entry.KeyPoints, "; "),
			report.GeneratedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
