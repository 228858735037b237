package services

import (
	"context"
	"fmt"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/sendgrid"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// ReportMailer delivers the assembled report to the address captured at the
// end of the session, with the JSON and CSV renderings attached.
type ReportMailer interface {
	SendReport(ctx context.Context, report *types.FinalReport) error
}

type reportMailer struct {
	log       *logger.Logger
	mail      sendgrid.Client
	assembler *ReportAssembler
}

func NewReportMailer(log *logger.Logger, mail sendgrid.Client, assembler *ReportAssembler) ReportMailer {
	return &reportMailer{
		log:       log.With("service", "ReportMailer"),
		mail:      mail,
		assembler: assembler,
	}
}

func (rm *reportMailer) SendReport(ctx context.Context, report *types.FinalReport) error {
	if rm.mail == nil {
		return &ConfigurationError{Detail: "mail client not configured"}
	}
	if report.ContactEmail == "" {
		return fmt.Errorf("report for session %s has no contact email", report.SessionID)
	}

	jsonBody, err := rm.assembler.RenderJSON(report)
	if err != nil {
		return fmt.Errorf("rendering report json: %w", err)
	}
	csvBody, err := rm.assembler.RenderCSV(report)
	if err != nil {
		return fmt.Errorf("rendering report csv: %w", err)
	}

	var text string
	text = "Attached is the structured feedback report from your preceptor session.\n\n"
	for _, entry := range report.Entries {
		text += fmt.Sprintf("%s\nSummary: %s\nSuggested action: %s\n\n", entry.StandardName, entry.Summary, entry.Suggestion)
	}

	result, err := rm.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: report.ContactEmail}},
		Subject: "Your student feedback report",
		Text:    text,
		Attachments: []sendgrid.Attachment{
			{
				Filename: fmt.Sprintf("feedback-report-%s.json", report.SessionID),
				MIMEType: "application/json",
				Content:  jsonBody,
			},
			{
				Filename: fmt.Sprintf("feedback-report-%s.csv", report.SessionID),
				MIMEType: "text/csv",
				Content:  csvBody,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending report email: %w", err)
	}

	rm.log.Info("Report email sent",
		"session_id", report.SessionID,
		"status", result.StatusCode,
		"message_id", result.MessageID,
	)
	return nil
}
