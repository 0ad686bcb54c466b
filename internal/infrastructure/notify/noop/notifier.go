package noop

import (
	"context"
	"log/slog"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// Notifier only logs trial order notices. Used when no mail transport is configured.
type Notifier struct{}

func New() *Notifier {
	return &Notifier{}
}

func (Notifier) NotifyTrialOrder(_ context.Context, notice domain.TrialOrderNotice) error {
	slog.Info("trial_order_notice",
		"envelope_id", notice.EnvelopeID,
		"title", notice.Title,
		"case_number", notice.Identity.CaseNumber,
		"calendar_call", notice.Dates.CalendarCall,
		"trial_start", notice.Dates.TrialStart,
		"stored_path", notice.StoredPath,
	)
	return nil
}
