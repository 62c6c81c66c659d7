package worker

import (
	"context"
	"log"
	"time"

	apperrors "realitycheck/backend/internal/errors"
)

type UserLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type ProfileReconciler interface {
	ReconcileProfile(ctx context.Context, userID string) (bool, *apperrors.APIError)
}

// ReconcileWorker periodically re-derives every profile from its score
// ledger and repairs drifted aggregates.
type ReconcileWorker struct {
	Users      UserLister
	Reconciler ProfileReconciler
	Interval   time.Duration
}

type ReconcileReport struct {
	Checked  int
	Repaired int
	Failed   int
}

func NewReconcileWorker(users UserLister, reconciler ProfileReconciler, interval time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		Users:      users,
		Reconciler: reconciler,
		Interval:   interval,
	}
}

// Run blocks until ctx is cancelled.
func (w *ReconcileWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	log.Printf("reconcile worker started, interval %s", w.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("reconcile worker stopped")
			return
		case <-ticker.C:
			report := w.ProcessOnce(ctx)
			if report.Repaired > 0 || report.Failed > 0 {
				log.Printf(
					"reconcile pass: checked %d, repaired %d, failed %d",
					report.Checked, report.Repaired, report.Failed,
				)
			}
		}
	}
}

func (w *ReconcileWorker) ProcessOnce(ctx context.Context) ReconcileReport {
	report := ReconcileReport{}

	ids, err := w.Users.ListIDs(ctx)
	if err != nil {
		log.Printf("reconcile: list users: %v", err)
		return report
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		repaired, apiErr := w.Reconciler.ReconcileProfile(ctx, id)
		if apiErr != nil {
			log.Printf("reconcile: user %s: %s", id, apiErr.Message)
			report.Failed++
			continue
		}
		if repaired {
			report.Repaired++
		}
	}
	return report
}
