package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/haulbound/billing/app/models"
)

// SyncPrices reconciles the local price catalog against Stripe's active
// price list: known rows are overwritten, new prices inserted, and prices no
// longer reported by Stripe removed. All writes land in one transaction so
// readers never observe a half-synced catalog.
func (s *Service) SyncPrices(ctx context.Context) Result[SyncSummary] {
	remote, err := s.stripe.ListActivePrices(ctx)
	if err != nil {
		return Fail[SyncSummary](fmt.Sprintf("error listing prices from stripe: %v", err), ErrorOther)
	}

	local, err := s.prices.GetAll()
	if err != nil {
		return Fail[SyncSummary](fmt.Sprintf("error loading local price catalog: %v", err), ErrorOther)
	}
	localByID := make(map[string]models.PriceCatalog, len(local))
	for _, p := range local {
		localByID[p.PriceID] = p
	}

	now := time.Now().UTC()
	var updates, inserts, removals []models.PriceCatalog

	seen := make(map[string]struct{}, len(remote))
	for _, snap := range remote {
		seen[snap.ID] = struct{}{}
		row := models.PriceCatalog{
			PriceID:      snap.ID,
			Name:         snap.ProductName,
			UnitAmount:   snap.UnitAmount,
			Currency:     snap.Currency,
			Interval:     snap.Interval,
			TrialDays:    snap.TrialDays,
			IsActive:     snap.Active,
			LastSyncedAt: now,
		}
		// Matched rows are always overwritten, even when nothing changed,
		// so LastSyncedAt reflects the last confirmation from Stripe.
		if _, ok := localByID[snap.ID]; ok {
			updates = append(updates, row)
		} else {
			inserts = append(inserts, row)
		}
	}
	for _, p := range local {
		if _, ok := seen[p.PriceID]; !ok {
			removals = append(removals, p)
		}
	}

	if err := s.prices.ApplySyncBatch(updates, inserts, removals); err != nil {
		return Fail[SyncSummary](fmt.Sprintf("error persisting price catalog: %v", err), ErrorOther)
	}

	if s.priceCache != nil {
		s.priceCache.Invalidate()
	}

	summary := SyncSummary{Updated: len(updates), Added: len(inserts), Removed: len(removals)}
	return Success(summary, fmt.Sprintf("price sync complete: %d updated, %d added, %d removed",
		summary.Updated, summary.Added, summary.Removed))
}

