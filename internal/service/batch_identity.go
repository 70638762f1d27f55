package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

var (
	suffixPattern     = regexp.MustCompile(`^(.*\S)\s+-\s+([A-Z])$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// DisplayName normalises whitespace and strips a trailing lettered suffix, keeping the original case.
func DisplayName(name string) string {
	collapsed := whitespacePattern.ReplaceAllString(strings.TrimSpace(name), " ")
	if m := suffixPattern.FindStringSubmatch(collapsed); m != nil {
		return m[1]
	}
	return collapsed
}

// CanonicalKey is the case-folded, suffix-free lookup key shared by every batch of a display name.
func CanonicalKey(name string) string {
	return strings.ToLower(DisplayName(name))
}

// SuffixedName renders a sibling name such as "NaCl - B".
func SuffixedName(base, letter string) string {
	return base + " - " + letter
}

// NextSuffix returns one past the greatest single-letter suffix used by names for base, starting at A.
func NextSuffix(base string, names []string) (string, error) {
	highest := rune(0)
	for _, name := range names {
		m := suffixPattern.FindStringSubmatch(name)
		if m == nil || !strings.EqualFold(m[1], base) {
			continue
		}
		if r := rune(m[2][0]); r > highest {
			highest = r
		}
	}
	switch {
	case highest == 0:
		return "A", nil
	case highest >= 'Z':
		return "", appErrors.WithDetails(appErrors.ErrSuffixExhausted, map[string]interface{}{"displayName": base})
	default:
		return string(highest + 1), nil
	}
}

func suffixForIndex(base string, index int) (string, error) {
	if index == 0 {
		return base, nil
	}
	if index > 26 {
		return "", appErrors.WithDetails(appErrors.ErrSuffixExhausted, map[string]interface{}{"displayName": base})
	}
	return SuffixedName(base, string(rune('A'+index-1))), nil
}

func batchNamePattern(base string) string {
	return "^" + regexp.QuoteMeta(base) + "( - [A-Z])?$"
}

// IntakeOutcome describes what the resolver did with one intake line.
type IntakeOutcome struct {
	Action    dto.IntakeAction
	Batch     models.ChemicalBatch
	LiveStock models.LiveStock
	Renamed   []dto.RenamedBatch
}

// BatchIdentityResolver keeps at most one base-named central batch per display name, with later
// expiring siblings suffixed " - A", " - B" and so on.
type BatchIdentityResolver struct {
	ledger *StockLedger
	logger *zap.Logger
}

// NewBatchIdentityResolver constructs the resolver.
func NewBatchIdentityResolver(ledger *StockLedger, logger *zap.Logger) *BatchIdentityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchIdentityResolver{ledger: ledger, logger: logger}
}

// ResolveOnIntake merges the line into a matching batch or creates a new one with the right name.
func (r *BatchIdentityResolver) ResolveOnIntake(ctx context.Context, line dto.ChemicalIntakeLine, performedBy, batchCode string) (*IntakeOutcome, error) {
	display := DisplayName(line.Name)
	key := CanonicalKey(display)
	central := r.ledger.CentralLabID()
	movement := Movement{Type: models.LedgerEntryIntake, PerformedBy: performedBy, ToLabID: central}

	batches, err := r.ledger.ListBatches(ctx, models.BatchFilter{CanonicalKey: key, Vendor: line.Vendor, Unit: line.Unit})
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		batches, err = r.ledger.ListBatches(ctx, models.BatchFilter{NamePattern: batchNamePattern(display), Vendor: line.Vendor, Unit: line.Unit})
		if err != nil {
			return nil, err
		}
	}
	if len(batches) > 0 && batches[0].DisplayName != "" {
		display = batches[0].DisplayName
	}

	for _, batch := range batches {
		if !models.SameExpiry(batch.ExpiryDate, line.ExpiryDate) {
			continue
		}
		live, err := r.ledger.MergeIntoBatch(ctx, batch, line.Quantity, movement)
		if err != nil {
			return nil, err
		}
		batch.Quantity = batch.Quantity.Add(line.Quantity)
		outcome := &IntakeOutcome{Action: dto.IntakeActionMerged, Batch: batch, LiveStock: *live}
		if live.OriginalQuantity.Equal(line.Quantity) {
			// the central row had been exhausted and was recreated; restore sibling order
			outcome.Renamed, err = r.Reindex(ctx, batch.DisplayName, central, performedBy)
			if err != nil {
				return nil, err
			}
		}
		return outcome, nil
	}

	siblings, err := r.ledger.CentralSiblings(ctx, display)
	if err != nil {
		return nil, err
	}
	if len(siblings) > 0 && siblings[0].DisplayName != "" {
		display = siblings[0].DisplayName
	}

	name := display
	reindex := false
	if len(siblings) > 0 {
		if line.ExpiryDate != nil && expiresBeforeAll(line, siblings) {
			// the new lot takes the base name; every sibling shifts down one letter
			reindex = true
		} else {
			names := make([]string, 0, len(siblings))
			for _, s := range siblings {
				names = append(names, s.ChemicalName)
			}
			letter, err := NextSuffix(display, names)
			if err != nil {
				return nil, err
			}
			name = SuffixedName(display, letter)
		}
	}

	batch := &models.ChemicalBatch{
		BatchCode:    batchCode,
		Name:         name,
		DisplayName:  display,
		CanonicalKey: key,
		Vendor:       line.Vendor,
		Unit:         line.Unit,
		ExpiryDate:   line.ExpiryDate,
		Quantity:     line.Quantity,
		Price:        line.Price,
		Department:   line.Department,
	}
	live, err := r.ledger.CreateBatch(ctx, batch, movement)
	if err != nil {
		return nil, err
	}
	var renamed []dto.RenamedBatch
	if reindex {
		renamed, err = r.Reindex(ctx, display, central, performedBy)
		if err != nil {
			r.logger.Error("failed to reindex siblings after intake", zap.String("batchId", batch.ID), zap.Error(err))
			return nil, err
		}
	}
	r.logger.Info("chemical batch created",
		zap.String("batchId", batch.ID),
		zap.String("name", batch.Name),
		zap.Int("renamedSiblings", len(renamed)))
	return &IntakeOutcome{Action: dto.IntakeActionCreated, Batch: *batch, LiveStock: *live, Renamed: renamed}, nil
}

// Reindex renames the remaining rows of a display name at labID by expiry order: the earliest keeps
// the base name and the rest take " - A", " - B" and so on. Only rows whose name changes are touched.
func (r *BatchIdentityResolver) Reindex(ctx context.Context, displayName, labID, performedBy string) ([]dto.RenamedBatch, error) {
	rows, err := r.ledger.ListLive(ctx, models.LiveStockFilter{LabID: labID, CanonicalKey: CanonicalKey(displayName), PositiveOnly: true})
	if err != nil {
		return nil, err
	}
	base := DisplayName(displayName)
	if len(rows) > 0 && rows[0].DisplayName != "" {
		base = rows[0].DisplayName
	}

	renamed := make([]dto.RenamedBatch, 0)
	for i, row := range rows {
		want, err := suffixForIndex(base, i)
		if err != nil {
			return renamed, err
		}
		if row.ChemicalName == want {
			continue
		}
		if err := r.ledger.RenameBatch(ctx, row, labID, want, performedBy); err != nil {
			return renamed, fmt.Errorf("reindex %s: %w", base, err)
		}
		renamed = append(renamed, dto.RenamedBatch{BatchID: row.ChemicalBatchID, From: row.ChemicalName, To: want})
	}
	if len(renamed) > 0 {
		r.logger.Debug("reindexed batches", zap.String("displayName", base), zap.Int("renamed", len(renamed)))
	}
	return renamed, nil
}

func expiresBeforeAll(line dto.ChemicalIntakeLine, siblings []models.LiveStock) bool {
	for _, s := range siblings {
		if !models.ExpiryBefore(line.ExpiryDate, s.ExpiryDate) {
			return false
		}
	}
	return true
}
