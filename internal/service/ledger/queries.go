package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// List returns the raw rows of a ledger collection in insertion order.
func (s *Service) List(ctx context.Context, collection string) ([]tabular.Record, error) {
	if !isLedgerCollection(collection) {
		return nil, &models.NotFoundError{Collection: "collection", ID: collection}
	}
	return s.store.ReadAll(ctx, collection)
}

// AvailablePurchases lists purchases that still hold kg to process.
func (s *Service) AvailablePurchases(ctx context.Context) ([]models.Purchase, error) {
	purchases, err := readAll(ctx, s, models.CollectionPurchases, models.DecodePurchase)
	if err != nil {
		return nil, err
	}
	available := purchases[:0]
	for _, p := range purchases {
		if p.KgAvailable.IsPositive() {
			available = append(available, p)
		}
	}
	return available, nil
}

// OutstandingAdvances lists the supplier's advances with a positive balance.
// Suppliers match case-insensitively. An empty result is not an error.
func (s *Service) OutstandingAdvances(ctx context.Context, supplier string) ([]models.Advance, error) {
	if err := models.RequireText(models.FieldSupplier, supplier); err != nil {
		return nil, err
	}
	advances, err := readAll(ctx, s, models.CollectionAdvances, models.DecodeAdvance)
	if err != nil {
		return nil, err
	}
	outstanding := advances[:0]
	for _, a := range advances {
		if sameSupplier(a.Supplier, supplier) && a.Balance.IsPositive() {
			outstanding = append(outstanding, a)
		}
	}
	return outstanding, nil
}

// OpenOrders lists orders that are neither fulfilled nor cancelled.
func (s *Service) OpenOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := readAll(ctx, s, models.CollectionOrders, models.DecodeOrder)
	if err != nil {
		return nil, err
	}
	open := orders[:0]
	for _, o := range orders {
		if o.Status == models.OrderOpen {
			open = append(open, o)
		}
	}
	return open, nil
}

// readAll decodes a collection, skipping rows that fail to decode.
func readAll[T any](ctx context.Context, s *Service, collection string, decode func(tabular.Record, *time.Location) (T, error)) ([]T, error) {
	records, err := s.store.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for i, rec := range records {
		item, err := decode(rec, s.loc)
		if err != nil {
			s.logger.Warn("skipping corrupt row",
				zap.String("collection", collection),
				zap.Int("row", i+1),
				zap.Error(err),
			)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func isLedgerCollection(name string) bool {
	for _, c := range models.LedgerCollections {
		if c == name {
			return true
		}
	}
	return false
}
