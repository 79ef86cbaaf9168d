package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	"github.com/storekit/vendra/internal/money"
	obsmetrics "github.com/storekit/vendra/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

// GenerateEntriesTx derives the three legs from an order's frozen money
// breakdown. The invariant gross + fee == payout (fee stored negative) is
// checked before anything is written; a violation means the caller computed
// the breakdown wrong and aborts the surrounding transaction.
func (s *Service) GenerateEntriesTx(ctx context.Context, tx *gorm.DB, order ledgerdomain.OrderFinancials) ([]ledgerdomain.Entry, error) {
	if order.MerchantID == 0 || order.OrderID == 0 {
		return nil, ledgerdomain.ErrInvalidOrder
	}
	if order.GrossAmount < 0 || order.PlatformFee < 0 || order.PlatformFee > order.GrossAmount {
		return nil, fmt.Errorf("%w: gross=%d fee=%d", ledgerdomain.ErrMoneyInvariant, order.GrossAmount, order.PlatformFee)
	}
	if order.GrossAmount-order.PlatformFee != order.NetPayable {
		s.log.Error("order money breakdown does not reconcile",
			zap.String("order_id", order.OrderID.String()),
			zap.Int64("gross", order.GrossAmount.Int64()),
			zap.Int64("fee", order.PlatformFee.Int64()),
			zap.Int64("net", order.NetPayable.Int64()))
		return nil, fmt.Errorf("%w: gross=%d fee=%d net=%d", ledgerdomain.ErrMoneyInvariant,
			order.GrossAmount, order.PlatformFee, order.NetPayable)
	}

	now := time.Now().UTC()
	entries := []ledgerdomain.Entry{
		{
			ID:          s.genID.Generate(),
			MerchantID:  order.MerchantID,
			OrderID:     order.OrderID,
			Type:        ledgerdomain.EntryTypeGrossOrderValue,
			Amount:      order.GrossAmount,
			Status:      ledgerdomain.EntryStatusPending,
			Description: fmt.Sprintf("Gross order value for %s", order.OrderNumber),
			CreatedAt:   now,
		},
		{
			ID:          s.genID.Generate(),
			MerchantID:  order.MerchantID,
			OrderID:     order.OrderID,
			Type:        ledgerdomain.EntryTypePlatformFee,
			Amount:      order.PlatformFee.Neg(),
			Status:      ledgerdomain.EntryStatusPending,
			Description: fmt.Sprintf("Platform fee for %s", order.OrderNumber),
			CreatedAt:   now,
		},
		{
			ID:          s.genID.Generate(),
			MerchantID:  order.MerchantID,
			OrderID:     order.OrderID,
			Type:        ledgerdomain.EntryTypeOrderPayout,
			Amount:      order.NetPayable,
			Status:      ledgerdomain.EntryStatusPending,
			Description: fmt.Sprintf("Amount payable for %s", order.OrderNumber),
			CreatedAt:   now,
		},
	}

	for _, entry := range entries {
		result := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entries (
				id, merchant_id, order_id, type, amount, status, description, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (order_id, type) DO NOTHING`,
			entry.ID,
			entry.MerchantID,
			entry.OrderID,
			string(entry.Type),
			entry.Amount,
			string(entry.Status),
			entry.Description,
			entry.CreatedAt,
		)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ledgerdomain.ErrEntriesExist
		}
	}

	if s.obsMetrics != nil {
		for _, entry := range entries {
			s.obsMetrics.LedgerEntriesWritten.WithLabelValues(string(entry.Type)).Inc()
		}
	}
	return entries, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID snowflake.ID) ([]ledgerdomain.Entry, error) {
	if orderID == 0 {
		return nil, ledgerdomain.ErrInvalidOrder
	}
	var entries []ledgerdomain.Entry
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TransitionStatus moves every leg of an order one step forward. The WHERE
// clause carries the expected source status, so a replayed webhook finds zero
// rows and reports an invalid transition instead of silently re-applying.
func (s *Service) TransitionStatus(ctx context.Context, orderID snowflake.ID, from, to ledgerdomain.EntryStatus) error {
	return s.TransitionStatusTx(ctx, s.db, orderID, from, to)
}

func (s *Service) TransitionStatusTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, from, to ledgerdomain.EntryStatus) error {
	if orderID == 0 {
		return ledgerdomain.ErrInvalidOrder
	}
	if !ledgerdomain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ledgerdomain.ErrInvalidTransition, from, to)
	}

	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET status = ?
		 WHERE order_id = ? AND status = ?`,
		string(to),
		orderID,
		string(from),
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: no entries in %s for order %s", ledgerdomain.ErrInvalidTransition, from, orderID)
	}
	return nil
}

// ReverseEntries appends offsetting rows mirroring the original legs with
// inverted signs. Reversal rows settle immediately: there is nothing left to
// pay out once the order is cancelled.
func (s *Service) ReverseEntries(ctx context.Context, orderID snowflake.ID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ReverseEntriesTx(ctx, tx, orderID, reason)
	})
}

func (s *Service) ReverseEntriesTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, reason string) error {
	if orderID == 0 {
		return ledgerdomain.ErrInvalidOrder
	}

	reversalOf := map[ledgerdomain.EntryType]ledgerdomain.EntryType{
		ledgerdomain.EntryTypeGrossOrderValue: ledgerdomain.EntryTypeGrossReversal,
		ledgerdomain.EntryTypePlatformFee:     ledgerdomain.EntryTypeFeeReversal,
		ledgerdomain.EntryTypeOrderPayout:     ledgerdomain.EntryTypePayoutReversal,
	}

	var originals []ledgerdomain.Entry
	err := tx.WithContext(ctx).
		Where("order_id = ? AND type IN ?", orderID, []ledgerdomain.EntryType{
			ledgerdomain.EntryTypeGrossOrderValue,
			ledgerdomain.EntryTypePlatformFee,
			ledgerdomain.EntryTypeOrderPayout,
		}).
		Find(&originals).Error
	if err != nil {
		return err
	}
	if len(originals) == 0 {
		return ledgerdomain.ErrEntriesMissing
	}

	now := time.Now().UTC()
	for _, original := range originals {
		result := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entries (
				id, merchant_id, order_id, type, amount, status, description, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (order_id, type) DO NOTHING`,
			s.genID.Generate(),
			original.MerchantID,
			original.OrderID,
			string(reversalOf[original.Type]),
			original.Amount.Neg(),
			string(ledgerdomain.EntryStatusSettled),
			fmt.Sprintf("Reversal (%s): %s", reason, original.Description),
			now,
		)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func (s *Service) SettlementTotals(ctx context.Context, merchantID snowflake.ID, status ledgerdomain.EntryStatus, from, to time.Time) (money.Paise, error) {
	if merchantID == 0 {
		return 0, ledgerdomain.ErrInvalidOrder
	}
	var total int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM ledger_entries
		 WHERE merchant_id = ? AND type = ? AND status = ?
		 AND created_at >= ? AND created_at <= ?`,
		merchantID,
		string(ledgerdomain.EntryTypeOrderPayout),
		string(status),
		from.UTC(),
		to.UTC(),
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return money.Paise(total), nil
}
