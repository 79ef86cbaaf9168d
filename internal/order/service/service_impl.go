package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/fee"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	obsmetrics "github.com/storekit/vendra/internal/observability/metrics"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	ordernumberdomain "github.com/storekit/vendra/internal/ordernumber/domain"
	"github.com/storekit/vendra/pkg/db/option"
	"github.com/storekit/vendra/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	FeeConfigSvc   feeconfigdomain.Service
	OrderNumberSvc ordernumberdomain.Service
	LedgerSvc      ledgerdomain.Service
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	feeConfigSvc   feeconfigdomain.Service
	orderNumberSvc ordernumberdomain.Service
	ledgerSvc      ledgerdomain.Service
	orderRepo      repository.Repository[orderdomain.Order]
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		clock: p.Clock,

		feeConfigSvc:   p.FeeConfigSvc,
		orderNumberSvc: p.OrderNumberSvc,
		ledgerSvc:      p.LedgerSvc,
		orderRepo:      repository.ProvideStore[orderdomain.Order](p.DB),
		obsMetrics:     p.ObsMetrics,
	}
}

// Create runs the whole placement sequence in one transaction: effective
// config, fee computation, order number, order row, ledger legs. Any failed
// step rolls back everything; no order ever exists without a number, a fee,
// or its ledger entries.
func (s *Service) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (orderdomain.Order, error) {
	if req.MerchantID == 0 {
		return orderdomain.Order{}, orderdomain.ErrInvalidMerchant
	}
	if req.ItemsTotal < 0 || req.ShippingFee < 0 || req.TaxAmount < 0 || req.DiscountAmount < 0 {
		return orderdomain.Order{}, orderdomain.ErrInvalidAmount
	}

	gross := req.ItemsTotal + req.ShippingFee + req.TaxAmount - req.DiscountAmount
	if gross < 0 {
		return orderdomain.Order{}, orderdomain.ErrInvalidAmount
	}

	cfg, err := s.feeConfigSvc.Resolve(ctx, req.MerchantID)
	if err != nil {
		return orderdomain.Order{}, err
	}

	feeConfig := cfg.FeeConfig()
	platformFee := fee.ComputeFee(gross, feeConfig)
	netPayable := fee.ComputeNetPayable(gross, feeConfig)

	now := s.clock.Now()
	order := orderdomain.Order{
		ID:         s.genID.Generate(),
		MerchantID: req.MerchantID,

		ItemsTotal:     req.ItemsTotal,
		ShippingFee:    req.ShippingFee,
		TaxAmount:      req.TaxAmount,
		DiscountAmount: req.DiscountAmount,

		GrossAmount: gross,
		PlatformFee: platformFee,
		NetPayable:  netPayable,

		Stage:         orderdomain.StageCreated,
		PaymentStatus: orderdomain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.orderNumberSvc.AllocateTx(ctx, tx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := s.orderRepo.WithTrx(tx).Create(ctx, &order); err != nil {
			return err
		}

		_, err = s.ledgerSvc.GenerateEntriesTx(ctx, tx, ledgerdomain.OrderFinancials{
			MerchantID:  order.MerchantID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			GrossAmount: order.GrossAmount,
			PlatformFee: order.PlatformFee,
			NetPayable:  order.NetPayable,
		})
		return err
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.OrdersCreated.WithLabelValues(string(order.PaymentStatus)).Inc()
		s.obsMetrics.PlatformFeePaise.Add(float64(order.PlatformFee.Int64()))
	}
	s.log.Info("order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("merchant_id", order.MerchantID.String()),
		zap.Int64("gross_paise", order.GrossAmount.Int64()),
		zap.Int64("platform_fee_paise", order.PlatformFee.Int64()))
	return order, nil
}

func (s *Service) GetByID(ctx context.Context, merchantID, orderID snowflake.ID) (orderdomain.Order, error) {
	order, err := s.orderRepo.FindOne(ctx, &orderdomain.Order{ID: orderID, MerchantID: merchantID})
	if err != nil {
		return orderdomain.Order{}, err
	}
	if order == nil {
		return orderdomain.Order{}, orderdomain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) List(ctx context.Context, req orderdomain.ListOrdersRequest) ([]orderdomain.Order, error) {
	if req.MerchantID == 0 {
		return nil, orderdomain.ErrInvalidMerchant
	}

	filter := &orderdomain.Order{MerchantID: req.MerchantID}
	if req.Stage != nil {
		filter.Stage = *req.Stage
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: true, Allow: map[string]bool{"created_at": true}}),
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    *req.CreatedFrom,
		}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    *req.CreatedTo,
		}))
	}
	if req.Limit > 0 {
		options = append(options, option.WithLimit(req.Limit))
	}

	items, err := s.orderRepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, err
	}

	orders := make([]orderdomain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}
	return orders, nil
}

// MarkPaid is driven by the payment gateway webhook. The ledger transition
// carries the expected source status, so replays cannot double-advance.
func (s *Service) MarkPaid(ctx context.Context, orderID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == orderdomain.PaymentStatusPaid {
			return orderdomain.ErrAlreadyPaid
		}
		if order.Stage != orderdomain.StageCreated {
			return orderdomain.ErrInvalidStage
		}

		now := s.clock.Now()
		if err := tx.WithContext(ctx).Exec(
			`UPDATE orders
			 SET stage = ?, payment_status = ?, updated_at = ?
			 WHERE id = ?`,
			string(orderdomain.StageConfirmed),
			string(orderdomain.PaymentStatusPaid),
			now,
			orderID,
		).Error; err != nil {
			return err
		}

		return s.ledgerSvc.TransitionStatusTx(ctx, tx, orderID,
			ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing)
	})
}

// MarkSettled is driven by the payout job after a successful bank transfer.
func (s *Service) MarkSettled(ctx context.Context, orderID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus != orderdomain.PaymentStatusPaid {
			return orderdomain.ErrNotPaid
		}
		if order.Stage != orderdomain.StageConfirmed {
			return orderdomain.ErrInvalidStage
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE orders
			 SET stage = ?, updated_at = ?
			 WHERE id = ?`,
			string(orderdomain.StageSettled),
			s.clock.Now(),
			orderID,
		).Error; err != nil {
			return err
		}

		return s.ledgerSvc.TransitionStatusTx(ctx, tx, orderID,
			ledgerdomain.EntryStatusProcessing, ledgerdomain.EntryStatusSettled)
	})
}

func (s *Service) Cancel(ctx context.Context, orderID snowflake.ID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.CanCancel() {
			return orderdomain.ErrNotCancellable
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE orders
			 SET stage = ?, updated_at = ?
			 WHERE id = ?`,
			string(orderdomain.StageCancelled),
			s.clock.Now(),
			orderID,
		).Error; err != nil {
			return err
		}

		// Offsetting rows, never edits: the original legs stay as written.
		return s.ledgerSvc.ReverseEntriesTx(ctx, tx, orderID, reason)
	})
}

func (s *Service) loadForUpdate(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) (*orderdomain.Order, error) {
	if orderID == 0 {
		return nil, orderdomain.ErrOrderNotFound
	}
	var order orderdomain.Order
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM orders WHERE id = ?`,
		orderID,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, orderdomain.ErrOrderNotFound
	}
	return &order, nil
}
