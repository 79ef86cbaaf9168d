package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/config"
	feeconfigservice "github.com/storekit/vendra/internal/feeconfig/service"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	ledgerservice "github.com/storekit/vendra/internal/ledger/service"
	merchantdomain "github.com/storekit/vendra/internal/merchant/domain"
	"github.com/storekit/vendra/internal/money"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	ordernumberdomain "github.com/storekit/vendra/internal/ordernumber/domain"
	ordernumberservice "github.com/storekit/vendra/internal/ordernumber/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type orderFixture struct {
	svc      orderdomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	merchant merchantdomain.Merchant
}

func setupOrders(t *testing.T) *orderFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&merchantdomain.Merchant{},
		&merchantdomain.PricingPackage{},
		&merchantdomain.MerchantFeeOverride{},
		&orderdomain.Order{},
		&ordernumberdomain.Counter{},
		&ledgerdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	platform := config.StaticPlatformConfigHolder(config.DefaultPlatformConfig())
	fc := clock.NewFakeClock(time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC))

	feeConfigSvc := feeconfigservice.NewService(feeconfigservice.ServiceParam{
		DB:       db,
		Log:      log,
		Platform: platform,
	})
	orderNumberSvc := ordernumberservice.NewService(ordernumberservice.Params{
		DB:       db,
		Log:      log,
		Platform: platform,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
	})

	merchant := merchantdomain.Merchant{
		ID:       node.Generate(),
		Name:     "Chai Point",
		IsActive: true,
	}
	require.NoError(t, db.Create(&merchant).Error)

	svc := NewService(Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          fc,
		FeeConfigSvc:   feeConfigSvc,
		OrderNumberSvc: orderNumberSvc,
		LedgerSvc:      ledgerSvc,
	})
	return &orderFixture{svc: svc, db: db, node: node, clock: fc, merchant: merchant}
}

func TestCreateOrderFullFlow(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID:     f.merchant.ID,
		ItemsTotal:     money.Paise(9000),
		ShippingFee:    money.Paise(500),
		TaxAmount:      money.Paise(1000),
		DiscountAmount: money.Paise(500),
	})
	require.NoError(t, err)

	// gross 10000 on platform defaults: 2% + 500 flat = 700.
	assert.Equal(t, money.Paise(10000), order.GrossAmount)
	assert.Equal(t, money.Paise(700), order.PlatformFee)
	assert.Equal(t, money.Paise(9300), order.NetPayable)
	assert.Equal(t, "ORD-2602-000001", order.OrderNumber)
	assert.Equal(t, orderdomain.StageCreated, order.Stage)
	assert.Equal(t, orderdomain.PaymentStatusPending, order.PaymentStatus)

	var entries []ledgerdomain.Entry
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 3)
	var sum money.Paise
	for _, e := range entries {
		assert.Equal(t, ledgerdomain.EntryStatusPending, e.Status)
		if e.Type != ledgerdomain.EntryTypeOrderPayout {
			sum += e.Amount
		}
	}
	assert.Equal(t, order.NetPayable, sum)

	second, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2602-000002", second.OrderNumber)
}

func TestCreateOrderFeeRespectsOverride(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	flat := int64(0)
	bps := 100
	require.NoError(t, f.db.Create(&merchantdomain.MerchantFeeOverride{
		ID:             f.node.Generate(),
		MerchantID:     f.merchant.ID,
		FixedFeePaise:  &flat,
		VariableFeeBps: &bps,
	}).Error)

	order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(10000),
	})
	require.NoError(t, err)

	// 1% of 10000, no flat component.
	assert.Equal(t, money.Paise(100), order.PlatformFee)
	assert.Equal(t, money.Paise(9900), order.NetPayable)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		ItemsTotal: money.Paise(1000),
	})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidMerchant)

	_, err = f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(-100),
	})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidAmount)

	// Discount larger than everything else drives gross negative.
	_, err = f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID:     f.merchant.ID,
		ItemsTotal:     money.Paise(1000),
		DiscountAmount: money.Paise(2000),
	})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidAmount)

	var count int64
	require.NoError(t, f.db.Model(&orderdomain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderLifecycle(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(10000),
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.MarkSettled(ctx, order.ID), orderdomain.ErrNotPaid)

	require.NoError(t, f.svc.MarkPaid(ctx, order.ID))
	got, err := f.svc.GetByID(ctx, f.merchant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StageConfirmed, got.Stage)
	assert.Equal(t, orderdomain.PaymentStatusPaid, got.PaymentStatus)

	// Webhook replay must not double-advance.
	require.ErrorIs(t, f.svc.MarkPaid(ctx, order.ID), orderdomain.ErrAlreadyPaid)

	var entries []ledgerdomain.Entry
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	for _, e := range entries {
		assert.Equal(t, ledgerdomain.EntryStatusProcessing, e.Status)
	}

	require.NoError(t, f.svc.MarkSettled(ctx, order.ID))
	got, err = f.svc.GetByID(ctx, f.merchant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StageSettled, got.Stage)

	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	for _, e := range entries {
		assert.Equal(t, ledgerdomain.EntryStatusSettled, e.Status)
	}

	require.ErrorIs(t, f.svc.Cancel(ctx, order.ID, "changed mind"), orderdomain.ErrNotCancellable)
}

func TestCancelReversesLedger(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(10000),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkPaid(ctx, order.ID))

	require.NoError(t, f.svc.Cancel(ctx, order.ID, "stock out"))

	got, err := f.svc.GetByID(ctx, f.merchant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StageCancelled, got.Stage)

	var entries []ledgerdomain.Entry
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 6)
	var sum money.Paise
	for _, e := range entries {
		sum += e.Amount
	}
	// Each reversal leg offsets its original exactly.
	var payoutSum money.Paise
	for _, e := range entries {
		if e.Type == ledgerdomain.EntryTypeOrderPayout || e.Type == ledgerdomain.EntryTypePayoutReversal {
			payoutSum += e.Amount
		}
	}
	assert.Equal(t, money.Paise(0), payoutSum)
	assert.Equal(t, money.Paise(0), sum)
}

func TestListOrdersFilters(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
			MerchantID: f.merchant.ID,
			ItemsTotal: money.Paise(1000 * int64(i+1)),
		})
		require.NoError(t, err)
		ids = append(ids, order.ID)
		f.clock.Advance(time.Hour)
	}
	require.NoError(t, f.svc.MarkPaid(ctx, ids[0]))

	all, err := f.svc.List(ctx, orderdomain.ListOrdersRequest{MerchantID: f.merchant.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	confirmed := orderdomain.StageConfirmed
	got, err := f.svc.List(ctx, orderdomain.ListOrdersRequest{
		MerchantID: f.merchant.ID,
		Stage:      &confirmed,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[0], got[0].ID)

	limited, err := f.svc.List(ctx, orderdomain.ListOrdersRequest{
		MerchantID: f.merchant.ID,
		Limit:      2,
	})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = f.svc.List(ctx, orderdomain.ListOrdersRequest{})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidMerchant)
}

func TestGetByIDScopedToMerchant(t *testing.T) {
	f := setupOrders(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, orderdomain.CreateOrderRequest{
		MerchantID: f.merchant.ID,
		ItemsTotal: money.Paise(2500),
	})
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, f.node.Generate(), order.ID)
	assert.ErrorIs(t, err, orderdomain.ErrOrderNotFound)
}
