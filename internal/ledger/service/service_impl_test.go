package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	"github.com/storekit/vendra/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (ledgerdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, db, node
}

func financials(node *snowflake.Node, gross, fee money.Paise) ledgerdomain.OrderFinancials {
	return ledgerdomain.OrderFinancials{
		MerchantID:  node.Generate(),
		OrderID:     node.Generate(),
		OrderNumber: "ORD-2602-000042",
		GrossAmount: gross,
		PlatformFee: fee,
		NetPayable:  gross - fee,
	}
}

func TestGenerateEntries_ThreeLegsPending(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 10000, 700)
	var entries []ledgerdomain.Entry
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		entries, err = svc.GenerateEntriesTx(ctx, tx, order)
		return err
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byType := map[ledgerdomain.EntryType]ledgerdomain.Entry{}
	for _, e := range entries {
		assert.Equal(t, ledgerdomain.EntryStatusPending, e.Status)
		assert.Equal(t, order.OrderID, e.OrderID)
		byType[e.Type] = e
	}

	gross := byType[ledgerdomain.EntryTypeGrossOrderValue]
	feeEntry := byType[ledgerdomain.EntryTypePlatformFee]
	payout := byType[ledgerdomain.EntryTypeOrderPayout]

	assert.Equal(t, money.Paise(10000), gross.Amount)
	assert.Equal(t, money.Paise(-700), feeEntry.Amount)
	assert.Equal(t, money.Paise(9300), payout.Amount)

	// gross + fee == payout (fee carries the negative sign).
	assert.Equal(t, payout.Amount, gross.Amount+feeEntry.Amount)
}

func TestGenerateEntries_RejectsBrokenBreakdown(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 10000, 700)
	order.NetPayable = 9000 // does not reconcile

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrMoneyInvariant)

	var count int64
	db.Model(&ledgerdomain.Entry{}).Count(&count)
	assert.Zero(t, count, "nothing may be written for a broken breakdown")
}

func TestGenerateEntries_FeeAboveGrossRejected(t *testing.T) {
	svc, db, node := setupLedger(t)

	order := financials(node, 100, 0)
	order.PlatformFee = 200
	order.NetPayable = -100

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(context.Background(), tx, order)
		return err
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrMoneyInvariant)
}

func TestGenerateEntries_Idempotent(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 5000, 500)
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrEntriesExist)
}

func TestTransitionStatus_ForwardOnly(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 5000, 500)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	}))

	// PENDING -> PROCESSING -> SETTLED walks forward.
	require.NoError(t, svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing))
	require.NoError(t, svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusProcessing, ledgerdomain.EntryStatusSettled))

	// No reverse transitions, no skips.
	assert.ErrorIs(t,
		svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusSettled, ledgerdomain.EntryStatusPending),
		ledgerdomain.ErrInvalidTransition)
	assert.ErrorIs(t,
		svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusSettled),
		ledgerdomain.ErrInvalidTransition)
}

func TestTransitionStatus_ReplayedWebhookFindsNothing(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 5000, 500)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	}))

	require.NoError(t, svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing))
	err := svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidTransition)
}

func TestReverseEntries_OffsettingRows(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	order := financials(node, 10000, 700)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.GenerateEntriesTx(ctx, tx, order)
		return err
	}))
	require.NoError(t, svc.TransitionStatus(ctx, order.OrderID, ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing))

	require.NoError(t, svc.ReverseEntries(ctx, order.OrderID, "cancelled by merchant"))

	entries, err := svc.ListByOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	// Original amounts are untouched; the order's entries now sum to zero
	// across original and reversal legs.
	var sum money.Paise
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Equal(t, money.Paise(0), sum)

	// Reversal is idempotent.
	require.NoError(t, svc.ReverseEntries(ctx, order.OrderID, "cancelled by merchant"))
	entries, err = svc.ListByOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestSettlementTotals(t *testing.T) {
	svc, db, node := setupLedger(t)
	ctx := context.Background()

	merchantID := node.Generate()
	mkOrder := func(gross, fee money.Paise) ledgerdomain.OrderFinancials {
		return ledgerdomain.OrderFinancials{
			MerchantID:  merchantID,
			OrderID:     node.Generate(),
			OrderNumber: "ORD-2603-000001",
			GrossAmount: gross,
			PlatformFee: fee,
			NetPayable:  gross - fee,
		}
	}

	for _, order := range []ledgerdomain.OrderFinancials{mkOrder(10000, 700), mkOrder(20000, 900)} {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.GenerateEntriesTx(ctx, tx, order)
			return err
		}))
	}

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	total, err := svc.SettlementTotals(ctx, merchantID, ledgerdomain.EntryStatusPending, from, to)
	require.NoError(t, err)
	assert.Equal(t, money.Paise(9300+19100), total)

	// Another merchant has nothing pending.
	other, err := svc.SettlementTotals(ctx, node.Generate(), ledgerdomain.EntryStatusPending, from, to)
	require.NoError(t, err)
	assert.Equal(t, money.Paise(0), other)
}
