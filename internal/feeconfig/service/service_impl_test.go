package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/storekit/vendra/internal/config"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	merchantdomain "github.com/storekit/vendra/internal/merchant/domain"
	"github.com/storekit/vendra/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
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
	))
	return db
}

func newResolver(t *testing.T, db *gorm.DB) feeconfigdomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Platform: config.StaticPlatformConfigHolder(config.DefaultPlatformConfig()),
	})
}

func int64Ptr(v int64) *int64 { return &v }

func TestResolve_OverrideWinsOverPackage(t *testing.T) {
	db := setupDB(t)
	node, _ := snowflake.NewNode(1)

	pkgID := node.Generate()
	merchantID := node.Generate()

	require.NoError(t, db.Create(&merchantdomain.PricingPackage{
		ID:             pkgID,
		Name:           "Growth",
		FixedFeePaise:  500,
		VariableFeeBps: 150,
		FeeCapPaise:    5000,
		PayoutFreq:     merchantdomain.PayoutFrequencyWeekly,
	}).Error)
	require.NoError(t, db.Create(&merchantdomain.Merchant{
		ID:        merchantID,
		Name:      "Acme Traders",
		PackageID: &pkgID,
	}).Error)
	require.NoError(t, db.Create(&merchantdomain.MerchantFeeOverride{
		ID:            node.Generate(),
		MerchantID:    merchantID,
		FixedFeePaise: int64Ptr(300),
	}).Error)

	svc := newResolver(t, db)
	resolved, err := svc.Resolve(context.Background(), merchantID)
	require.NoError(t, err)

	// Overridden field wins; untouched fields inherit from the package.
	assert.Equal(t, money.Paise(300), resolved.FixedFeePaise)
	assert.Equal(t, 150, resolved.VariableFeeBps)
	assert.Equal(t, money.Paise(5000), resolved.FeeCapPaise)
	assert.Equal(t, merchantdomain.PayoutFrequencyWeekly, resolved.PayoutFreq)
	require.NotNil(t, resolved.SourcePackageID)
	assert.Equal(t, pkgID, *resolved.SourcePackageID)
	assert.Equal(t, "Growth", resolved.SourcePackageName)
}

func TestResolve_PackageWithoutOverride(t *testing.T) {
	db := setupDB(t)
	node, _ := snowflake.NewNode(1)

	pkgID := node.Generate()
	merchantID := node.Generate()

	require.NoError(t, db.Create(&merchantdomain.PricingPackage{
		ID:            pkgID,
		Name:          "Starter",
		FixedFeePaise: 500,
		PayoutFreq:    merchantdomain.PayoutFrequencyDaily,
	}).Error)
	require.NoError(t, db.Create(&merchantdomain.Merchant{
		ID:        merchantID,
		Name:      "Beta Stores",
		PackageID: &pkgID,
	}).Error)

	svc := newResolver(t, db)
	resolved, err := svc.Resolve(context.Background(), merchantID)
	require.NoError(t, err)

	assert.Equal(t, money.Paise(500), resolved.FixedFeePaise)
	assert.Equal(t, merchantdomain.PayoutFrequencyDaily, resolved.PayoutFreq)
}

func TestResolve_NoPackageNoOverrideFallsBackToPlatform(t *testing.T) {
	db := setupDB(t)
	node, _ := snowflake.NewNode(1)

	merchantID := node.Generate()
	require.NoError(t, db.Create(&merchantdomain.Merchant{
		ID:   merchantID,
		Name: "Fresh Signup",
	}).Error)

	svc := newResolver(t, db)
	resolved, err := svc.Resolve(context.Background(), merchantID)
	require.NoError(t, err)

	platform := config.DefaultPlatformConfig()
	assert.Equal(t, money.Paise(platform.DefaultFixedFeePaise), resolved.FixedFeePaise)
	assert.Equal(t, platform.DefaultVariableFeeBps, resolved.VariableFeeBps)
	assert.Nil(t, resolved.SourcePackageID)
}

func TestResolve_RequestScopedCache(t *testing.T) {
	db := setupDB(t)
	node, _ := snowflake.NewNode(1)

	merchantID := node.Generate()
	require.NoError(t, db.Create(&merchantdomain.Merchant{ID: merchantID, Name: "Cache Co"}).Error)
	require.NoError(t, db.Create(&merchantdomain.MerchantFeeOverride{
		ID:            node.Generate(),
		MerchantID:    merchantID,
		FixedFeePaise: int64Ptr(111),
	}).Error)

	svc := newResolver(t, db)
	ctx := feeconfigdomain.WithRequestCache(context.Background())

	first, err := svc.Resolve(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, money.Paise(111), first.FixedFeePaise)

	// A mid-request config change must NOT be visible within the same request...
	require.NoError(t, db.Model(&merchantdomain.MerchantFeeOverride{}).
		Where("merchant_id = ?", merchantID).
		Update("fixed_fee_paise", 999).Error)

	again, err := svc.Resolve(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// ...but the next request sees it immediately.
	next, err := svc.Resolve(feeconfigdomain.WithRequestCache(context.Background()), merchantID)
	require.NoError(t, err)
	assert.Equal(t, money.Paise(999), next.FixedFeePaise)
}

func TestResolve_InvalidMerchant(t *testing.T) {
	db := setupDB(t)
	svc := newResolver(t, db)

	_, err := svc.Resolve(context.Background(), 0)
	assert.ErrorIs(t, err, feeconfigdomain.ErrInvalidMerchant)
}
