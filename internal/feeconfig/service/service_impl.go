package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/config"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	merchantdomain "github.com/storekit/vendra/internal/merchant/domain"
	"github.com/storekit/vendra/internal/money"
	"github.com/storekit/vendra/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Platform *config.PlatformConfigHolder
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	platform     *config.PlatformConfigHolder
	merchantRepo repository.Repository[merchantdomain.Merchant]
	packageRepo  repository.Repository[merchantdomain.PricingPackage]
	overrideRepo repository.Repository[merchantdomain.MerchantFeeOverride]
}

func NewService(p ServiceParam) feeconfigdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("feeconfig.service"),

		platform:     p.Platform,
		merchantRepo: repository.ProvideStore[merchantdomain.Merchant](p.DB),
		packageRepo:  repository.ProvideStore[merchantdomain.PricingPackage](p.DB),
		overrideRepo: repository.ProvideStore[merchantdomain.MerchantFeeOverride](p.DB),
	}
}

// Resolve merges override, package and platform values field by field. Each
// fee-bearing field is resolved independently: a merchant may override only
// the payout frequency and still inherit fees from their package.
func (s *Service) Resolve(ctx context.Context, merchantID snowflake.ID) (feeconfigdomain.EffectiveFeeConfig, error) {
	if merchantID == 0 {
		return feeconfigdomain.EffectiveFeeConfig{}, feeconfigdomain.ErrInvalidMerchant
	}

	if cached, ok := feeconfigdomain.CachedConfig(ctx, merchantID); ok {
		return cached, nil
	}

	pkg, err := s.loadPackage(ctx, merchantID)
	if err != nil {
		return feeconfigdomain.EffectiveFeeConfig{}, err
	}

	override, err := s.overrideRepo.FindOne(ctx, &merchantdomain.MerchantFeeOverride{MerchantID: merchantID})
	if err != nil {
		return feeconfigdomain.EffectiveFeeConfig{}, err
	}

	resolved := s.merge(pkg, override)
	feeconfigdomain.StoreCachedConfig(ctx, merchantID, resolved)
	return resolved, nil
}

func (s *Service) loadPackage(ctx context.Context, merchantID snowflake.ID) (*merchantdomain.PricingPackage, error) {
	merchant, err := s.merchantRepo.FindOne(ctx, &merchantdomain.Merchant{ID: merchantID})
	if err != nil {
		return nil, err
	}
	if merchant == nil || merchant.PackageID == nil {
		return nil, nil
	}

	pkg, err := s.packageRepo.FindOne(ctx, &merchantdomain.PricingPackage{ID: *merchant.PackageID})
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		s.log.Warn("merchant references missing pricing package",
			zap.String("merchant_id", merchantID.String()),
			zap.String("package_id", merchant.PackageID.String()))
	}
	return pkg, nil
}

// merge applies precedence override > package > platform default. A merchant
// with neither package nor override silently gets the platform fallbacks:
// every order must be feeable.
func (s *Service) merge(pkg *merchantdomain.PricingPackage, override *merchantdomain.MerchantFeeOverride) feeconfigdomain.EffectiveFeeConfig {
	platform := s.platform.Get()

	out := feeconfigdomain.EffectiveFeeConfig{
		FixedFeePaise:  money.Paise(platform.DefaultFixedFeePaise),
		VariableFeeBps: platform.DefaultVariableFeeBps,
		FeeCapPaise:    money.Paise(platform.DefaultFeeCapPaise),
		PayoutFreq:     merchantdomain.PayoutFrequency(platform.DefaultPayoutFrequency),
		HoldbackBps:    0,
		IsPayoutHold:   false,
	}

	if pkg != nil {
		out.FixedFeePaise = money.Paise(pkg.FixedFeePaise)
		out.VariableFeeBps = pkg.VariableFeeBps
		out.FeeCapPaise = money.Paise(pkg.FeeCapPaise)
		out.PayoutFreq = pkg.PayoutFreq
		out.HoldbackBps = pkg.HoldbackBps
		out.SourcePackageID = &pkg.ID
		out.SourcePackageName = pkg.Name
	}

	if override != nil {
		if override.FixedFeePaise != nil {
			out.FixedFeePaise = money.Paise(*override.FixedFeePaise)
		}
		if override.VariableFeeBps != nil {
			out.VariableFeeBps = *override.VariableFeeBps
		}
		if override.FeeCapPaise != nil {
			out.FeeCapPaise = money.Paise(*override.FeeCapPaise)
		}
		if override.PayoutFreq != nil {
			out.PayoutFreq = *override.PayoutFreq
		}
		if override.HoldbackBps != nil {
			out.HoldbackBps = *override.HoldbackBps
		}
		if override.IsPayoutHold != nil {
			out.IsPayoutHold = *override.IsPayoutHold
		}
	}

	return out
}
