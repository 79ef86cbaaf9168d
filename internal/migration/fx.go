package migration

import (
	"github.com/storekit/vendra/internal/config"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	merchantdomain "github.com/storekit/vendra/internal/merchant/domain"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	ordernumberdomain "github.com/storekit/vendra/internal/ordernumber/domain"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Local sqlite and mysql setups lean on gorm instead of the
			// embedded postgres migration files.
			return conn.AutoMigrate(
				&merchantdomain.Merchant{},
				&merchantdomain.PricingPackage{},
				&merchantdomain.MerchantFeeOverride{},
				&orderdomain.Order{},
				&ordernumberdomain.Counter{},
				&ledgerdomain.Entry{},
				&billingdomain.PlatformBillingProfile{},
				&billingdomain.PlatformInvoice{},
				&billingdomain.InvoiceLineItem{},
				&billingdomain.BillingCycle{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
