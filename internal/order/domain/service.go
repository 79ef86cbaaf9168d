package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/money"
)

type CreateOrderRequest struct {
	MerchantID     snowflake.ID
	ItemsTotal     money.Paise
	ShippingFee    money.Paise
	TaxAmount      money.Paise
	DiscountAmount money.Paise
}

type ListOrdersRequest struct {
	MerchantID  snowflake.ID
	Stage       *Stage
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
}

type Service interface {
	// Create places an order: resolve fee config, compute the breakdown,
	// allocate the order number and write the ledger legs, all inside one
	// transaction. On any failure nothing is persisted.
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)

	GetByID(ctx context.Context, merchantID, orderID snowflake.ID) (Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, error)

	// MarkPaid records payment capture: stage -> CONFIRMED and the order's
	// ledger entries advance PENDING -> PROCESSING.
	MarkPaid(ctx context.Context, orderID snowflake.ID) error

	// MarkSettled records payout completion: stage -> SETTLED, ledger
	// entries PROCESSING -> SETTLED.
	MarkSettled(ctx context.Context, orderID snowflake.ID) error

	// Cancel aborts an order still in a cancellable stage and appends
	// offsetting ledger entries. Settled orders cannot be cancelled.
	Cancel(ctx context.Context, orderID snowflake.ID, reason string) error
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidAmount   = errors.New("invalid_order_amount")
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrNotCancellable  = errors.New("order_not_cancellable")
	ErrInvalidStage    = errors.New("invalid_order_stage")
	ErrAlreadyPaid     = errors.New("order_already_paid")
	ErrNotPaid         = errors.New("order_not_paid")
)
