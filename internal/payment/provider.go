// Package payment defines the abstract payment-provider boundary the
// wallet's deposit/withdrawal flows depend on, plus a SandboxProvider
// suitable for local runs and tests: an in-memory stand-in that
// fabricates order IDs and completes deposits synchronously rather than
// calling out to a real processor.
package payment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// OrderStatus mirrors the payment provider's own order lifecycle, as
// reported back from GetOrder/CaptureOrder.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderApproved  OrderStatus = "approved"
	OrderCompleted OrderStatus = "completed"
	OrderVoided    OrderStatus = "voided"
)

// PayoutStatus mirrors the provider's payout batch lifecycle.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

var (
	ErrOrderNotFound = errors.New("payment: order not found")
	ErrOrderNotOwned = errors.New("payment: order belongs to a different account")
)

// Order is the provider's view of one deposit order.
type Order struct {
	OrderID     string
	ApprovalURL string
	Amount      int64
	Currency    string
	Status      OrderStatus
}

// Payout is the provider's view of one outbound withdrawal payout.
type Payout struct {
	BatchID string
	Status  PayoutStatus
}

// Provider is the four-method payment boundary: create/inspect/capture
// a deposit order, and send an outbound payout. Token lifetime (for
// providers that need an OAuth-style access token, e.g. a
// PayPal-shaped backend) is managed internally by the implementation
// with a safety margin of at least 60s before the advertised expiry; the
// interface itself never exposes a token.
type Provider interface {
	CreateOrder(amount int64, currency, description string) (Order, error)
	GetOrder(orderID string) (Order, error)
	CaptureOrder(orderID string) (Order, error)
	SendPayout(destination string, amount int64, currency string) (Payout, error)
}

// SandboxProvider is an in-memory Provider: it never makes a network
// call. CreateOrder returns an order already eligible for capture, and
// CaptureOrder completes it synchronously — enough to exercise the
// wallet's two-phase deposit flow end to end in tests and local runs.
type SandboxProvider struct {
	mu      sync.Mutex
	orders  map[string]*Order
	payouts map[string]*Payout

	approvalBaseURL string
}

// NewSandboxProvider builds a SandboxProvider. approvalBaseURL is
// prefixed to a fabricated order ID to build the approval_url the client
// would otherwise be redirected to; it exists purely so the URL scheme
// is configuration, not a hardcoded domain.
func NewSandboxProvider(approvalBaseURL string) *SandboxProvider {
	if approvalBaseURL == "" {
		approvalBaseURL = "sandbox://approve"
	}
	return &SandboxProvider{
		orders:          make(map[string]*Order),
		payouts:         make(map[string]*Payout),
		approvalBaseURL: approvalBaseURL,
	}
}

func (p *SandboxProvider) CreateOrder(amount int64, currency, description string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	order := &Order{
		OrderID:     id,
		ApprovalURL: fmt.Sprintf("%s/%s", p.approvalBaseURL, id),
		Amount:      amount,
		Currency:    currency,
		Status:      OrderCreated,
	}
	p.orders[id] = order
	return *order, nil
}

func (p *SandboxProvider) GetOrder(orderID string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *order, nil
}

// CaptureOrder marks the order approved-then-completed in one call; a
// real processor would require the payer to approve out of band first,
// but the sandbox has nobody to wait on.
func (p *SandboxProvider) CaptureOrder(orderID string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	order.Status = OrderCompleted
	return *order, nil
}

func (p *SandboxProvider) SendPayout(destination string, amount int64, currency string) (Payout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	batchID := uuid.NewString()
	payout := &Payout{BatchID: batchID, Status: PayoutCompleted}
	p.payouts[batchID] = payout
	return *payout, nil
}
