// Package in holds the inbound HTTP adapter: fiber handlers that
// translate requests into command/query use-case calls and domain
// errors into response bodies.
package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
	"github.com/msdcl/payment-ledger-system-sub000/internal/services/command"
	"github.com/msdcl/payment-ledger-system-sub000/internal/services/query"
)

// PaymentHandler exposes the payment admission and lookup endpoints.
type PaymentHandler struct {
	Command *command.UseCase
	Query   *query.UseCase
}

type createPaymentRequest struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
}

type paymentResponse struct {
	ID                  string  `json:"id"`
	Amount              string  `json:"amount"`
	Currency            string  `json:"currency"`
	FromAccountID       string  `json:"from_account_id"`
	ToAccountID         string  `json:"to_account_id"`
	Status              string  `json:"status"`
	FailureReason       *string `json:"failure_reason,omitempty"`
	LedgerTransactionID *string `json:"ledger_transaction_id,omitempty"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

func toPaymentResponse(p payment.Payment) paymentResponse {
	var ledgerTxID *string
	if p.LedgerTransactionID != nil {
		s := p.LedgerTransactionID.String()
		ledgerTxID = &s
	}

	return paymentResponse{
		ID:                  p.ID.String(),
		Amount:              p.Amount.String(),
		Currency:            string(p.Currency),
		FromAccountID:       p.FromAccountID.String(),
		ToAccountID:         p.ToAccountID.String(),
		Status:              string(p.Status),
		FailureReason:       p.FailureReason,
		LedgerTransactionID: ledgerTxID,
		CreatedAt:           p.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:           p.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// headerIdempotencyKey is the dedup-key carrier per the admission API
// contract: every create-payment request must carry it.
const headerIdempotencyKey = "Idempotency-Key"

// CreatePayment handles POST /api/payments.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Message: "malformed request body"})
	}

	dedupKey := c.Get(headerIdempotencyKey)
	if dedupKey == "" {
		return WithError(c, apperr.ErrMissingDedupKey)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "amount", Message: "amount must be a decimal string"})
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "from_account_id", Message: "must be a valid uuid"})
	}

	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "to_account_id", Message: "must be a valid uuid"})
	}

	result, err := h.Command.AdmitPayment(c.UserContext(), command.AdmitPaymentInput{
		Amount:      amount,
		Currency:    payment.Currency(req.Currency),
		FromAccount: fromID,
		ToAccount:   toID,
		DedupKey:    dedupKey,
	})
	if err != nil {
		return WithError(c, err)
	}

	body := toPaymentResponse(result.Payment)

	if result.Created {
		return c.Status(fiber.StatusCreated).JSON(body)
	}

	return c.Status(fiber.StatusOK).JSON(body)
}

// GetPayment handles GET /api/payments/:id.
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "id", Message: "must be a valid uuid"})
	}

	p, err := h.Query.GetPayment(c.UserContext(), id)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toPaymentResponse(p))
}

// SettlePayment handles POST /api/payments/:id/settle.
func (h *PaymentHandler) SettlePayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "id", Message: "must be a valid uuid"})
	}

	if _, err := h.Command.Settle(c.UserContext(), id); err != nil {
		return WithError(c, err)
	}

	p, err := h.Query.GetPayment(c.UserContext(), id)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toPaymentResponse(p))
}

// AuthorizePayment handles POST /api/payments/:id/authorize.
func (h *PaymentHandler) AuthorizePayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WithError(c, apperr.ValidationError{EntityType: "Payment", Field: "id", Message: "must be a valid uuid"})
	}

	p, err := h.Command.AuthorizePayment(c.UserContext(), id)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toPaymentResponse(p))
}
