package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/arpit-jain4999/wallet-ledger/internal/money"
	"github.com/arpit-jain4999/wallet-ledger/internal/transaction"
	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

const dateLayout = "2006-01-02"

// Handler exposes ledger HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type transactRequest struct {
	// Amount is a signed decimal string; numbers are not accepted so
	// precision is never lost to client-side floats.
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type transactionResponse struct {
	ID           string    `json:"id"`
	WalletID     string    `json:"walletId"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balanceAfter"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Transact applies a credit or debit to the wallet.
func (h *Handler) Transact(c *fiber.Ctx) error {
	var req transactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transact(c.UserContext(), c.Params("walletId"), req.Amount, req.Description)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"balance":       money.Format(res.Balance),
		"transactionId": res.TransactionID,
	})
}

// List returns one filtered page of the wallet's ledger plus the total count.
func (h *Handler) List(c *fiber.Ctx) error {
	q := transaction.Query{
		WalletID: c.Params("walletId"),
		Skip:     c.QueryInt("skip", 0),
		Limit:    c.QueryInt("limit", 10),
		SortBy:   transaction.SortField(c.Query("sortBy")),
		Order:    transaction.SortOrder(c.Query("sortOrder")),
		Search:   c.Query("search"),
		Type:     transaction.Type(c.Query("type")),
	}
	if q.Skip < 0 || q.Limit < 1 || q.Limit > 100 {
		return fiber.NewError(http.StatusBadRequest, "skip must be >= 0 and limit between 1 and 100")
	}
	switch q.SortBy {
	case "", transaction.SortByDate, transaction.SortByAmount:
	default:
		return fiber.NewError(http.StatusBadRequest, "sortBy must be date or amount")
	}
	switch q.Order {
	case "", transaction.OrderAsc, transaction.OrderDesc:
	default:
		return fiber.NewError(http.StatusBadRequest, "sortOrder must be asc or desc")
	}
	switch q.Type {
	case "", transaction.TypeCredit, transaction.TypeDebit:
	default:
		return fiber.NewError(http.StatusBadRequest, "type must be CREDIT or DEBIT")
	}

	var err error
	if q.From, err = parseDate(c.Query("fromDate")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "fromDate must be YYYY-MM-DD")
	}
	if q.To, err = parseDate(c.Query("toDate")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "toDate must be YYYY-MM-DD")
	}

	items, total, err := h.service.ListTransactions(c.UserContext(), q)
	if err != nil {
		return mapError(err)
	}

	responses := make([]transactionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toTransactionResponse(item))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"items": responses, "total": total})
}

// Summary returns aggregate credit/debit totals for the wallet.
func (h *Handler) Summary(c *fiber.Ctx) error {
	s, err := h.service.GetSummary(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"totalCredits":      money.Format(s.TotalCredits),
		"totalDebits":       money.Format(s.TotalDebits),
		"totalTransactions": s.TotalTransactions,
	})
}

func toTransactionResponse(t transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		WalletID:     t.WalletID,
		Type:         string(t.Type),
		Amount:       money.Format(t.Amount),
		BalanceAfter: money.Format(t.BalanceAfter),
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, ErrInvalidRange):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
