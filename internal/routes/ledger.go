package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arpit-jain4999/wallet-ledger/internal/ledger"
)

// RegisterLedgerRoutes wires money movement and ledger read endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/wallets/:walletId/transactions", h.Transact)
	r.Get("/wallets/:walletId/transactions", h.List)
	r.Get("/wallets/:walletId/summary", h.Summary)
}
