package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet provisioning and lookup endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:walletId", h.Get)
}
