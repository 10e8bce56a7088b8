package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arpit-jain4999/wallet-ledger/internal/export"
)

// RegisterExportRoutes wires CSV export and job lifecycle endpoints.
func RegisterExportRoutes(r fiber.Router, h *export.Handler) {
	r.Post("/wallets/:walletId/export", h.Export)
	r.Get("/exports/:jobId", h.Status)
	r.Get("/exports/:jobId/events", h.Events)
	r.Get("/exports/:jobId/download", h.Download)
}
