package export

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/arpit-jain4999/wallet-ledger/internal/wallet"
)

// Handler exposes export HTTP endpoints.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler builds an export HTTP handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// toJobResponse strips the artifact: status payloads stay small, the CSV is
// served by Download.
func toJobResponse(job Job) Job {
	job.Download = ""
	return job
}

// Export starts an export: small histories come back as CSV in this response,
// larger ones return a job handle with 202.
func (h *Handler) Export(c *fiber.Ctx) error {
	res, err := h.coordinator.Export(c.UserContext(), c.Params("walletId"))
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ErrTooManyRecords):
			return fiber.NewError(http.StatusRequestEntityTooLarge, err.Error())
		default:
			return err
		}
	}

	if res.Job != nil {
		return c.Status(http.StatusAccepted).JSON(toJobResponse(*res.Job))
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Status(http.StatusOK).SendString(res.CSV)
}

// Status returns the job snapshot without the download artifact.
func (h *Handler) Status(c *fiber.Ctx) error {
	job, err := h.coordinator.JobStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return fiber.NewError(http.StatusNotFound, "export job not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(toJobResponse(job))
}

// Events streams job snapshots as server-sent events. The stream server-closes
// after a terminal snapshot has been written.
func (h *Handler) Events(c *fiber.Ctx) error {
	ch, cancel, err := h.coordinator.SubscribeProgress(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return fiber.NewError(http.StatusNotFound, "export job not found")
		}
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for snapshot := range ch {
			payload, err := json.Marshal(toJobResponse(snapshot))
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				// Subscriber went away; the background job keeps running.
				return
			}
		}
	})
	return nil
}

// Download serves the decoded CSV artifact of a completed job.
func (h *Handler) Download(c *fiber.Ctx) error {
	job, err := h.coordinator.JobStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return fiber.NewError(http.StatusNotFound, "export job not found")
		}
		return err
	}
	if job.Status != StatusCompleted {
		return fiber.NewError(http.StatusConflict, fmt.Sprintf("export job is %s", job.Status))
	}

	csv, err := base64.StdEncoding.DecodeString(job.Download)
	if err != nil {
		return fmt.Errorf("decode artifact for job %s: %w", job.ID, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Status(http.StatusOK).Send(csv)
}
