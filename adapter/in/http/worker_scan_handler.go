package http

import (
	"errors"

	"subscription_server/core/domain"
	"subscription_server/core/port/in"
	"subscription_server/core/port/out"
	"subscription_server/core/service/scan"
	"subscription_server/pkg/apperr"
	"subscription_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type ScanHandler struct {
	scanService in.ScanService
	producer    out.JobProducer // nil: scan runs inside the request
}

func NewScanHandler(scanService in.ScanService, producer out.JobProducer) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
		producer:    producer,
	}
}

// Register registers scan routes. trigger wraps POST /scan (rate limiting).
func (h *ScanHandler) Register(router fiber.Router, trigger ...fiber.Handler) {
	scans := router.Group("/scan")
	scans.Post("/", append(trigger, h.Trigger)...)
	scans.Get("/latest", h.Latest)
	scans.Get("/history", h.History)
	scans.Get("/:id/evidence", h.Evidence)
}

// Trigger queues a manual scan; 409 when one is already running.
func (h *ScanHandler) Trigger(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	latest, err := h.scanService.Latest(c.Context(), userID)
	if err != nil {
		return apperr.DatabaseError("get latest scan", err)
	}
	if latest != nil && latest.Status == domain.ScanRunning {
		return apperr.ScanInProgress().WithDetail("scan_id", latest.ID)
	}

	if h.producer != nil {
		job := &out.ScanJob{UserID: userID.String(), Trigger: string(domain.TriggerManual)}
		if err := h.producer.PublishScan(c.Context(), job); err != nil {
			return apperr.ExternalError("queue", err)
		}
		logger.WithUser(userID).Info("[ScanHandler.Trigger] scan queued")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
	}

	summary, err := h.scanService.Run(c.Context(), userID, domain.TriggerManual)
	if err != nil {
		return scanError(err)
	}
	return SuccessResponse(c, summary)
}

func (h *ScanHandler) Latest(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	run, err := h.scanService.Latest(c.Context(), userID)
	if err != nil {
		return apperr.DatabaseError("get latest scan", err)
	}
	if run == nil {
		return apperr.NotFound("scan")
	}
	return SuccessResponse(c, run)
}

func (h *ScanHandler) History(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	p := GetPaginationParams(c, 20)
	runs, err := h.scanService.History(c.Context(), userID, p.Limit)
	if err != nil {
		return apperr.DatabaseError("list scans", err)
	}
	return SuccessResponse(c, runs)
}

func (h *ScanHandler) Evidence(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	scanID, err := c.ParamsInt("id")
	if err != nil || scanID <= 0 {
		return apperr.InvalidInput("id", "must be a positive integer")
	}
	evidence, err := h.scanService.Evidence(c.Context(), userID, int64(scanID))
	if err != nil {
		return apperr.ExternalError("archive", err)
	}
	return SuccessResponse(c, evidence)
}

func scanError(err error) error {
	switch {
	case errors.Is(err, scan.ErrScanInProgress):
		return apperr.ScanInProgress()
	case errors.Is(err, out.ErrMailNotConnected):
		return apperr.MailNotConnected()
	case errors.Is(err, out.ErrTokenRefreshFailed):
		return apperr.TokenRefreshFailed(err)
	default:
		return apperr.Wrap(err, apperr.CodeInternalError, "scan failed", fiber.StatusInternalServerError)
	}
}
