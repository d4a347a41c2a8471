package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/service/ledger"
	"github.com/mamadbah2/cafeledger/internal/service/reporting"
)

const defaultArchiveLimit = 10

// ReportArchive lists previously archived report snapshots.
type ReportArchive interface {
	LatestReports(ctx context.Context, period string, limit int64) ([]models.ReportSnapshot, error)
}

// ReportHandler serves on-demand reports and the snapshot archive.
type ReportHandler struct {
	svc     *reporting.Service
	archive ReportArchive
	logger  *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter. archive may be nil
// when no archive is configured.
func NewReportHandler(svc *reporting.Service, archive ReportArchive, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, archive: archive, logger: logger}
}

// Generate handles GET /api/reports/:period.
func (h *ReportHandler) Generate(c *gin.Context) {
	period, err := reporting.ParsePeriod(c.Param("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ledger.NewOutcome(nil, err))
		return
	}

	report, err := h.svc.Generate(c.Request.Context(), period)
	if err != nil {
		h.logger.Error("report generation failed", zap.String("period", string(period)), zap.Error(err))
		outcome := ledger.NewOutcome(nil, err)
		c.JSON(StatusFor(outcome.ErrorKind), outcome)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Archive handles GET /api/archive/reports?period=&limit=.
func (h *ReportHandler) Archive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report archive is not configured"})
		return
	}

	period := c.Query("period")
	if period != "" {
		if _, err := reporting.ParsePeriod(period); err != nil {
			c.JSON(http.StatusBadRequest, ledger.NewOutcome(nil, err))
			return
		}
	}

	limit := int64(defaultArchiveLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ledger.NewOutcome(nil, models.Invalid("limit", "must be a positive integer")))
			return
		}
		limit = n
	}

	snapshots, err := h.archive.LatestReports(c.Request.Context(), period, limit)
	if err != nil {
		h.logger.Error("report archive lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to read report archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": snapshots})
}
