package handler

import (
	"pix-reconciler/internal/adapter/http/dto"
	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"
	"pix-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 20

// ReportHandler serves report projections to operators.
type ReportHandler struct {
	reportSvc ports.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportSvc ports.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Summary handles GET /api/v1/reports/summary.
func (h *ReportHandler) Summary(c *gin.Context) {
	report, err := h.reportSvc.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Product handles GET /api/v1/reports/product.
func (h *ReportHandler) Product(c *gin.Context) {
	report, err := h.reportSvc.Product(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Transactions handles GET /api/v1/reports/transactions.
func (h *ReportHandler) Transactions(c *gin.Context) {
	var q dto.TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}

	filter := ports.DetailFilter{Page: q.Page, PageSize: q.PageSize}
	if q.Status != "" {
		status, err := domain.ParseChargeStatus(q.Status)
		if err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		filter.Status = &status
	}

	items, total, err := h.reportSvc.Details(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize
	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	})
}
