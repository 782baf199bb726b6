package handler

import (
	"errors"
	"io"

	"pix-reconciler/internal/adapter/http/dto"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"
	"pix-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChargeHandler handles charge endpoints.
type ChargeHandler struct {
	chargeSvc ports.ChargeService
}

// NewChargeHandler creates a new ChargeHandler.
func NewChargeHandler(chargeSvc ports.ChargeService) *ChargeHandler {
	return &ChargeHandler{chargeSvc: chargeSvc}
}

// Create handles POST /api/v1/charges.
func (h *ChargeHandler) Create(c *gin.Context) {
	var req dto.CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	charge, err := h.chargeSvc.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewChargeResponse(charge))
}

// Get handles GET /api/v1/charges/:id.
func (h *ChargeHandler) Get(c *gin.Context) {
	charge, err := h.chargeSvc.Check(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewChargeResponse(charge))
}

// Simulate handles POST /api/v1/charges/:id/simulate. The body is optional.
func (h *ChargeHandler) Simulate(c *gin.Context) {
	var req dto.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	charge, err := h.chargeSvc.Simulate(c.Request.Context(), c.Param("id"), req.Metadata)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewChargeResponse(charge))
}
