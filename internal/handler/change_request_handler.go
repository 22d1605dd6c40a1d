package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/service"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
	"github.com/noah-isme/sma-rapor-api/pkg/response"
)

// ChangeRequestHandler exposes the change request endpoint.
type ChangeRequestHandler struct {
	changes *service.ChangeRequestService
}

// NewChangeRequestHandler constructs handler.
func NewChangeRequestHandler(changes *service.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{changes: changes}
}

// Stage godoc
// @Summary Stage grade revisions for re-approval
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.ChangeRequest true "Change request payload"
// @Success 200 {object} response.Envelope
// @Router /grades/change-request [post]
func (h *ChangeRequestHandler) Stage(c *gin.Context) {
	var req dto.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.changes.Stage(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
