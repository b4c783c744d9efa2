package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/domain/asn"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// ASNHandler 发货通知暂存与转采购单
type ASNHandler struct {
	promoter *inventory.ASNPromoter
}

// NewASNHandler 创建ASN处理器
func NewASNHandler(promoter *inventory.ASNPromoter) *ASNHandler {
	return &ASNHandler{promoter: promoter}
}

// Stage 导入暂存行
// @Summary      导入ASN暂存行
// @Description  同一会话可分多次导入,会话转为采购单后拒绝追加
// @Tags         ASN
// @Accept       json
// @Produce      json
// @Param        session_id path string true "会话ID"
// @Param        request body dto.StageLinesRequest true "暂存行"
// @Success      200 {object} response.Response{data=dto.StageResponse}
// @Router       /api/v1/asn/{session_id}/lines [post]
func (h *ASNHandler) Stage(c *gin.Context) {
	sessionID, ok := stringParam(c, "session_id")
	if !ok {
		return
	}
	var req dto.StageLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	lines := make([]*asn.StagedLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, l.ToStagedLine(sessionID))
	}
	n, err := h.promoter.Stage(c.Request.Context(), sessionID, lines)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.StageResponse{SessionID: sessionID, Lines: n})
}

// Lines 查询暂存行
// @Summary      查询ASN暂存行
// @Tags         ASN
// @Produce      json
// @Param        session_id path string true "会话ID"
// @Success      200 {object} response.Response{data=[]dto.StagedLineResponse}
// @Router       /api/v1/asn/{session_id}/lines [get]
func (h *ASNHandler) Lines(c *gin.Context) {
	sessionID, ok := stringParam(c, "session_id")
	if !ok {
		return
	}

	lines, err := h.promoter.Lines(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewStagedLineList(lines))
}

// Promote 暂存行转采购单
// @Summary      ASN转采购单
// @Description  生成待收货采购单并清空暂存;中途失败可重试,不会生成重复采购单
// @Tags         ASN
// @Accept       json
// @Produce      json
// @Param        session_id path string true "会话ID"
// @Param        request body dto.PromoteRequest false "采购单号等可选信息"
// @Success      200 {object} response.Response{data=dto.PromoteResponse}
// @Failure      400 {object} response.Response "暂存数据不一致"
// @Router       /api/v1/asn/{session_id}/promote [post]
func (h *ASNHandler) Promote(c *gin.Context) {
	sessionID, ok := stringParam(c, "session_id")
	if !ok {
		return
	}
	var req dto.PromoteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	res, err := h.promoter.Promote(c.Request.Context(), inventory.PromoteRequest{
		SessionID:    sessionID,
		PONumber:     req.PONumber,
		SupplierID:   req.SupplierID,
		ExpectedDate: req.ExpectedDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.PromoteResponse{
		PurchaseOrder: dto.NewPurchaseOrderResponse(res.Order),
		Repaired:      res.Repaired,
	})
}
