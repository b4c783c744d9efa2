package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/report"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// ReportHandler 只读报表
type ReportHandler struct {
	reporter *report.Reporter
}

// NewReportHandler 创建报表处理器
func NewReportHandler(reporter *report.Reporter) *ReportHandler {
	return &ReportHandler{reporter: reporter}
}

// Reconciliation 快照对账
// @Summary      快照对账
// @Description  列出在手数量与流水合计不一致、或预占与持有中预占不一致的SKU
// @Tags         报表
// @Produce      json
// @Param        store_id query int false "门店ID,不传表示全部"
// @Success      200 {object} response.Response{data=[]report.DriftRow}
// @Router       /api/v1/reports/reconciliation [get]
func (h *ReportHandler) Reconciliation(c *gin.Context) {
	var req dto.StoreFilter
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	rows, err := h.reporter.Reconciliation(c.Request.Context(), req.StoreID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rows)
}

// MovementSummary 流水汇总
// @Summary      流水汇总
// @Description  门店在[from, to)区间内按类型汇总
// @Tags         报表
// @Produce      json
// @Param        store_id query int true "门店ID"
// @Param        from query string true "开始时间(RFC3339)"
// @Param        to query string true "结束时间(RFC3339)"
// @Success      200 {object} response.Response{data=[]report.MovementSummaryRow}
// @Router       /api/v1/reports/movements [get]
func (h *ReportHandler) MovementSummary(c *gin.Context) {
	var req dto.MovementSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	rows, err := h.reporter.MovementSummary(c.Request.Context(), req.StoreID, req.From, req.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rows)
}

// BatchValuation 批次估值
// @Summary      批次估值
// @Tags         报表
// @Produce      json
// @Param        store_id query int true "门店ID"
// @Success      200 {object} response.Response{data=[]report.BatchValuationRow}
// @Router       /api/v1/reports/batch-valuation [get]
func (h *ReportHandler) BatchValuation(c *gin.Context) {
	var req dto.BatchValuationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	rows, err := h.reporter.BatchValuation(c.Request.Context(), req.StoreID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rows)
}
