package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// BatchHandler 批次追溯
type BatchHandler struct {
	batches *inventory.BatchTracker
}

// NewBatchHandler 创建批次处理器
func NewBatchHandler(batches *inventory.BatchTracker) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// TraceLot 批号追溯
// @Summary      批号追溯
// @Description  召回时查询某批号在各门店的剩余数量
// @Tags         批次
// @Produce      json
// @Param        lot_number path string true "批号"
// @Success      200 {object} response.Response{data=[]dto.BatchResponse}
// @Router       /api/v1/lots/{lot_number}/batches [get]
func (h *BatchHandler) TraceLot(c *gin.Context) {
	lot, ok := stringParam(c, "lot_number")
	if !ok {
		return
	}

	list, err := h.batches.TraceLot(c.Request.Context(), lot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBatchList(list))
}

// Get 查询批次
// @Summary      查询批次
// @Tags         批次
// @Produce      json
// @Param        id path int true "批次ID"
// @Success      200 {object} response.Response{data=dto.BatchResponse}
// @Failure      404 {object} response.Response "批次不存在"
// @Router       /api/v1/batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	b, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBatchResponse(b))
}

// Consume 批次扣减
// @Summary      批次扣减
// @Description  指定批次或先进先出扣减剩余量,数量不足时不做部分扣减
// @Tags         批次
// @Accept       json
// @Produce      json
// @Param        request body dto.ConsumeBatchRequest true "扣减"
// @Success      200 {object} response.Response{data=[]batch.Allocation}
// @Failure      400 {object} response.Response "批次剩余数量不足"
// @Router       /api/v1/batches/consume [post]
func (h *BatchHandler) Consume(c *gin.Context) {
	var req dto.ConsumeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	allocations, err := h.batches.Consume(c.Request.Context(), inventory.ConsumeRequest{
		StoreID:  req.StoreID,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		BatchID:  req.BatchID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, allocations)
}
