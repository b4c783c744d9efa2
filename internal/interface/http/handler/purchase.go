package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// PurchaseOrderHandler 采购单与收货
type PurchaseOrderHandler struct {
	receiver *inventory.Receiver
	batches  *inventory.BatchTracker
}

// NewPurchaseOrderHandler 创建采购单处理器
func NewPurchaseOrderHandler(receiver *inventory.Receiver, batches *inventory.BatchTracker) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{receiver: receiver, batches: batches}
}

// Create 录入采购单
// @Summary      录入采购单
// @Tags         采购
// @Accept       json
// @Produce      json
// @Param        request body dto.CreatePurchaseOrderRequest true "采购单"
// @Success      200 {object} response.Response{data=dto.PurchaseOrderResponse}
// @Failure      409 {object} response.Response "采购单号已存在"
// @Router       /api/v1/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	items := make([]purchase.Item, 0, len(req.Items))
	for _, i := range req.Items {
		items = append(items, i.ToItem())
	}
	o, err := h.receiver.Create(c.Request.Context(), inventory.CreateOrderRequest{
		PONumber:     req.PONumber,
		SupplierID:   req.SupplierID,
		StoreID:      req.StoreID,
		ExpectedDate: req.ExpectedDate,
		Items:        items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPurchaseOrderResponse(o))
}

// Get 查询采购单
// @Summary      查询采购单
// @Tags         采购
// @Produce      json
// @Param        id path int true "采购单ID"
// @Success      200 {object} response.Response{data=dto.PurchaseOrderResponse}
// @Failure      404 {object} response.Response "采购单不存在"
// @Router       /api/v1/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	o, err := h.receiver.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPurchaseOrderResponse(o))
}

// List 按状态分页查询
// @Summary      采购单列表
// @Tags         采购
// @Produce      json
// @Param        status query string false "状态" Enums(pending, received, cancelled)
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.PurchaseOrderResponse}}
// @Router       /api/v1/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var req dto.ListPurchaseOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Normalize()
	if req.Status == "" {
		req.Status = string(purchase.StatusPending)
	}

	list, total, err := h.receiver.ListByStatus(c.Request.Context(), purchase.Status(req.Status), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewPurchaseOrderList(list), total, req.Page, req.PageSize)
}

// Receive 整单收货
// @Summary      采购单收货
// @Description  所有明细在一个事务内入库并生成批次,任意一行失败整单回滚;重复收货是空操作
// @Tags         采购
// @Produce      json
// @Param        id path int true "采购单ID"
// @Success      200 {object} response.Response{data=dto.PurchaseOrderResponse}
// @Failure      400 {object} response.Response "收货失败(整单回滚)"
// @Router       /api/v1/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	o, err := h.receiver.Receive(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPurchaseOrderResponse(o))
}

// Cancel 取消采购单
// @Summary      取消采购单
// @Tags         采购
// @Produce      json
// @Param        id path int true "采购单ID"
// @Success      200 {object} response.Response{data=dto.PurchaseOrderResponse}
// @Failure      400 {object} response.Response "状态不允许取消"
// @Router       /api/v1/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	o, err := h.receiver.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPurchaseOrderResponse(o))
}

// Batches 采购单生成的批次
// @Summary      采购单批次
// @Tags         采购
// @Produce      json
// @Param        id path int true "采购单ID"
// @Success      200 {object} response.Response{data=[]dto.BatchResponse}
// @Router       /api/v1/purchase-orders/{id}/batches [get]
func (h *PurchaseOrderHandler) Batches(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	list, err := h.batches.ListByPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBatchList(list))
}
