package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/domain/ledger"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// StockHandler 库存快照与流水
type StockHandler struct {
	ledger *inventory.Ledger
	store  *inventory.SnapshotStore
}

// NewStockHandler 创建库存处理器
func NewStockHandler(lg *inventory.Ledger, store *inventory.SnapshotStore) *StockHandler {
	return &StockHandler{ledger: lg, store: store}
}

// GetSnapshot 查询门店SKU库存
// @Summary      查询库存快照
// @Description  返回在手、预占、可售数量,优先读缓存
// @Tags         库存
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        sku path string true "SKU"
// @Success      200 {object} response.Response{data=dto.SnapshotResponse}
// @Failure      404 {object} response.Response "快照不存在"
// @Router       /api/v1/stores/{store_id}/stock/{sku} [get]
func (h *StockHandler) GetSnapshot(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	sku, ok := stringParam(c, "sku")
	if !ok {
		return
	}

	snap, err := h.store.Get(c.Request.Context(), storeID, sku)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewSnapshotResponse(snap))
}

// ListSnapshots 门店库存列表
// @Summary      门店库存列表
// @Tags         库存
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.SnapshotResponse}}
// @Router       /api/v1/stores/{store_id}/stock [get]
func (h *StockHandler) ListSnapshots(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Normalize()

	list, total, err := h.store.List(c.Request.Context(), storeID, req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewSnapshotList(list), total, req.Page, req.PageSize)
}

// ListLowStock 低库存SKU
// @Summary      低库存列表
// @Description  可售量不高于补货点的SKU,供补货使用
// @Tags         库存
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Success      200 {object} response.Response{data=[]dto.SnapshotResponse}
// @Router       /api/v1/stores/{store_id}/low-stock [get]
func (h *StockHandler) ListLowStock(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}

	list, err := h.store.ListLowStock(c.Request.Context(), storeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewSnapshotList(list))
}

// History 流水历史
// @Summary      库存流水历史
// @Description  按流水序号倒序分页
// @Tags         库存
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        sku path string true "SKU"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.MovementResponse}}
// @Router       /api/v1/stores/{store_id}/stock/{sku}/movements [get]
func (h *StockHandler) History(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	sku, ok := stringParam(c, "sku")
	if !ok {
		return
	}
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Normalize()

	list, total, err := h.ledger.History(c.Request.Context(), storeID, sku, req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewMovementList(list), total, req.Page, req.PageSize)
}

// ByReference 按业务单据查询流水
// @Summary      按单据查询流水
// @Tags         库存
// @Produce      json
// @Param        ref_type query string true "单据类型" example(purchase_order)
// @Param        ref_id query string true "单据ID"
// @Success      200 {object} response.Response{data=[]dto.MovementResponse}
// @Router       /api/v1/movements [get]
func (h *StockHandler) ByReference(c *gin.Context) {
	refType, refID := c.Query("ref_type"), c.Query("ref_id")
	if refType == "" || refID == "" {
		bindError(c, errMissingReference)
		return
	}

	list, err := h.ledger.ByReference(c.Request.Context(), refType, refID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewMovementList(list))
}

// AppendMovement 记一笔流水
// @Summary      记库存流水
// @Description  破损、丢失、过期、退货、调整等;销售走预占提交,采购走收货
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        request body dto.AppendMovementRequest true "流水"
// @Success      200 {object} response.Response{data=dto.MovementResponse}
// @Failure      400 {object} response.Response "流水结构不合法"
// @Router       /api/v1/movements [post]
func (h *StockHandler) AppendMovement(c *gin.Context) {
	var req dto.AppendMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	m, err := h.ledger.Append(c.Request.Context(), inventory.AppendRequest{
		StoreID:       req.StoreID,
		SKU:           req.SKU,
		Type:          ledger.MovementType(req.Type),
		QuantityDelta: req.QuantityDelta,
		UnitCost:      req.UnitCost,
		UnitPrice:     req.UnitPrice,
		Reference:     ledger.Reference{Type: req.ReferenceType, ID: req.ReferenceID},
		BatchID:       req.BatchID,
		Note:          req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewMovementResponse(m))
}

// Transfer 门店间调拨
// @Summary      门店调拨
// @Description  同一事务写调出、调入两条流水
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        request body dto.TransferRequest true "调拨"
// @Success      200 {object} response.Response{data=dto.TransferResponse}
// @Router       /api/v1/transfers [post]
func (h *StockHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ledger.Transfer(c.Request.Context(), inventory.TransferRequest{
		FromStoreID: req.FromStoreID,
		ToStoreID:   req.ToStoreID,
		SKU:         req.SKU,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		TransferID:  req.TransferID,
		Note:        req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.TransferResponse{
		TransferID: res.TransferID,
		Out:        dto.NewMovementResponse(res.Out),
		In:         dto.NewMovementResponse(res.In),
	})
}

// Count 盘点
// @Summary      盘点
// @Description  按盘点数与账面差额写一条调整流水
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        sku path string true "SKU"
// @Param        request body dto.CountRequest true "盘点数"
// @Success      200 {object} response.Response{data=dto.CountResponse}
// @Router       /api/v1/stores/{store_id}/stock/{sku}/count [post]
func (h *StockHandler) Count(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	sku, ok := stringParam(c, "sku")
	if !ok {
		return
	}
	var req dto.CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.store.Count(c.Request.Context(), storeID, sku, *req.Counted, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.CountResponse{
		Snapshot: dto.NewSnapshotResponse(res.Snapshot),
		Movement: dto.NewMovementResponse(res.Movement),
	})
}

// SetReorderPolicy 设置补货点
// @Summary      设置补货点
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        sku path string true "SKU"
// @Param        request body dto.ReorderPolicyRequest true "补货策略"
// @Success      200 {object} response.Response{data=dto.SnapshotResponse}
// @Router       /api/v1/stores/{store_id}/stock/{sku}/reorder-policy [put]
func (h *StockHandler) SetReorderPolicy(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	sku, ok := stringParam(c, "sku")
	if !ok {
		return
	}
	var req dto.ReorderPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	snap, err := h.store.SetReorderPolicy(c.Request.Context(), storeID, sku, *req.ReorderPoint, req.ReorderQuantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewSnapshotResponse(snap))
}

// Rebuild 从流水重建快照
// @Summary      重建快照
// @Description  以流水合计和持有中预占为准覆盖快照,返回修复前的数值
// @Tags         库存
// @Produce      json
// @Param        store_id path int true "门店ID"
// @Param        sku path string true "SKU"
// @Success      200 {object} response.Response{data=dto.RebuildResponse}
// @Router       /api/v1/stores/{store_id}/stock/{sku}/rebuild [post]
func (h *StockHandler) Rebuild(c *gin.Context) {
	storeID, ok := uintParam(c, "store_id")
	if !ok {
		return
	}
	sku, ok := stringParam(c, "sku")
	if !ok {
		return
	}

	res, err := h.store.Rebuild(c.Request.Context(), storeID, sku)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.RebuildResponse{
		Snapshot:       dto.NewSnapshotResponse(res.Snapshot),
		OnHandBefore:   res.OnHandBefore,
		ReservedBefore: res.ReservedBefore,
		Drifted:        res.Drifted(),
	})
}
