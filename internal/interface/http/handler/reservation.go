package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/interface/http/dto"
	"github.com/xiebiao/stockcore/pkg/response"
)

// ReservationHandler 结算预占
type ReservationHandler struct {
	manager *inventory.ReservationManager
}

// NewReservationHandler 创建预占处理器
func NewReservationHandler(manager *inventory.ReservationManager) *ReservationHandler {
	return &ReservationHandler{manager: manager}
}

// Hold 预占库存
// @Summary      预占库存
// @Description  结算开始时锁定可售数量,超时未提交自动释放
// @Tags         预占
// @Accept       json
// @Produce      json
// @Param        request body dto.HoldRequest true "预占"
// @Success      200 {object} response.Response{data=dto.ReservationResponse}
// @Failure      400 {object} response.Response "可用库存不足"
// @Router       /api/v1/reservations [post]
func (h *ReservationHandler) Hold(c *gin.Context) {
	var req dto.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	r, err := h.manager.Hold(c.Request.Context(), inventory.HoldRequest{
		StoreID:  req.StoreID,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		OwnerRef: req.OwnerRef,
		TTL:      req.TTL(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationResponse(r))
}

// Get 查询预占
// @Summary      查询预占
// @Tags         预占
// @Produce      json
// @Param        id path string true "预占ID"
// @Success      200 {object} response.Response{data=dto.ReservationResponse}
// @Failure      404 {object} response.Response "预占不存在"
// @Router       /api/v1/reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := stringParam(c, "id")
	if !ok {
		return
	}

	r, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationResponse(r))
}

// Commit 预占转销售
// @Summary      提交预占
// @Description  写一条销售流水,在手与预占同时扣减
// @Tags         预占
// @Produce      json
// @Param        id path string true "预占ID"
// @Success      200 {object} response.Response{data=dto.CommitResponse}
// @Failure      400 {object} response.Response "预占已结束或已过期"
// @Router       /api/v1/reservations/{id}/commit [post]
func (h *ReservationHandler) Commit(c *gin.Context) {
	id, ok := stringParam(c, "id")
	if !ok {
		return
	}

	res, err := h.manager.Commit(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.CommitResponse{
		Reservation: dto.NewReservationResponse(res.Reservation),
		Movement:    dto.NewMovementResponse(res.Movement),
		Snapshot:    dto.NewSnapshotResponse(res.Snapshot),
	})
}

// Release 释放预占
// @Summary      释放预占
// @Description  放弃结算,预占数量归还可售;重复释放返回40004
// @Tags         预占
// @Produce      json
// @Param        id path string true "预占ID"
// @Success      200 {object} response.Response{data=dto.ReservationResponse}
// @Failure      400 {object} response.Response "预占已释放"
// @Router       /api/v1/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *gin.Context) {
	id, ok := stringParam(c, "id")
	if !ok {
		return
	}

	r, err := h.manager.Release(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewReservationResponse(r))
}
