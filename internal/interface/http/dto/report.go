package dto

import "time"

// StoreFilter 可选的门店过滤,0表示全部门店
type StoreFilter struct {
	StoreID uint `form:"store_id" example:"1"`
}

// MovementSummaryRequest 流水汇总区间 [from, to)
type MovementSummaryRequest struct {
	StoreID uint      `form:"store_id" binding:"required" example:"1"`
	From    time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00" example:"2026-03-01T00:00:00Z"`
	To      time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00" example:"2026-03-02T00:00:00Z"`
}

// BatchValuationRequest 批次估值
type BatchValuationRequest struct {
	StoreID uint `form:"store_id" binding:"required" example:"1"`
}
