package asn

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// StagedLine ASN(预先发货通知)暂存行
// 供应商的发货清单先整批写入暂存表,确认无误后再提升为采购单
type StagedLine struct {
	ID            uint
	SessionID     string
	ShipToStoreID uint
	ShipmentID    string
	ContainerID   string
	VendorCode    string
	VendorName    string
	SKU           string
	Description   string
	Quantity      int64
	UnitCost      decimal.Decimal
	LotNumber     string
	CaseGTIN      string
	UnitGTIN      string
	ExpiryDate    *time.Time
	ShelfLocation string
	CreatedAt     time.Time
}

// Validate 行校验
func (l *StagedLine) Validate() error {
	switch {
	case strings.TrimSpace(l.SessionID) == "":
		return apperrors.WithDetail(ErrInvalidStagedLine, "会话ID不能为空")
	case l.ShipToStoreID == 0:
		return apperrors.WithDetail(ErrInvalidStagedLine, "SKU %s 缺少收货门店", l.SKU)
	case strings.TrimSpace(l.SKU) == "":
		return apperrors.WithDetail(ErrInvalidStagedLine, "SKU不能为空")
	case l.Quantity <= 0:
		return apperrors.WithDetail(ErrInvalidStagedLine, "SKU %s 数量必须大于0", l.SKU)
	case l.UnitCost.IsNegative():
		return apperrors.WithDetail(ErrInvalidStagedLine, "SKU %s 成本不能为负数", l.SKU)
	}
	return nil
}

// ToItem 转为采购明细,GTIN/批号/成本原样复制
func (l *StagedLine) ToItem() purchase.Item {
	return purchase.Item{
		SKU:           l.SKU,
		Description:   l.Description,
		OrderedQty:    l.Quantity,
		ShippedQty:    l.Quantity,
		UnitCost:      l.UnitCost,
		LotNumber:     l.LotNumber,
		CaseGTIN:      l.CaseGTIN,
		UnitGTIN:      l.UnitGTIN,
		ExpiryDate:    l.ExpiryDate,
		ShelfLocation: l.ShelfLocation,
	}
}

// Header 从暂存行推导出的单头信息
type Header struct {
	StoreID  uint
	Shipment purchase.Shipment
}

// DeriveHeader 推导单头
// 发货单号/柜号/供应商/收货门店必须在会话内所有行一致,否则返回StagingError,不做任何"取平均"
func DeriveHeader(sessionID string, lines []*StagedLine) (*Header, error) {
	if len(lines) == 0 {
		return nil, apperrors.WithDetail(ErrEmptySession, "session=%s", sessionID)
	}

	first := lines[0]
	fields := []struct {
		name string
		get  func(l *StagedLine) string
	}{
		{"ship_to_store_id", func(l *StagedLine) string { return uintString(l.ShipToStoreID) }},
		{"shipment_id", func(l *StagedLine) string { return l.ShipmentID }},
		{"container_id", func(l *StagedLine) string { return l.ContainerID }},
		{"vendor_code", func(l *StagedLine) string { return l.VendorCode }},
		{"vendor_name", func(l *StagedLine) string { return l.VendorName }},
	}

	for _, l := range lines[1:] {
		for _, f := range fields {
			if want, got := f.get(first), f.get(l); want != got {
				return nil, &StagingError{SessionID: sessionID, Field: f.name, Values: []string{want, got}}
			}
		}
	}

	return &Header{
		StoreID: first.ShipToStoreID,
		Shipment: purchase.Shipment{
			ShipmentID:  first.ShipmentID,
			ContainerID: first.ContainerID,
			VendorCode:  first.VendorCode,
			VendorName:  first.VendorName,
		},
	}, nil
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
