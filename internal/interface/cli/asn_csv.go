package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

const expiryLayout = "2006-01-02"

// 必填列,其余列可缺省
var requiredColumns = []string{"ship_to_store_id", "sku", "quantity"}

// ReadStagedLines 解析供应商ASN的CSV文件
// 第一行为表头(不区分大小写),未知列忽略;错误信息带上CSV行号
func ReadStagedLines(r io.Reader, sessionID string) ([]*asn.StagedLine, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "CSV文件为空")
	}
	if err != nil {
		return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "读取表头失败: %v", err)
	}

	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "缺少列 %s", name)
		}
	}

	var lines []*asn.StagedLine
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "第%d行: %v", row, err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		line, err := parseLine(get, sessionID)
		if err != nil {
			return nil, apperrors.WithDetail(asn.ErrInvalidStagedLine, "第%d行: %v", row, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func parseLine(get func(string) string, sessionID string) (*asn.StagedLine, error) {
	storeID, err := strconv.ParseUint(get("ship_to_store_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ship_to_store_id无效 %q", get("ship_to_store_id"))
	}
	qty, err := strconv.ParseInt(get("quantity"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quantity无效 %q", get("quantity"))
	}

	cost := decimal.Zero
	if s := get("unit_cost"); s != "" {
		if cost, err = decimal.NewFromString(s); err != nil {
			return nil, fmt.Errorf("unit_cost无效 %q", s)
		}
	}

	var expiry *time.Time
	if s := get("expiry_date"); s != "" {
		t, err := time.Parse(expiryLayout, s)
		if err != nil {
			return nil, fmt.Errorf("expiry_date格式应为%s: %q", expiryLayout, s)
		}
		expiry = &t
	}

	return &asn.StagedLine{
		SessionID:     sessionID,
		ShipToStoreID: uint(storeID),
		ShipmentID:    get("shipment_id"),
		ContainerID:   get("container_id"),
		VendorCode:    get("vendor_code"),
		VendorName:    get("vendor_name"),
		SKU:           get("sku"),
		Description:   get("description"),
		Quantity:      qty,
		UnitCost:      cost,
		LotNumber:     get("lot_number"),
		CaseGTIN:      get("case_gtin"),
		UnitGTIN:      get("unit_gtin"),
		ExpiryDate:    expiry,
		ShelfLocation: get("shelf_location"),
	}, nil
}
