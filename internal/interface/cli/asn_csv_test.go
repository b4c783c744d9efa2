package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockcore/internal/domain/asn"
)

func TestReadStagedLines(t *testing.T) {
	t.Run("按表头映射字段", func(t *testing.T) {
		src := "\ufeffShip_To_Store_ID,shipment_id,vendor_code,sku,quantity,unit_cost,lot_number,expiry_date,extra\n" +
			"7,SHP-1,V01,A,10,1.50,L-1,2026-12-31,x\n" +
			"7,SHP-1,V01,B,4,,,,\n"
		lines, err := ReadStagedLines(strings.NewReader(src), "S-1")
		require.NoError(t, err)
		require.Len(t, lines, 2)

		a := lines[0]
		assert.Equal(t, "S-1", a.SessionID)
		assert.Equal(t, uint(7), a.ShipToStoreID)
		assert.Equal(t, "SHP-1", a.ShipmentID)
		assert.Equal(t, "V01", a.VendorCode)
		assert.Equal(t, int64(10), a.Quantity)
		assert.True(t, a.UnitCost.Equal(decimal.RequireFromString("1.5")))
		assert.Equal(t, "L-1", a.LotNumber)
		require.NotNil(t, a.ExpiryDate)
		assert.Equal(t, "2026-12-31", a.ExpiryDate.Format(expiryLayout))

		b := lines[1]
		assert.True(t, b.UnitCost.IsZero(), "成本缺省为0")
		assert.Nil(t, b.ExpiryDate)
	})

	cases := map[string]string{
		"空文件":    "",
		"缺少必填列":  "sku,quantity\nA,1\n",
		"数量不是整数": "ship_to_store_id,sku,quantity\n7,A,1.5\n",
		"门店无效":   "ship_to_store_id,sku,quantity\nx,A,1\n",
		"成本无效":   "ship_to_store_id,sku,quantity,unit_cost\n7,A,1,abc\n",
		"日期格式错误": "ship_to_store_id,sku,quantity,expiry_date\n7,A,1,31/12/2026\n",
		"列数不一致":  "ship_to_store_id,sku,quantity\n7,A\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadStagedLines(strings.NewReader(src), "S-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, asn.ErrInvalidStagedLine), "got %v", err)
		})
	}

	t.Run("错误信息带行号", func(t *testing.T) {
		src := "ship_to_store_id,sku,quantity\n7,A,1\n7,B,zero\n"
		_, err := ReadStagedLines(strings.NewReader(src), "S-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "第3行")
	})
}
