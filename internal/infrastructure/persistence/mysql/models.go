package mysql

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementModel GORM库存流水模型
// 设计说明:
// 1. 只追加,没有UpdatedAt/DeletedAt
// 2. 自增ID即流水序号,同一门店SKU按ID排序即发生顺序
// 3. (门店, SKU, ID)复合索引支撑历史查询和SUM对账
type MovementModel struct {
	ID            uint            `gorm:"primaryKey"`
	StoreID       uint            `gorm:"index:idx_movement_key,priority:1;not null;comment:门店ID"`
	SKU           string          `gorm:"index:idx_movement_key,priority:2;size:64;not null;comment:SKU"`
	Type          string          `gorm:"size:20;not null;comment:变动类型"`
	QuantityDelta int64           `gorm:"not null;comment:数量变化(有符号)"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0;comment:单位成本"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0;comment:单位售价"`
	RefType       string          `gorm:"index:idx_movement_ref,priority:1;size:32;comment:业务单据类型"`
	RefID         string          `gorm:"index:idx_movement_ref,priority:2;size:64;comment:业务单据ID"`
	BatchID       *uint           `gorm:"index;comment:批次ID"`
	Note          string          `gorm:"size:255;comment:备注"`
	CreatedAt     time.Time       `gorm:"not null;comment:发生时间"`
}

// TableName 指定表名
func (MovementModel) TableName() string {
	return "stock_movements"
}

// SnapshotModel GORM库存快照模型
// (门店, SKU)唯一,行锁即串行化点
type SnapshotModel struct {
	ID              uint       `gorm:"primaryKey"`
	StoreID         uint       `gorm:"uniqueIndex:uk_snapshot_key,priority:1;not null;comment:门店ID"`
	SKU             string     `gorm:"uniqueIndex:uk_snapshot_key,priority:2;size:64;not null;comment:SKU"`
	OnHand          int64      `gorm:"not null;default:0;comment:在手数量"`
	Reserved        int64      `gorm:"not null;default:0;comment:已预占数量"`
	ReorderPoint    int64      `gorm:"not null;default:0;comment:补货点"`
	ReorderQuantity int64      `gorm:"not null;default:0;comment:建议补货量"`
	LastMovementID  uint       `gorm:"not null;default:0;comment:最后一条流水ID"`
	LastCountedAt   *time.Time `gorm:"comment:最后盘点时间"`
	LastSoldAt      *time.Time `gorm:"comment:最后销售时间"`
	LastReceivedAt  *time.Time `gorm:"comment:最后收货时间"`
	CreatedAt       time.Time  `gorm:"comment:创建时间"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime:false;comment:更新时间(由领域对象维护,与缓存一致)"`
}

// TableName 指定表名
func (SnapshotModel) TableName() string {
	return "stock_snapshots"
}

// ReservationModel GORM预占模型
// 主键是UUID字符串(对外句柄)
type ReservationModel struct {
	ID         string     `gorm:"primaryKey;size:36"`
	StoreID    uint       `gorm:"index:idx_reservation_key,priority:1;not null;comment:门店ID"`
	SKU        string     `gorm:"index:idx_reservation_key,priority:2;size:64;not null;comment:SKU"`
	Quantity   int64      `gorm:"not null;comment:预占数量"`
	OwnerRef   string     `gorm:"index;size:64;comment:购物车/订单会话"`
	State      string     `gorm:"index:idx_reservation_expiry,priority:1;size:16;not null;comment:状态"`
	ExpiresAt  time.Time  `gorm:"index:idx_reservation_expiry,priority:2;not null;comment:过期时间"`
	MovementID *uint      `gorm:"comment:提交后的销售流水ID"`
	ClosedAt   *time.Time `gorm:"comment:结束时间"`
	CreatedAt  time.Time  `gorm:"comment:创建时间"`
	UpdatedAt  time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ReservationModel) TableName() string {
	return "stock_reservations"
}

// BatchModel GORM批次模型
// PurchaseOrderItemID唯一: 同一采购行重复收货会被数据库拒绝
type BatchModel struct {
	ID                  uint            `gorm:"primaryKey"`
	LotNumber           string          `gorm:"index;size:64;comment:批号"`
	SKU                 string          `gorm:"index:idx_batch_key,priority:2;size:64;not null;comment:SKU"`
	StoreID             uint            `gorm:"index:idx_batch_key,priority:1;not null;comment:门店ID"`
	QuantityReceived    int64           `gorm:"not null;comment:收货数量"`
	QuantityRemaining   int64           `gorm:"not null;comment:剩余数量"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0;comment:单位成本"`
	CaseGTIN            string          `gorm:"size:14;comment:箱码"`
	UnitGTIN            string          `gorm:"size:14;comment:单品码"`
	PurchaseOrderID     *uint           `gorm:"index;comment:采购单ID"`
	PurchaseOrderItemID *uint           `gorm:"uniqueIndex;comment:采购明细ID"`
	MovementID          *uint           `gorm:"comment:入库流水ID"`
	ShelfLocation       string          `gorm:"size:32;comment:货位"`
	ExpiryDate          *time.Time      `gorm:"comment:保质期"`
	ReceivedAt          time.Time       `gorm:"not null;comment:收货时间"`
	CreatedAt           time.Time       `gorm:"comment:创建时间"`
	UpdatedAt           time.Time       `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BatchModel) TableName() string {
	return "stock_batches"
}

// PurchaseOrderModel GORM采购单模型
// 教学要点:
// 1. 与PurchaseOrderItemModel是一对多关系
// 2. PONumber唯一(业务主键);ASNSessionID唯一(NULL不参与唯一约束)
type PurchaseOrderModel struct {
	ID           uint                     `gorm:"primaryKey"`
	PONumber     string                   `gorm:"uniqueIndex;size:64;not null;comment:采购单号"`
	SupplierID   string                   `gorm:"size:64;comment:供应商"`
	StoreID      uint                     `gorm:"index;not null;comment:收货门店"`
	Status       string                   `gorm:"index;size:16;not null;comment:状态"`
	ExpectedDate *time.Time               `gorm:"comment:预计到货日期"`
	ReceivedAt   *time.Time               `gorm:"comment:收货时间"`
	TotalValue   decimal.Decimal          `gorm:"type:decimal(14,4);not null;default:0;comment:总金额"`
	ASNSessionID *string                  `gorm:"uniqueIndex;size:64;comment:来源ASN会话"`
	ShipmentID   string                   `gorm:"size:64;comment:发货单号"`
	ContainerID  string                   `gorm:"size:64;comment:柜号"`
	VendorCode   string                   `gorm:"size:32;comment:供应商编码"`
	VendorName   string                   `gorm:"size:128;comment:供应商名称"`
	Items        []PurchaseOrderItemModel `gorm:"foreignKey:OrderID"` // 一对多关联
	CreatedAt    time.Time                `gorm:"index;comment:创建时间"`
	UpdatedAt    time.Time                `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItemModel GORM采购明细模型
type PurchaseOrderItemModel struct {
	ID            uint            `gorm:"primaryKey"`
	OrderID       uint            `gorm:"index;not null;comment:采购单ID"`
	SKU           string          `gorm:"size:64;not null;comment:SKU"`
	Description   string          `gorm:"size:255;comment:品名"`
	OrderedQty    int64           `gorm:"not null;default:0;comment:订货数量"`
	ShippedQty    int64           `gorm:"not null;default:0;comment:实发数量"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0;comment:单位成本"`
	LotNumber     string          `gorm:"size:64;comment:批号"`
	CaseGTIN      string          `gorm:"size:14;comment:箱码"`
	UnitGTIN      string          `gorm:"size:14;comment:单品码"`
	ExpiryDate    *time.Time      `gorm:"comment:保质期"`
	ShelfLocation string          `gorm:"size:32;comment:货位"`
}

// TableName 指定表名
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// StagedLineModel GORM ASN暂存行模型
type StagedLineModel struct {
	ID            uint            `gorm:"primaryKey"`
	SessionID     string          `gorm:"index;size:64;not null;comment:导入会话"`
	ShipToStoreID uint            `gorm:"not null;comment:收货门店"`
	ShipmentID    string          `gorm:"size:64;comment:发货单号"`
	ContainerID   string          `gorm:"size:64;comment:柜号"`
	VendorCode    string          `gorm:"size:32;comment:供应商编码"`
	VendorName    string          `gorm:"size:128;comment:供应商名称"`
	SKU           string          `gorm:"size:64;not null;comment:SKU"`
	Description   string          `gorm:"size:255;comment:品名"`
	Quantity      int64           `gorm:"not null;comment:数量"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0;comment:单位成本"`
	LotNumber     string          `gorm:"size:64;comment:批号"`
	CaseGTIN      string          `gorm:"size:14;comment:箱码"`
	UnitGTIN      string          `gorm:"size:14;comment:单品码"`
	ExpiryDate    *time.Time      `gorm:"comment:保质期"`
	ShelfLocation string          `gorm:"size:32;comment:货位"`
	CreatedAt     time.Time       `gorm:"comment:导入时间"`
}

// TableName 指定表名
func (StagedLineModel) TableName() string {
	return "asn_staging_lines"
}
