package reservation

import (
	"strings"
	"time"

	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

// State 预占状态
type State string

const (
	StateHeld      State = "held"      // 持有中
	StateCommitted State = "committed" // 已转为销售(终态)
	StateReleased  State = "released"  // 主动释放(终态)
	StateExpired   State = "expired"   // 超时释放(终态)
)

// String 实现Stringer接口(方便日志输出)
func (s State) String() string {
	return string(s)
}

// IsTerminal 是否终态
func (s State) IsTerminal() bool {
	return s != StateHeld
}

// transitions 合法的状态转换: 只有held可以流转,且只能流转一次
var transitions = map[State][]State{
	StateHeld:      {StateCommitted, StateReleased, StateExpired},
	StateCommitted: {},
	StateReleased:  {},
	StateExpired:   {},
}

// Reservation 购物车/结算期间的库存预占
// 教学要点:
// 1. 预占只改快照的Reserved,不写流水
// 2. Commit是把预占变成永久扣减(销售流水)的唯一路径
// 3. ID是UUID,作为句柄交给购物车服务
type Reservation struct {
	ID         string
	StoreID    uint
	SKU        string
	Quantity   int64
	OwnerRef   string // 购物车/订单会话
	ExpiresAt  time.Time
	State      State
	MovementID *uint // 提交后对应的销售流水
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New 创建持有中的预占
func New(id string, storeID uint, sku string, qty int64, owner string, expiresAt, now time.Time) (*Reservation, error) {
	switch {
	case id == "":
		return nil, apperrors.WithDetail(ErrInvalidReservation, "ID不能为空")
	case storeID == 0 || strings.TrimSpace(sku) == "":
		return nil, apperrors.WithDetail(ErrInvalidReservation, "门店和SKU不能为空")
	case qty <= 0:
		return nil, apperrors.WithDetail(ErrInvalidReservation, "预占数量必须大于0")
	case !expiresAt.After(now):
		return nil, apperrors.WithDetail(ErrInvalidReservation, "过期时间必须晚于当前时间")
	}
	return &Reservation{
		ID:        id,
		StoreID:   storeID,
		SKU:       sku,
		Quantity:  qty,
		OwnerRef:  owner,
		ExpiresAt: expiresAt,
		State:     StateHeld,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpired 持有中且已过期
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.State == StateHeld && !now.Before(r.ExpiresAt)
}

// CanTransitionTo 检查是否可以转换到目标状态
func (r *Reservation) CanTransitionTo(target State) bool {
	for _, allowed := range transitions[r.State] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (r *Reservation) TransitionTo(target State, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return apperrors.WithDetail(ErrReservationClosed, "%s → %s", r.State, target)
	}
	r.State = target
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// Commit 转为销售
// 已过期的持有不能再提交,调用方应先走Expire
func (r *Reservation) Commit(now time.Time) error {
	switch {
	case r.State == StateExpired || r.IsExpired(now):
		return apperrors.WithDetail(ErrReservationExpired, "reservation=%s", r.ID)
	case r.State != StateHeld:
		return apperrors.WithDetail(ErrReservationClosed, "reservation=%s 当前状态 %s", r.ID, r.State)
	}
	return r.TransitionTo(StateCommitted, now)
}

// Release 主动释放
// 重复释放(released/expired)返回ErrAlreadyReleased;已提交的返回ErrReservationClosed
func (r *Reservation) Release(now time.Time) error {
	switch r.State {
	case StateReleased, StateExpired:
		return apperrors.WithDetail(ErrAlreadyReleased, "reservation=%s 当前状态 %s", r.ID, r.State)
	case StateCommitted:
		return apperrors.WithDetail(ErrReservationClosed, "reservation=%s 已提交", r.ID)
	}
	return r.TransitionTo(StateReleased, now)
}

// Expire 超时释放
func (r *Reservation) Expire(now time.Time) error {
	if !r.IsExpired(now) {
		return apperrors.WithDetail(ErrReservationClosed, "reservation=%s 未到期或已结束", r.ID)
	}
	return r.TransitionTo(StateExpired, now)
}
