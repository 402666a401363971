package ledger

import (
	"fmt"
	"sort"
)

// Status 统一后的记录状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirming Status = "confirming"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// IsTerminal 终态之后不允许任何迁移
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Valid 是否是已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirming, StatusProcessing,
		StatusCompleted, StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Kind 记录类型，创建后不可变
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindTrade    Kind = "trade"
)

// Direction 资金方向
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// statusTables 各来源表的原始状态码 -> 统一状态
// 新增一种来源只需要在这里加一张表，调用方永远不直接判断原始数字
var statusTables = map[Kind]map[int]Status{
	KindDeposit: {
		0: StatusPending,
		1: StatusProcessing,
		2: StatusCompleted,
		3: StatusConfirming,
		4: StatusFailed,
	},
	// 链上提现与银行卡提现共用
	KindWithdraw: {
		0: StatusPending,
		1: StatusCompleted,
		2: StatusRejected,
		3: StatusCancelled,
		4: StatusProcessing,
		5: StatusFailed,
	},
	KindTrade: {
		0: StatusPending,
		1: StatusCompleted,
		2: StatusCancelled,
		3: StatusFailed,
	},
}

// reverseTables 由 statusTables 反向生成，供持久化层写库使用
var reverseTables = func() map[Kind]map[Status]int {
	out := make(map[Kind]map[Status]int, len(statusTables))
	for kind, table := range statusTables {
		rev := make(map[Status]int, len(table))
		for code, status := range table {
			rev[status] = code
		}
		out[kind] = rev
	}
	return out
}()

// NormalizeStatus 把来源表的原始状态码翻译成统一状态
func NormalizeStatus(kind Kind, raw int) (Status, error) {
	table, ok := statusTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, kind)
	}
	status, ok := table[raw]
	if !ok {
		return "", fmt.Errorf("%w: unknown %s status code %d", ErrMalformedRecord, kind, raw)
	}
	return status, nil
}

// EncodeStatus 统一状态 -> 来源表原始状态码
func EncodeStatus(kind Kind, status Status) (int, error) {
	table, ok := reverseTables[kind]
	if !ok {
		return 0, fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, kind)
	}
	code, ok := table[status]
	if !ok {
		return 0, fmt.Errorf("%w: %s records cannot be %s", ErrMalformedRecord, kind, status)
	}
	return code, nil
}

// MustEncodeStatus 仅用于编译期已知合法的组合
func MustEncodeStatus(kind Kind, status Status) int {
	code, err := EncodeStatus(kind, status)
	if err != nil {
		panic(err)
	}
	return code
}

// TerminalCodes 返回某类记录所有终态对应的原始状态码 (升序)
func TerminalCodes(kind Kind) []int {
	var codes []int
	for code, status := range statusTables[kind] {
		if status.IsTerminal() {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// CanTransition 状态单调性:
// pending -> {processing|confirming} -> 终态，或 pending -> 终态；终态不可再变
func CanTransition(from, to Status) bool {
	if from == to || from.IsTerminal() || !to.Valid() {
		return false
	}
	switch from {
	case StatusPending:
		return to != StatusPending
	case StatusProcessing, StatusConfirming:
		return to.IsTerminal()
	}
	return false
}
