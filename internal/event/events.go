package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// 事件类型，统一写入 ledger.events_topic (默认 ledger_events)
const (
	TypeWithdrawalSubmitted = "withdrawal.submitted"
	TypeRecordTransitioned  = "record.transitioned"
	TypeDepositCredited     = "deposit.credited"
	TypeTradeSettled        = "trade.settled"
	TypeAccountHalted       = "account.halted"
)

// Envelope 所有账本事件的外层结构，消费方按 Type 分发
// ID 用于下游去重 (Relay 是至少一次投递)
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope 包装事件
func NewEnvelope(typ string, at time.Time, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: at.UTC(),
		Data:       raw,
	}, nil
}

// WithdrawalSubmittedEvent 提现已提交并冻结
type WithdrawalSubmittedEvent struct {
	RecordID  uint64 `json:"record_id"`
	Source    string `json:"source"` // withdrawal / bank_withdrawal
	UserID    uint64 `json:"user_id"`
	Asset     string `json:"asset"`
	Network   string `json:"network"`
	Address   string `json:"address"` // 银行卡为脱敏卡号
	Amount    string `json:"amount"`  // Decimal string
	Fee       string `json:"fee"`
	NetAmount string `json:"net_amount"`
}

// RecordTransitionedEvent 记录状态迁移 (审核、撤回、确认完成)
type RecordTransitionedEvent struct {
	RecordID uint64 `json:"record_id"`
	Source   string `json:"source"`
	UserID   uint64 `json:"user_id"`
	Asset    string `json:"asset"`
	From     string `json:"from"`
	To       string `json:"to"`
	ActorID  uint64 `json:"actor_id"` // 0 表示用户本人或系统
	Reason   string `json:"reason,omitempty"`
}

// DepositCreditedEvent 充值入账
type DepositCreditedEvent struct {
	DepositID uint64 `json:"deposit_id"`
	UserID    uint64 `json:"user_id"`
	Asset     string `json:"asset"`
	Network   string `json:"network"`
	TxHash    string `json:"tx_hash"`
	Credited  string `json:"credited"` // 扣除手续费后
}

// TradeSettledEvent 成交结算完成
type TradeSettledEvent struct {
	TradeID  uint64 `json:"trade_id"`
	UserID   uint64 `json:"user_id"`
	Pair     string `json:"pair"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// AccountHaltedEvent 对账或变动校验发现漂移，账户被冻结
type AccountHaltedEvent struct {
	AccountID uint64 `json:"account_id"`
	UserID    uint64 `json:"user_id"`
	Asset     string `json:"asset"`
	Reason    string `json:"reason"`
}
