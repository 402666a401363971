package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

// Source 记录来自哪张表
type Source string

const (
	SourceRecharge       Source = "recharge"
	SourceWithdrawal     Source = "withdrawal"
	SourceBankWithdrawal Source = "bank_withdrawal"
	SourceTrade          Source = "trade"
)

// BankNetwork 银行卡提现在限额表中使用的网络名
const BankNetwork = "BANK"

// ParseSource 解析审核流中的请求类型 (充值 / 链上提现 / 银行卡提现)
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceRecharge, SourceWithdrawal, SourceBankWithdrawal:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: unknown request kind %q", errno.ErrBind, s)
}

// Kind 来源表对应的记录类型
func (s Source) Kind() Kind {
	switch s {
	case SourceRecharge:
		return KindDeposit
	case SourceWithdrawal, SourceBankWithdrawal:
		return KindWithdraw
	default:
		return KindTrade
	}
}

// Reviewable 是否走管理员审核流
func (s Source) Reviewable() bool {
	return s == SourceRecharge || s == SourceWithdrawal || s == SourceBankWithdrawal
}

// LedgerRecord 账本中的一条资金记录 (充值 / 提现 / 成交) 的统一视图
type LedgerRecord struct {
	ID                    uint64          `json:"id"`
	Source                Source          `json:"source"`
	UserID                uint64          `json:"user_id"`
	Asset                 string          `json:"asset"`
	Kind                  Kind            `json:"kind"`
	Direction             Direction       `json:"direction"`
	Amount                decimal.Decimal `json:"amount"` // 含手续费
	Fee                   decimal.Decimal `json:"fee"`
	Status                Status          `json:"status"`
	Network               string          `json:"network,omitempty"`
	Address               string          `json:"address,omitempty"`
	TxHash                string          `json:"tx_hash,omitempty"`
	Confirmations         *int            `json:"confirmations,omitempty"`
	RequiredConfirmations *int            `json:"required_confirmations,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	RejectionReason       string          `json:"rejection_reason,omitempty"`
}

// Clone 深拷贝指针字段，状态机返回新值而不修改入参
func (r LedgerRecord) Clone() LedgerRecord {
	out := r
	if r.Confirmations != nil {
		v := *r.Confirmations
		out.Confirmations = &v
	}
	if r.RequiredConfirmations != nil {
		v := *r.RequiredConfirmations
		out.RequiredConfirmations = &v
	}
	if r.CompletedAt != nil {
		v := *r.CompletedAt
		out.CompletedAt = &v
	}
	return out
}

func malformed(source Source, id uint64, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s #%d: %s", ErrMalformedRecord, source, id, fmt.Sprintf(format, args...))
}

// finishStatus 校验 completedAt / rejectionReason 与状态一致
func finishStatus(rec *LedgerRecord, completedAt *time.Time, reason string) error {
	if rec.Status == StatusCompleted {
		if completedAt == nil || completedAt.IsZero() {
			return malformed(rec.Source, rec.ID, "completed without completion time")
		}
		t := *completedAt
		rec.CompletedAt = &t
	}
	if rec.Status == StatusRejected || rec.Status == StatusFailed {
		rec.RejectionReason = reason
	}
	return nil
}

func checkAmounts(source Source, id uint64, amount, fee decimal.Decimal) error {
	if amount.IsNegative() {
		return malformed(source, id, "negative amount %s", amount)
	}
	if fee.IsNegative() {
		return malformed(source, id, "negative fee %s", fee)
	}
	return nil
}

// FromDeposit 充值表 -> 账本记录
func FromDeposit(d model.Deposit) (LedgerRecord, error) {
	switch {
	case d.ID == 0:
		return LedgerRecord{}, malformed(SourceRecharge, d.ID, "missing id")
	case d.Asset == "":
		return LedgerRecord{}, malformed(SourceRecharge, d.ID, "missing asset")
	case d.TxHash == "":
		return LedgerRecord{}, malformed(SourceRecharge, d.ID, "missing tx hash")
	case d.CreatedAt.IsZero():
		return LedgerRecord{}, malformed(SourceRecharge, d.ID, "missing created_at")
	}
	if err := checkAmounts(SourceRecharge, d.ID, d.Amount, d.Fee); err != nil {
		return LedgerRecord{}, err
	}
	status, err := NormalizeStatus(KindDeposit, d.Status)
	if err != nil {
		return LedgerRecord{}, err
	}

	confirmations, required := d.Confirmations, d.RequiredConfirmations
	rec := LedgerRecord{
		ID:                    d.ID,
		Source:                SourceRecharge,
		UserID:                d.UserID,
		Asset:                 d.Asset,
		Kind:                  KindDeposit,
		Direction:             DirectionCredit,
		Amount:                d.Amount,
		Fee:                   d.Fee,
		Status:                status,
		Network:               d.Network,
		Address:               d.Address,
		TxHash:                d.TxHash,
		Confirmations:         &confirmations,
		RequiredConfirmations: &required,
		CreatedAt:             d.CreatedAt,
	}
	if err := finishStatus(&rec, d.CompletedAt, d.RejectionReason); err != nil {
		return LedgerRecord{}, err
	}
	return rec, nil
}

// FromWithdrawal 链上提现表 -> 账本记录
func FromWithdrawal(w model.Withdrawal) (LedgerRecord, error) {
	switch {
	case w.ID == 0:
		return LedgerRecord{}, malformed(SourceWithdrawal, w.ID, "missing id")
	case w.Asset == "":
		return LedgerRecord{}, malformed(SourceWithdrawal, w.ID, "missing asset")
	case w.ToAddress == "":
		return LedgerRecord{}, malformed(SourceWithdrawal, w.ID, "missing address")
	case w.CreatedAt.IsZero():
		return LedgerRecord{}, malformed(SourceWithdrawal, w.ID, "missing created_at")
	}
	if err := checkAmounts(SourceWithdrawal, w.ID, w.Amount, w.Fee); err != nil {
		return LedgerRecord{}, err
	}
	status, err := NormalizeStatus(KindWithdraw, w.Status)
	if err != nil {
		return LedgerRecord{}, err
	}

	rec := LedgerRecord{
		ID:        w.ID,
		Source:    SourceWithdrawal,
		UserID:    w.UserID,
		Asset:     w.Asset,
		Kind:      KindWithdraw,
		Direction: DirectionDebit,
		Amount:    w.Amount,
		Fee:       w.Fee,
		Status:    status,
		Network:   w.Network,
		Address:   w.ToAddress,
		TxHash:    w.TxHash,
		CreatedAt: w.CreatedAt,
	}
	if err := finishStatus(&rec, w.CompletedAt, w.RejectionReason); err != nil {
		return LedgerRecord{}, err
	}
	return rec, nil
}

// FromBankWithdrawal 银行卡提现表 -> 账本记录，卡号脱敏后放在 Address
func FromBankWithdrawal(b model.BankWithdrawal) (LedgerRecord, error) {
	switch {
	case b.ID == 0:
		return LedgerRecord{}, malformed(SourceBankWithdrawal, b.ID, "missing id")
	case b.Asset == "":
		return LedgerRecord{}, malformed(SourceBankWithdrawal, b.ID, "missing asset")
	case b.CardNumber == "":
		return LedgerRecord{}, malformed(SourceBankWithdrawal, b.ID, "missing card number")
	case b.CreatedAt.IsZero():
		return LedgerRecord{}, malformed(SourceBankWithdrawal, b.ID, "missing created_at")
	}
	if err := checkAmounts(SourceBankWithdrawal, b.ID, b.Amount, b.Fee); err != nil {
		return LedgerRecord{}, err
	}
	status, err := NormalizeStatus(KindWithdraw, b.Status)
	if err != nil {
		return LedgerRecord{}, err
	}

	rec := LedgerRecord{
		ID:        b.ID,
		Source:    SourceBankWithdrawal,
		UserID:    b.UserID,
		Asset:     b.Asset,
		Kind:      KindWithdraw,
		Direction: DirectionDebit,
		Amount:    b.Amount,
		Fee:       b.Fee,
		Status:    status,
		Network:   BankNetwork,
		Address:   MaskCardNumber(b.CardNumber),
		CreatedAt: b.CreatedAt,
	}
	if err := finishStatus(&rec, b.CompletedAt, b.RejectionReason); err != nil {
		return LedgerRecord{}, err
	}
	return rec, nil
}

// IsPseudoTrade 上游把充值 / 提现写成成交时的 Kind
func IsPseudoTrade(t model.Trade) bool {
	k := Kind(strings.ToLower(t.Kind))
	return k == KindDeposit || k == KindWithdraw
}

// FromTrade 成交表 -> 账本记录 (站在 asset 这一侧)
// asset 是基础币: 数量为 Quantity，买入为入账；asset 是计价币: 数量为 Quantity*Price，买入为出账。
// 手续费只显示在 FeeAsset 对应的一侧。
func FromTrade(t model.Trade, asset string) (LedgerRecord, error) {
	switch {
	case t.ID == 0:
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "missing id")
	case t.Kind != "" && Kind(strings.ToLower(t.Kind)) != KindTrade:
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "kind %q is not a trade", t.Kind)
	case t.BaseAsset == "" || t.QuoteAsset == "" || t.BaseAsset == t.QuoteAsset:
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "invalid pair %s/%s", t.BaseAsset, t.QuoteAsset)
	case asset != t.BaseAsset && asset != t.QuoteAsset:
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "asset %s not in pair %s/%s", asset, t.BaseAsset, t.QuoteAsset)
	case t.Side != model.SideBuy && t.Side != model.SideSell:
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "invalid side %q", t.Side)
	case t.CreatedAt.IsZero():
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "missing created_at")
	case !t.Quantity.IsPositive() || t.Price.IsNegative():
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "invalid quantity %s / price %s", t.Quantity, t.Price)
	case t.Fee.IsNegative():
		return LedgerRecord{}, malformed(SourceTrade, t.ID, "negative fee %s", t.Fee)
	}
	status, err := NormalizeStatus(KindTrade, t.Status)
	if err != nil {
		return LedgerRecord{}, err
	}

	amount := t.Quantity
	direction := DirectionCredit
	if t.Side == model.SideSell {
		direction = DirectionDebit
	}
	if asset == t.QuoteAsset {
		amount = t.Quantity.Mul(t.Price)
		direction = opposite(direction)
	}
	fee := decimal.Zero
	if t.FeeAsset == asset {
		fee = t.Fee
	}

	rec := LedgerRecord{
		ID:        t.ID,
		Source:    SourceTrade,
		UserID:    t.UserID,
		Asset:     asset,
		Kind:      KindTrade,
		Direction: direction,
		Amount:    amount,
		Fee:       fee,
		Status:    status,
		CreatedAt: t.CreatedAt,
	}
	if status == StatusCompleted {
		// 成交即结算
		settled := t.CreatedAt
		rec.CompletedAt = &settled
	}
	return rec, nil
}

func opposite(d Direction) Direction {
	if d == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// MaskCardNumber 只保留卡号后四位
func MaskCardNumber(card string) string {
	card = strings.ReplaceAll(card, " ", "")
	if len(card) <= 4 {
		return card
	}
	return "**** " + card[len(card)-4:]
}
