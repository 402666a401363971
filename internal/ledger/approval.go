package ledger

import (
	"fmt"
	"strings"
	"time"

	"ledger-core/pkg/errno"
)

// 审核流: pending -> completed (通过) / rejected (驳回，必须有原因) / cancelled (用户撤回)
// 三种请求共用同一套规则: 充值、链上提现、银行卡提现。
// 下面的函数都返回新记录，不修改入参；持久化层还需要用条件更新保证并发安全。

func checkReviewable(rec LedgerRecord) error {
	if !rec.Source.Reviewable() {
		return fmt.Errorf("%w: %s records are not reviewed", errno.ErrForbidden, rec.Source)
	}
	return nil
}

// Approve 审核通过
func Approve(rec LedgerRecord, now time.Time) (LedgerRecord, error) {
	if err := checkReviewable(rec); err != nil {
		return rec, err
	}
	if rec.Status != StatusPending {
		return rec, ErrNotPending
	}
	out := rec.Clone()
	out.Status = StatusCompleted
	completed := now
	out.CompletedAt = &completed
	out.RejectionReason = ""
	return out, nil
}

// Reject 审核驳回
// 充值代表链上已经发生的事实，不允许驳回
func Reject(rec LedgerRecord, reason string) (LedgerRecord, error) {
	if err := checkReviewable(rec); err != nil {
		return rec, err
	}
	if rec.Source == SourceRecharge {
		return rec, ErrNotRejectable
	}
	if rec.Status != StatusPending {
		return rec, ErrNotPending
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return rec, ErrReasonRequired
	}
	out := rec.Clone()
	out.Status = StatusRejected
	out.RejectionReason = reason
	out.CompletedAt = nil
	return out, nil
}

// Cancel 用户在管理员处理前撤回
func Cancel(rec LedgerRecord) (LedgerRecord, error) {
	if err := checkReviewable(rec); err != nil {
		return rec, err
	}
	if rec.Source == SourceRecharge {
		return rec, ErrNotCancellable
	}
	if rec.Status != StatusPending {
		return rec, ErrNotPending
	}
	out := rec.Clone()
	out.Status = StatusCancelled
	out.CompletedAt = nil
	return out, nil
}

// CheckDeletable 只有终态记录可以删除，进行中的记录删除会丢失未结清的义务
func CheckDeletable(rec LedgerRecord) error {
	if !rec.Status.IsTerminal() {
		return ErrCannotDeletePending
	}
	return nil
}

// SettlementDelta 记录迁移到 to 时需要执行的余额变动
// 第二个返回值为 false 表示该迁移不影响余额
func SettlementDelta(rec LedgerRecord, to Status) (Delta, bool) {
	switch rec.Kind {
	case KindDeposit:
		if to == StatusCompleted {
			return DepositCredit(rec.Amount.Sub(rec.Fee)), true
		}
	case KindWithdraw:
		switch to {
		case StatusCompleted:
			return WithdrawSettle(rec.Amount), true
		case StatusRejected, StatusCancelled, StatusFailed:
			return WithdrawRelease(rec.Amount), true
		}
	}
	return Delta{}, false
}
