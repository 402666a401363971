package ledger

import (
	"cmp"
	"slices"

	"ledger-core/internal/model"
)

// HistoryInput 聚合所需的全部来源，银行卡提现与链上提现一起算作 withdrawals
type HistoryInput struct {
	Deposits        []model.Deposit
	Withdrawals     []model.Withdrawal
	BankWithdrawals []model.BankWithdrawal
	Trades          []model.Trade
}

// DropReport 被丢弃的脏数据统计
type DropReport struct {
	Total    int
	BySource map[Source]int
	Errors   []error
}

func (r *DropReport) add(source Source, err error) {
	if r.BySource == nil {
		r.BySource = make(map[Source]int)
	}
	r.Total++
	r.BySource[source]++
	r.Errors = append(r.Errors, err)
}

// BuildHistory 把某个用户某个币种的充值、提现、成交合并成一条时间线
// 返回的 dropped 是因数据缺失被丢弃的行数；单行脏数据不会让整个聚合失败。
func BuildHistory(userID uint64, asset string, deposits []model.Deposit, withdrawals []model.Withdrawal, trades []model.Trade) ([]LedgerRecord, int) {
	records, report := Aggregate(userID, asset, HistoryInput{
		Deposits:    deposits,
		Withdrawals: withdrawals,
		Trades:      trades,
	})
	return records, report.Total
}

// Aggregate 与 BuildHistory 相同，额外接收银行卡提现并返回详细的丢弃报告
func Aggregate(userID uint64, asset string, in HistoryInput) ([]LedgerRecord, DropReport) {
	var (
		out    = make([]LedgerRecord, 0, len(in.Deposits)+len(in.Withdrawals)+len(in.BankWithdrawals)+len(in.Trades))
		report DropReport
	)

	for _, d := range in.Deposits {
		if d.UserID != userID || d.Asset != asset {
			continue
		}
		rec, err := FromDeposit(d)
		if err != nil {
			report.add(SourceRecharge, err)
			continue
		}
		out = append(out, rec)
	}

	for _, w := range in.Withdrawals {
		if w.UserID != userID || w.Asset != asset {
			continue
		}
		rec, err := FromWithdrawal(w)
		if err != nil {
			report.add(SourceWithdrawal, err)
			continue
		}
		out = append(out, rec)
	}

	for _, b := range in.BankWithdrawals {
		if b.UserID != userID || b.Asset != asset {
			continue
		}
		rec, err := FromBankWithdrawal(b)
		if err != nil {
			report.add(SourceBankWithdrawal, err)
			continue
		}
		out = append(out, rec)
	}

	for _, t := range in.Trades {
		if t.UserID != userID || (t.BaseAsset != asset && t.QuoteAsset != asset) {
			continue
		}
		// 划转走充值 / 提现表，成交表里的伪成交直接跳过，避免重复计算
		if IsPseudoTrade(t) {
			continue
		}
		rec, err := FromTrade(t, asset)
		if err != nil {
			report.add(SourceTrade, err)
			continue
		}
		out = append(out, rec)
	}

	SortRecords(out)
	return out, report
}

// SortRecords 按 CreatedAt 倒序；时间相同时 ID 大的在前，再按来源名排序，保证结果稳定可重复
func SortRecords(records []LedgerRecord) {
	slices.SortStableFunc(records, func(a, b LedgerRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ID, a.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
}
