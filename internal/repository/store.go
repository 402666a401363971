package repository

import (
	"context"
	"time"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
)

// StatusPatch 一次状态迁移要写入的字段
type StatusPatch struct {
	To              ledger.Status
	CompletedAt     *time.Time
	RejectionReason string
}

// PatchFrom 由状态机返回的新记录生成 patch
func PatchFrom(rec ledger.LedgerRecord) StatusPatch {
	return StatusPatch{To: rec.Status, CompletedAt: rec.CompletedAt, RejectionReason: rec.RejectionReason}
}

// RecordFilter 管理后台列表筛选
type RecordFilter struct {
	Status *ledger.Status
	UserID uint64 // 0 表示不限
	Limit  int
	Offset int
}

// Store 账本持久化边界
//
// 两个保证:
//  1. CompareAndSwapStatus 是原子的条件更新 (WHERE status = from)，并发审核只有一个能成功；
//  2. Transaction 内的状态迁移、余额变动、审计、outbox 要么全部提交，要么全部回滚。
type Store interface {
	// Transaction 在事务中执行 fn，fn 返回错误则整体回滚
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateDeposit(ctx context.Context, d *model.Deposit) error
	GetDepositByTxHash(ctx context.Context, network, txHash string) (*model.Deposit, error)
	UpdateDepositConfirmations(ctx context.Context, id uint64, confirmations, required int) error
	ListDeposits(ctx context.Context, userID uint64, asset string) ([]model.Deposit, error)

	CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.Withdrawal, error)
	CreateBankWithdrawal(ctx context.Context, b *model.BankWithdrawal) error
	ListBankWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.BankWithdrawal, error)
	// FindByIdempotencyKey 只适用于 withdrawal / bank_withdrawal，未找到返回 errno.ErrNotFound
	FindByIdempotencyKey(ctx context.Context, source ledger.Source, userID uint64, key string) (ledger.LedgerRecord, error)

	CreateTrade(ctx context.Context, t *model.Trade) error
	// ListTrades 返回 base 或 quote 为 asset 的成交
	ListTrades(ctx context.Context, userID uint64, asset string) ([]model.Trade, error)

	GetRecord(ctx context.Context, source ledger.Source, id uint64) (ledger.LedgerRecord, error)
	ListRecords(ctx context.Context, source ledger.Source, filter RecordFilter) ([]ledger.LedgerRecord, int64, error)
	// CompareAndSwapStatus 当前状态不是 from 时返回 errno.ErrNotPending，记录不存在返回 errno.ErrNotFound
	CompareAndSwapStatus(ctx context.Context, source ledger.Source, id uint64, from ledger.Status, patch StatusPatch) (ledger.LedgerRecord, error)
	// DeleteRecord 只删除终态记录，否则返回 errno.ErrCannotDeletePending
	DeleteRecord(ctx context.Context, source ledger.Source, id uint64) error

	// LockAccount 加行锁读取账户，不存在时创建空账户
	LockAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error)
	// GetAccount 未找到返回 errno.ErrNotFound
	GetAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error)
	// SaveAccount 乐观锁保存余额，成功后 acc.Version 加一；版本不匹配返回 errno.ErrVersionConflict
	SaveAccount(ctx context.Context, acc *model.Account) error
	ListAccounts(ctx context.Context, afterID uint64, limit int) ([]model.Account, error)
	ListUserAccounts(ctx context.Context, userID uint64) ([]model.Account, error)
	HaltAccount(ctx context.Context, id uint64, reason string) error

	// GetNetworkLimit 未配置或已停用返回 errno.ErrLimitsNotFound
	GetNetworkLimit(ctx context.Context, asset, network string) (*model.NetworkLimit, error)
	UpsertNetworkLimit(ctx context.Context, l *model.NetworkLimit) error

	CreateReview(ctx context.Context, r *model.Review) error
	ListReviews(ctx context.Context, kind string, recordID uint64) ([]model.Review, error)

	CreateOutboxMessage(ctx context.Context, topic, key string, payload interface{}) error
	ListPendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id uint64) error
}
