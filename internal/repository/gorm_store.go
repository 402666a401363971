package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
)

// 作废的充值申请不占用 (network, tx_hash)，见 idx_deposit_chain_tx
var depositFailed = ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusFailed)

// GormStore PostgreSQL 实现
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// dbErr 统一翻译 gorm 错误，业务错误原样返回
func dbErr(err error, notFound errno.Errno) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var e errno.Errno
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%w: %v", errno.ErrDatabase, err)
}

// ---------- 充值 ----------

func (s *GormStore) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	err := s.conn(ctx).Create(d).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s/%s", errno.ErrDepositExists, d.Network, d.TxHash)
	}
	return dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) GetDepositByTxHash(ctx context.Context, network, txHash string) (*model.Deposit, error) {
	var d model.Deposit
	err := s.conn(ctx).
		Where("network = ? AND tx_hash = ? AND status <> ?", network, txHash, depositFailed).
		First(&d).Error
	if err != nil {
		return nil, dbErr(err, errno.ErrNotFound)
	}
	return &d, nil
}

func (s *GormStore) UpdateDepositConfirmations(ctx context.Context, id uint64, confirmations, required int) error {
	res := s.conn(ctx).Model(&model.Deposit{}).Where("id = ?", id).Updates(map[string]interface{}{
		"confirmations":          confirmations,
		"required_confirmations": required,
		"updated_at":             time.Now(),
	})
	if res.Error != nil {
		return dbErr(res.Error, errno.ErrNotFound)
	}
	if res.RowsAffected == 0 {
		return errno.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListDeposits(ctx context.Context, userID uint64, asset string) ([]model.Deposit, error) {
	var out []model.Deposit
	err := s.conn(ctx).Where("user_id = ? AND asset = ?", userID, asset).Order("id DESC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

// ---------- 提现 ----------

func (s *GormStore) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	return dbErr(s.conn(ctx).Create(w).Error, errno.ErrNotFound)
}

func (s *GormStore) ListWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.Withdrawal, error) {
	var out []model.Withdrawal
	err := s.conn(ctx).Where("user_id = ? AND asset = ?", userID, asset).Order("id DESC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) CreateBankWithdrawal(ctx context.Context, b *model.BankWithdrawal) error {
	return dbErr(s.conn(ctx).Create(b).Error, errno.ErrNotFound)
}

func (s *GormStore) ListBankWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.BankWithdrawal, error) {
	var out []model.BankWithdrawal
	err := s.conn(ctx).Where("user_id = ? AND asset = ?", userID, asset).Order("id DESC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) FindByIdempotencyKey(ctx context.Context, source ledger.Source, userID uint64, key string) (ledger.LedgerRecord, error) {
	q := s.conn(ctx).Where("user_id = ? AND idempotency_key = ?", userID, key)
	switch source {
	case ledger.SourceWithdrawal:
		var w model.Withdrawal
		if err := q.First(&w).Error; err != nil {
			return ledger.LedgerRecord{}, dbErr(err, errno.ErrNotFound)
		}
		return ledger.FromWithdrawal(w)
	case ledger.SourceBankWithdrawal:
		var b model.BankWithdrawal
		if err := q.First(&b).Error; err != nil {
			return ledger.LedgerRecord{}, dbErr(err, errno.ErrNotFound)
		}
		return ledger.FromBankWithdrawal(b)
	}
	return ledger.LedgerRecord{}, fmt.Errorf("%w: %s has no idempotency key", errno.ErrNotFound, source)
}

// ---------- 成交 ----------

func (s *GormStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	return dbErr(s.conn(ctx).Create(t).Error, errno.ErrNotFound)
}

func (s *GormStore) ListTrades(ctx context.Context, userID uint64, asset string) ([]model.Trade, error) {
	var out []model.Trade
	err := s.conn(ctx).
		Where("user_id = ? AND (base_asset = ? OR quote_asset = ?)", userID, asset, asset).
		Order("id DESC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

// ---------- 审核流通用 ----------

// recordTable 审核流三张表对应的模型
func recordTable(source ledger.Source) (interface{}, error) {
	switch source {
	case ledger.SourceRecharge:
		return &model.Deposit{}, nil
	case ledger.SourceWithdrawal:
		return &model.Withdrawal{}, nil
	case ledger.SourceBankWithdrawal:
		return &model.BankWithdrawal{}, nil
	}
	return nil, fmt.Errorf("%w: unknown record source %q", errno.ErrNotFound, source)
}

func (s *GormStore) GetRecord(ctx context.Context, source ledger.Source, id uint64) (ledger.LedgerRecord, error) {
	return getRecord(s.conn(ctx), source, id)
}

func getRecord(db *gorm.DB, source ledger.Source, id uint64) (ledger.LedgerRecord, error) {
	switch source {
	case ledger.SourceRecharge:
		var d model.Deposit
		if err := db.First(&d, "id = ?", id).Error; err != nil {
			return ledger.LedgerRecord{}, dbErr(err, errno.ErrNotFound)
		}
		return ledger.FromDeposit(d)
	case ledger.SourceWithdrawal:
		var w model.Withdrawal
		if err := db.First(&w, "id = ?", id).Error; err != nil {
			return ledger.LedgerRecord{}, dbErr(err, errno.ErrNotFound)
		}
		return ledger.FromWithdrawal(w)
	case ledger.SourceBankWithdrawal:
		var b model.BankWithdrawal
		if err := db.First(&b, "id = ?", id).Error; err != nil {
			return ledger.LedgerRecord{}, dbErr(err, errno.ErrNotFound)
		}
		return ledger.FromBankWithdrawal(b)
	}
	return ledger.LedgerRecord{}, fmt.Errorf("%w: unknown record source %q", errno.ErrNotFound, source)
}

func (s *GormStore) ListRecords(ctx context.Context, source ledger.Source, filter RecordFilter) ([]ledger.LedgerRecord, int64, error) {
	table, err := recordTable(source)
	if err != nil {
		return nil, 0, err
	}
	var code *int
	if filter.Status != nil {
		c, err := ledger.EncodeStatus(source.Kind(), *filter.Status)
		if err != nil {
			return nil, 0, err
		}
		code = &c
	}
	scope := func(db *gorm.DB) *gorm.DB {
		if code != nil {
			db = db.Where("status = ?", *code)
		}
		if filter.UserID != 0 {
			db = db.Where("user_id = ?", filter.UserID)
		}
		return db
	}

	var total int64
	if err := s.conn(ctx).Model(table).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, dbErr(err, errno.ErrNotFound)
	}
	q := s.conn(ctx).Scopes(scope).Order("id DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []ledger.LedgerRecord
	keep := func(rec ledger.LedgerRecord, err error) {
		if err != nil {
			logger.Warn("skip malformed record", zap.String("source", string(source)), zap.Error(err))
			return
		}
		out = append(out, rec)
	}
	switch source {
	case ledger.SourceRecharge:
		var rows []model.Deposit
		if err := q.Find(&rows).Error; err != nil {
			return nil, 0, dbErr(err, errno.ErrNotFound)
		}
		for _, r := range rows {
			keep(ledger.FromDeposit(r))
		}
	case ledger.SourceWithdrawal:
		var rows []model.Withdrawal
		if err := q.Find(&rows).Error; err != nil {
			return nil, 0, dbErr(err, errno.ErrNotFound)
		}
		for _, r := range rows {
			keep(ledger.FromWithdrawal(r))
		}
	case ledger.SourceBankWithdrawal:
		var rows []model.BankWithdrawal
		if err := q.Find(&rows).Error; err != nil {
			return nil, 0, dbErr(err, errno.ErrNotFound)
		}
		for _, r := range rows {
			keep(ledger.FromBankWithdrawal(r))
		}
	}
	return out, total, nil
}

// CompareAndSwapStatus UPDATE ... WHERE id = ? AND status = <from>，由数据库保证原子性
func (s *GormStore) CompareAndSwapStatus(ctx context.Context, source ledger.Source, id uint64, from ledger.Status, patch StatusPatch) (ledger.LedgerRecord, error) {
	table, err := recordTable(source)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	kind := source.Kind()
	fromCode, err := ledger.EncodeStatus(kind, from)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	toCode, err := ledger.EncodeStatus(kind, patch.To)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	db := s.conn(ctx)
	res := db.Model(table).
		Where("id = ? AND status = ?", id, fromCode).
		Updates(map[string]interface{}{
			"status":           toCode,
			"completed_at":     patch.CompletedAt,
			"rejection_reason": patch.RejectionReason,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return ledger.LedgerRecord{}, dbErr(res.Error, errno.ErrNotFound)
	}
	if res.RowsAffected == 0 {
		// 区分 "不存在" 和 "已被别人处理"
		if _, err := getRecord(db, source, id); err != nil {
			return ledger.LedgerRecord{}, err
		}
		return ledger.LedgerRecord{}, ledger.ErrNotPending
	}
	return getRecord(db, source, id)
}

func (s *GormStore) DeleteRecord(ctx context.Context, source ledger.Source, id uint64) error {
	table, err := recordTable(source)
	if err != nil {
		return err
	}
	db := s.conn(ctx)
	res := db.Where("id = ? AND status IN ?", id, ledger.TerminalCodes(source.Kind())).Delete(table)
	if res.Error != nil {
		return dbErr(res.Error, errno.ErrNotFound)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(table).Where("id = ?", id).Count(&count).Error; err != nil {
			return dbErr(err, errno.ErrNotFound)
		}
		if count == 0 {
			return errno.ErrNotFound
		}
		return ledger.ErrCannotDeletePending
	}
	return nil
}

// ---------- 账户 ----------

func (s *GormStore) LockAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error) {
	db := s.conn(ctx)
	// 先保证账户存在 (并发创建时 DO NOTHING)，再加行锁读取
	seed := model.Account{UserID: userID, Asset: asset}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, dbErr(err, errno.ErrNotFound)
	}
	var acc model.Account
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND asset = ?", userID, asset).
		First(&acc).Error
	if err != nil {
		return nil, dbErr(err, errno.ErrNotFound)
	}
	return &acc, nil
}

func (s *GormStore) GetAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error) {
	var acc model.Account
	err := s.conn(ctx).Where("user_id = ? AND asset = ?", userID, asset).First(&acc).Error
	if err != nil {
		return nil, dbErr(err, errno.ErrNotFound)
	}
	return &acc, nil
}

func (s *GormStore) SaveAccount(ctx context.Context, acc *model.Account) error {
	res := s.conn(ctx).Model(&model.Account{}).
		Where("id = ? AND version = ?", acc.ID, acc.Version).
		Updates(map[string]interface{}{
			"total":      acc.Total,
			"available":  acc.Available,
			"frozen":     acc.Frozen,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return dbErr(res.Error, errno.ErrNotFound)
	}
	if res.RowsAffected == 0 {
		return errno.ErrVersionConflict
	}
	acc.Version++
	return nil
}

func (s *GormStore) ListAccounts(ctx context.Context, afterID uint64, limit int) ([]model.Account, error) {
	var out []model.Account
	err := s.conn(ctx).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) ListUserAccounts(ctx context.Context, userID uint64) ([]model.Account, error) {
	var out []model.Account
	err := s.conn(ctx).Where("user_id = ?", userID).Order("asset ASC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) HaltAccount(ctx context.Context, id uint64, reason string) error {
	res := s.conn(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
		"halted":      true,
		"halt_reason": reason,
		"updated_at":  time.Now(),
	})
	if res.Error != nil {
		return dbErr(res.Error, errno.ErrNotFound)
	}
	if res.RowsAffected == 0 {
		return errno.ErrNotFound
	}
	return nil
}

// ---------- 限额 ----------

func (s *GormStore) GetNetworkLimit(ctx context.Context, asset, network string) (*model.NetworkLimit, error) {
	var l model.NetworkLimit
	err := s.conn(ctx).Where("asset = ? AND network = ? AND enabled = ?", asset, network, true).First(&l).Error
	if err != nil {
		return nil, dbErr(err, errno.ErrLimitsNotFound)
	}
	return &l, nil
}

func (s *GormStore) UpsertNetworkLimit(ctx context.Context, l *model.NetworkLimit) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}, {Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_withdraw", "max_withdraw", "fee", "precision", "enabled", "updated_at"}),
	}).Create(l).Error
	return dbErr(err, errno.ErrNotFound)
}

// ---------- 审计 & outbox ----------

func (s *GormStore) CreateReview(ctx context.Context, r *model.Review) error {
	return dbErr(s.conn(ctx).Create(r).Error, errno.ErrNotFound)
}

func (s *GormStore) ListReviews(ctx context.Context, kind string, recordID uint64) ([]model.Review, error) {
	var out []model.Review
	err := s.conn(ctx).Where("kind = ? AND record_id = ?", kind, recordID).Order("id ASC").Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

// CreateOutboxMessage 必须在业务事务内调用，消息与业务数据一起提交
func (s *GormStore) CreateOutboxMessage(ctx context.Context, topic, key string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := model.OutboxMessage{
		Topic:   topic,
		Key:     key,
		Payload: b,
		Status:  model.OutboxPending,
	}
	return dbErr(s.conn(ctx).Create(&msg).Error, errno.ErrNotFound)
}

func (s *GormStore) ListPendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var out []model.OutboxMessage
	err := s.conn(ctx).Where("status = ?", model.OutboxPending).Order("id ASC").Limit(limit).Find(&out).Error
	return out, dbErr(err, errno.ErrNotFound)
}

func (s *GormStore) MarkOutboxSent(ctx context.Context, id uint64) error {
	err := s.conn(ctx).Model(&model.OutboxMessage{}).Where("id = ?", id).Update("status", model.OutboxSent).Error
	return dbErr(err, errno.ErrNotFound)
}
