package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/address"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// AddressValidator 按网络校验地址格式
type AddressValidator interface {
	Validate(network, addr string) error
}

// WithdrawService 用户提现: 校验 -> 计价 -> 冻结，以及审核前撤回
type WithdrawService struct {
	store     repository.Store
	limits    *LimitsService
	addresses AddressValidator
	topic     string
	now       func() time.Time
}

func NewWithdrawService(store repository.Store, limits *LimitsService, addresses AddressValidator, topic string) *WithdrawService {
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &WithdrawService{
		store:     store,
		limits:    limits,
		addresses: addresses,
		topic:     topic,
		now:       time.Now,
	}
}

// SubmitRequest 链上提现
type SubmitRequest struct {
	UserID         uint64
	Asset          string
	Network        string
	Address        string
	Amount         decimal.Decimal
	IdempotencyKey string // 可选，UUID
}

// BankSubmitRequest 银行卡提现
type BankSubmitRequest struct {
	UserID         uint64
	Asset          string
	BankName       string
	AccountName    string
	CardNumber     string
	Amount         decimal.Decimal
	IdempotencyKey string
}

func checkIdempotencyKey(key string) (*string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(key); err != nil {
		return nil, errno.ErrBind.WithMessage("Idempotency-Key must be a UUID")
	}
	return &key, nil
}

// replay 同一个幂等键重复提交: 参数一致返回原记录，不一致报冲突
func (s *WithdrawService) replay(ctx context.Context, source ledger.Source, userID uint64, key *string, same func(ledger.LedgerRecord) bool) (ledger.LedgerRecord, bool, error) {
	if key == nil {
		return ledger.LedgerRecord{}, false, nil
	}
	rec, err := s.store.FindByIdempotencyKey(ctx, source, userID, *key)
	if errors.Is(err, errno.ErrNotFound) {
		return ledger.LedgerRecord{}, false, nil
	}
	if err != nil {
		return ledger.LedgerRecord{}, false, err
	}
	if !same(rec) {
		return ledger.LedgerRecord{}, false, errno.ErrIdempotencyConflict
	}
	logger.Info("幂等重放提现请求", zap.Uint64("user_id", userID), zap.String("key", *key), zap.Uint64("record_id", rec.ID))
	return rec, true, nil
}

// Submit 提交链上提现，成功后金额 (含手续费) 从可用转入冻结
func (s *WithdrawService) Submit(ctx context.Context, req SubmitRequest) (ledger.LedgerRecord, error) {
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	network := strings.ToUpper(strings.TrimSpace(req.Network))
	key, err := checkIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	same := func(r ledger.LedgerRecord) bool {
		return r.Asset == asset && r.Network == network &&
			r.Address == strings.TrimSpace(req.Address) && r.Amount.Equal(req.Amount)
	}
	rec, replayed, err := s.replay(ctx, ledger.SourceWithdrawal, req.UserID, key, same)
	if err != nil || replayed {
		return rec, err
	}

	limits, err := s.limits.Lookup(ctx, asset, network)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	var created model.Withdrawal
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		acc, err := tx.LockAccount(ctx, req.UserID, asset)
		if err != nil {
			return err
		}
		if acc.Halted {
			return ledger.ErrAccountHalted
		}
		// 在行锁下用最新的可用余额校验，避免并发提交超额冻结
		valid, err := ledger.ValidateWithdrawal(ledger.WithdrawalRequest{
			Address: req.Address,
			Amount:  req.Amount,
			Network: network,
		}, limits, acc.Available)
		if err != nil {
			return err
		}
		if err := s.addresses.Validate(network, valid.Address); err != nil {
			return err
		}

		created = model.Withdrawal{
			UserID:         req.UserID,
			Asset:          asset,
			Network:        network,
			ToAddress:      valid.Address,
			Amount:         valid.Amount,
			Fee:            valid.Fee,
			NetAmount:      valid.NetAmount,
			Status:         ledger.MustEncodeStatus(ledger.KindWithdraw, ledger.StatusPending),
			IdempotencyKey: key,
		}
		if err := tx.CreateWithdrawal(ctx, &created); err != nil {
			return err
		}
		if _, err := applyDelta(ctx, tx, req.UserID, asset, ledger.WithdrawFreeze(valid.Amount)); err != nil {
			return err
		}
		return emit(ctx, tx, s.topic, req.UserID, event.TypeWithdrawalSubmitted, s.now(), event.WithdrawalSubmittedEvent{
			RecordID:  created.ID,
			Source:    string(ledger.SourceWithdrawal),
			UserID:    req.UserID,
			Asset:     asset,
			Network:   network,
			Address:   valid.Address,
			Amount:    valid.Amount.String(),
			Fee:       valid.Fee.String(),
			NetAmount: valid.NetAmount.String(),
		})
	})
	if err != nil {
		// 同一个幂等键并发提交，唯一索引挡住了后到的请求
		if key != nil && errors.Is(err, errno.ErrDatabase) {
			if rec, replayed, rerr := s.replay(ctx, ledger.SourceWithdrawal, req.UserID, key, same); rerr != nil || replayed {
				return rec, rerr
			}
		}
		return ledger.LedgerRecord{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	monitor.Business.WithdrawSubmittedTotal.WithLabelValues(string(ledger.SourceWithdrawal), asset).Inc()
	logger.Info("提现申请已冻结",
		zap.Uint64("withdrawal_id", created.ID),
		zap.Uint64("user_id", req.UserID),
		zap.String("asset", asset),
		zap.String("amount", created.Amount.String()),
	)
	return ledger.FromWithdrawal(created)
}

// SubmitBank 提交银行卡提现，限额使用 network = BANK
func (s *WithdrawService) SubmitBank(ctx context.Context, req BankSubmitRequest) (ledger.LedgerRecord, error) {
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	card := strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	key, err := checkIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	same := func(r ledger.LedgerRecord) bool {
		return r.Asset == asset && r.Address == ledger.MaskCardNumber(card) && r.Amount.Equal(req.Amount)
	}
	rec, replayed, err := s.replay(ctx, ledger.SourceBankWithdrawal, req.UserID, key, same)
	if err != nil || replayed {
		return rec, err
	}

	limits, err := s.limits.Lookup(ctx, asset, ledger.BankNetwork)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	var created model.BankWithdrawal
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		acc, err := tx.LockAccount(ctx, req.UserID, asset)
		if err != nil {
			return err
		}
		if acc.Halted {
			return ledger.ErrAccountHalted
		}
		valid, err := ledger.ValidateWithdrawal(ledger.WithdrawalRequest{
			Address: card,
			Amount:  req.Amount,
			Network: ledger.BankNetwork,
		}, limits, acc.Available)
		if err != nil {
			return err
		}
		if err := address.ValidateCardNumber(valid.Address); err != nil {
			return err
		}
		if strings.TrimSpace(req.BankName) == "" || strings.TrimSpace(req.AccountName) == "" {
			return errno.ErrBind.WithMessage("bank name and account name are required")
		}

		created = model.BankWithdrawal{
			UserID:         req.UserID,
			Asset:          asset,
			BankName:       strings.TrimSpace(req.BankName),
			AccountName:    strings.TrimSpace(req.AccountName),
			CardNumber:     valid.Address,
			Amount:         valid.Amount,
			Fee:            valid.Fee,
			NetAmount:      valid.NetAmount,
			Status:         ledger.MustEncodeStatus(ledger.KindWithdraw, ledger.StatusPending),
			IdempotencyKey: key,
		}
		if err := tx.CreateBankWithdrawal(ctx, &created); err != nil {
			return err
		}
		if _, err := applyDelta(ctx, tx, req.UserID, asset, ledger.WithdrawFreeze(valid.Amount)); err != nil {
			return err
		}
		return emit(ctx, tx, s.topic, req.UserID, event.TypeWithdrawalSubmitted, s.now(), event.WithdrawalSubmittedEvent{
			RecordID:  created.ID,
			Source:    string(ledger.SourceBankWithdrawal),
			UserID:    req.UserID,
			Asset:     asset,
			Network:   ledger.BankNetwork,
			Address:   ledger.MaskCardNumber(valid.Address),
			Amount:    valid.Amount.String(),
			Fee:       valid.Fee.String(),
			NetAmount: valid.NetAmount.String(),
		})
	})
	if err != nil {
		// 同一个幂等键并发提交，唯一索引挡住了后到的请求
		if key != nil && errors.Is(err, errno.ErrDatabase) {
			if rec, replayed, rerr := s.replay(ctx, ledger.SourceBankWithdrawal, req.UserID, key, same); rerr != nil || replayed {
				return rec, rerr
			}
		}
		return ledger.LedgerRecord{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	monitor.Business.WithdrawSubmittedTotal.WithLabelValues(string(ledger.SourceBankWithdrawal), asset).Inc()
	logger.Info("银行卡提现申请已冻结",
		zap.Uint64("bank_withdrawal_id", created.ID),
		zap.Uint64("user_id", req.UserID),
		zap.String("asset", asset),
		zap.String("amount", created.Amount.String()),
	)
	return ledger.FromBankWithdrawal(created)
}

// Cancel 用户撤回自己尚未审核的提现，冻结金额退回可用
func (s *WithdrawService) Cancel(ctx context.Context, userID uint64, source ledger.Source, id uint64) (ledger.LedgerRecord, error) {
	rec, err := s.store.GetRecord(ctx, source, id)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	// 别人的记录按不存在处理，不泄露 ID 是否存在
	if rec.UserID != userID {
		return ledger.LedgerRecord{}, fmt.Errorf("%s #%d: %w", source, id, errno.ErrNotFound)
	}
	next, err := ledger.Cancel(rec)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	var updated ledger.LedgerRecord
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		updated, err = transition{current: rec, next: next, action: "cancel"}.commit(ctx, tx, s.topic, s.now())
		return err
	})
	if err != nil {
		return ledger.LedgerRecord{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	monitor.Business.ReviewTotal.WithLabelValues(string(source), "cancel").Inc()
	logger.Info("用户撤回提现", zap.String("source", string(source)), zap.Uint64("id", id), zap.Uint64("user_id", userID))
	return updated, nil
}
