package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// DefaultEventsTopic 账本事件主题，可通过 ledger.events_topic 覆盖
const DefaultEventsTopic = "ledger_events"

// violationError 记录违反不变量的账户，事务回滚后据此冻结账户
type violationError struct {
	userID uint64
	asset  string
	cause  ledger.Cause
	err    error
}

func (e *violationError) Error() string {
	return fmt.Sprintf("user %d %s %s: %v", e.userID, e.asset, e.cause, e.err)
}

func (e *violationError) Unwrap() error {
	return e.err
}

// applyDelta 锁定账户、校验不变量并保存，必须在事务内调用
func applyDelta(ctx context.Context, tx repository.Store, userID uint64, asset string, delta ledger.Delta) (*model.Account, error) {
	acc, err := tx.LockAccount(ctx, userID, asset)
	if err != nil {
		return nil, err
	}
	if acc.Halted {
		return nil, fmt.Errorf("user %d %s: %w", userID, asset, ledger.ErrAccountHalted)
	}

	next, err := ledger.ApplyMutation(ledger.BalanceOf(*acc), delta)
	if err != nil {
		return nil, &violationError{userID: userID, asset: asset, cause: delta.Cause, err: err}
	}
	next.WriteTo(acc)
	if err := tx.SaveAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// haltOnViolation 事务已经回滚，在事务外冻结出问题的账户
// 返回原错误，调用方照常向上返回
func haltOnViolation(ctx context.Context, store repository.Store, topic string, err error) error {
	var v *violationError
	if !errors.As(err, &v) {
		return err
	}

	monitor.Business.InvariantViolationsTotal.WithLabelValues(string(v.cause)).Inc()
	log := logger.With(zap.Uint64("user_id", v.userID), zap.String("asset", v.asset))
	log.Error("余额不变量被破坏，账户已冻结", zap.String("cause", string(v.cause)), zap.Error(v.err))

	if hErr := haltAccount(ctx, store, topic, v.userID, v.asset, v.err.Error()); hErr != nil {
		log.Error("冻结账户失败", zap.Error(hErr))
	}
	return err
}

func haltAccount(ctx context.Context, store repository.Store, topic string, userID uint64, asset, reason string) error {
	return store.Transaction(ctx, func(tx repository.Store) error {
		acc, err := tx.LockAccount(ctx, userID, asset)
		if err != nil {
			return err
		}
		if acc.Halted {
			return nil
		}
		if err := tx.HaltAccount(ctx, acc.ID, reason); err != nil {
			return err
		}
		return emit(ctx, tx, topic, userID, event.TypeAccountHalted, time.Now(), event.AccountHaltedEvent{
			AccountID: acc.ID,
			UserID:    userID,
			Asset:     asset,
			Reason:    reason,
		})
	})
}

// emit 把事件写入 outbox，与业务数据同一个事务
func emit(ctx context.Context, tx repository.Store, topic string, userID uint64, typ string, at time.Time, data interface{}) error {
	env, err := event.NewEnvelope(typ, at, data)
	if err != nil {
		return err
	}
	return tx.CreateOutboxMessage(ctx, topic, strconv.FormatUint(userID, 10), env)
}

// transition 一次审核流状态迁移
type transition struct {
	current ledger.LedgerRecord
	next    ledger.LedgerRecord
	actorID uint64 // 0: 用户本人或系统，不落审核记录
	action  string
	remark  string
}

// commit 条件更新状态 + 余额结算 + 审核记录 + outbox，一个事务完成
// 迁移是否合法只看 ledger.CanTransition，存储层再用 CAS 防并发
func (t transition) commit(ctx context.Context, tx repository.Store, topic string, at time.Time) (ledger.LedgerRecord, error) {
	rec := t.current
	if !ledger.CanTransition(rec.Status, t.next.Status) {
		return ledger.LedgerRecord{}, fmt.Errorf("%s #%d %s -> %s: %w", rec.Source, rec.ID, rec.Status, t.next.Status, ledger.ErrNotPending)
	}
	updated, err := tx.CompareAndSwapStatus(ctx, rec.Source, rec.ID, rec.Status, repository.PatchFrom(t.next))
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	if delta, ok := ledger.SettlementDelta(rec, t.next.Status); ok {
		if _, err := applyDelta(ctx, tx, rec.UserID, rec.Asset, delta); err != nil {
			return ledger.LedgerRecord{}, err
		}
	}

	if t.actorID != 0 {
		if err := tx.CreateReview(ctx, &model.Review{
			Kind:     string(rec.Source),
			RecordID: rec.ID,
			AdminID:  t.actorID,
			Action:   t.action,
			Remark:   t.remark,
		}); err != nil {
			return ledger.LedgerRecord{}, err
		}
	}

	if err := emit(ctx, tx, topic, rec.UserID, event.TypeRecordTransitioned, at, event.RecordTransitionedEvent{
		RecordID: rec.ID,
		Source:   string(rec.Source),
		UserID:   rec.UserID,
		Asset:    rec.Asset,
		From:     string(rec.Status),
		To:       string(updated.Status),
		ActorID:  t.actorID,
		Reason:   updated.RejectionReason,
	}); err != nil {
		return ledger.LedgerRecord{}, err
	}
	return updated, nil
}
