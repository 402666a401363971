package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// 审核动作
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

// Notifier 审核结果通知 (异步任务)，失败不影响审核本身
type Notifier interface {
	NotifyReviewed(ctx context.Context, rec ledger.LedgerRecord) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyReviewed(context.Context, ledger.LedgerRecord) error { return nil }

// AdminService 管理后台: 充值 / 链上提现 / 银行卡提现的审核、列表、删除
type AdminService struct {
	store    repository.Store
	notifier Notifier
	topic    string
	now      func() time.Time
}

// NewAdminService notifier 可以为 nil
func NewAdminService(store repository.Store, notifier Notifier, topic string) *AdminService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &AdminService{store: store, notifier: notifier, topic: topic, now: time.Now}
}

// Review 按 action 分发到 Approve / Reject
func (s *AdminService) Review(ctx context.Context, adminID uint64, source ledger.Source, id uint64, action, remark string) (ledger.LedgerRecord, error) {
	switch action {
	case ActionApprove:
		return s.Approve(ctx, adminID, source, id, remark)
	case ActionReject:
		return s.Reject(ctx, adminID, source, id, remark)
	}
	return ledger.LedgerRecord{}, errno.ErrBind.WithMessage(fmt.Sprintf("unknown review action %q", action))
}

// Approve 审核通过: 充值入账，提现从冻结中扣除
func (s *AdminService) Approve(ctx context.Context, adminID uint64, source ledger.Source, id uint64, remark string) (ledger.LedgerRecord, error) {
	return s.apply(ctx, adminID, source, id, ActionApprove, remark, func(rec ledger.LedgerRecord) (ledger.LedgerRecord, error) {
		return ledger.Approve(rec, s.now().UTC())
	})
}

// Reject 审核驳回，必须给出原因；提现的冻结金额退回可用
func (s *AdminService) Reject(ctx context.Context, adminID uint64, source ledger.Source, id uint64, reason string) (ledger.LedgerRecord, error) {
	return s.apply(ctx, adminID, source, id, ActionReject, reason, func(rec ledger.LedgerRecord) (ledger.LedgerRecord, error) {
		return ledger.Reject(rec, reason)
	})
}

func (s *AdminService) apply(ctx context.Context, adminID uint64, source ledger.Source, id uint64, action, remark string,
	decide func(ledger.LedgerRecord) (ledger.LedgerRecord, error)) (ledger.LedgerRecord, error) {
	if !source.Reviewable() {
		return ledger.LedgerRecord{}, fmt.Errorf("%w: %s records are not reviewed", errno.ErrForbidden, source)
	}

	rec, err := s.store.GetRecord(ctx, source, id)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	next, err := decide(rec)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}

	// 读取之后可能已被其他管理员处理，条件更新会返回 ErrNotPending
	var updated ledger.LedgerRecord
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		updated, err = transition{current: rec, next: next, actorID: adminID, action: action, remark: remark}.
			commit(ctx, tx, s.topic, s.now())
		return err
	})
	if err != nil {
		logger.Warn("审核失败",
			zap.String("source", string(source)),
			zap.Uint64("id", id),
			zap.Uint64("admin_id", adminID),
			zap.String("action", action),
			zap.Error(err),
		)
		return ledger.LedgerRecord{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	monitor.Business.ReviewTotal.WithLabelValues(string(source), action).Inc()
	if source == ledger.SourceRecharge && updated.Status == ledger.StatusCompleted {
		monitor.Business.DepositCreditedTotal.WithLabelValues(updated.Asset).Inc()
	}
	logger.Info("审核完成",
		zap.String("source", string(source)),
		zap.Uint64("id", id),
		zap.Uint64("admin_id", adminID),
		zap.String("status", string(updated.Status)),
	)

	if err := s.notifier.NotifyReviewed(ctx, updated); err != nil {
		logger.Warn("审核通知入队失败", zap.Uint64("id", id), zap.Error(err))
	}
	return updated, nil
}

// Delete 删除终态记录，进行中的记录拒绝删除
func (s *AdminService) Delete(ctx context.Context, adminID uint64, source ledger.Source, id uint64) error {
	if !source.Reviewable() {
		return fmt.Errorf("%w: %s records are not managed here", errno.ErrForbidden, source)
	}
	rec, err := s.store.GetRecord(ctx, source, id)
	if err != nil {
		return err
	}
	if err := ledger.CheckDeletable(rec); err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		// DeleteRecord 本身带终态条件，防止读取后状态被改回
		if err := tx.DeleteRecord(ctx, source, id); err != nil {
			return err
		}
		return tx.CreateReview(ctx, &model.Review{
			Kind:     string(source),
			RecordID: id,
			AdminID:  adminID,
			Action:   ActionDelete,
		})
	})
	if err != nil {
		return err
	}

	monitor.Business.ReviewTotal.WithLabelValues(string(source), ActionDelete).Inc()
	logger.Info("记录已删除", zap.String("source", string(source)), zap.Uint64("id", id), zap.Uint64("admin_id", adminID))
	return nil
}

// List 后台列表，按 ID 倒序
func (s *AdminService) List(ctx context.Context, source ledger.Source, filter repository.RecordFilter) ([]ledger.LedgerRecord, int64, error) {
	if !source.Reviewable() {
		return nil, 0, fmt.Errorf("%w: %s records are not managed here", errno.ErrForbidden, source)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListRecords(ctx, source, filter)
}

// Reviews 某条记录的审核历史
func (s *AdminService) Reviews(ctx context.Context, source ledger.Source, id uint64) ([]model.Review, error) {
	return s.store.ListReviews(ctx, string(source), id)
}
