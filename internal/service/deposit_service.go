package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/internal/service/mq"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// ConfirmationNotice 链上索引器推送的确认数
type ConfirmationNotice struct {
	Network       string          `json:"chain"`
	TxHash        string          `json:"tx_hash"`
	UserID        uint64          `json:"user_id"`
	Asset         string          `json:"asset"`
	Address       string          `json:"address"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int             `json:"confirmations"`
	Required      int             `json:"required"`
}

func (n *ConfirmationNotice) normalize() error {
	n.Network = strings.ToUpper(strings.TrimSpace(n.Network))
	n.Asset = strings.ToUpper(strings.TrimSpace(n.Asset))
	n.TxHash = strings.TrimSpace(n.TxHash)
	switch {
	case n.Network == "" || n.TxHash == "" || n.Asset == "" || n.UserID == 0:
		return errno.ErrBind.WithMessage("chain, tx_hash, asset and user_id are required")
	case !n.Amount.IsPositive():
		return ledger.ErrInvalidAmount
	case n.Confirmations < 0:
		n.Confirmations = 0
	}
	return nil
}

// RechargeRequest 用户提交的充值申请 (待管理员审核)
type RechargeRequest struct {
	UserID  uint64
	Asset   string
	Network string
	TxHash  string
	Address string
	Amount  decimal.Decimal
}

// DepositProgress 充值确认进度
type DepositProgress struct {
	ID                    uint64        `json:"id"`
	Status                ledger.Status `json:"status"`
	Confirmations         int           `json:"confirmations"`
	RequiredConfirmations int           `json:"required_confirmations"`
	Progress              int           `json:"progress"`
	Confirming            bool          `json:"confirming"`
}

// DepositService 充值: 索引器确认推送、用户充值申请、确认进度
type DepositService struct {
	store repository.Store
	topic string
	now   func() time.Time
}

func NewDepositService(store repository.Store, topic string) *DepositService {
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &DepositService{store: store, topic: topic, now: time.Now}
}

// ApplyConfirmation 处理一次确认数推送 (幂等)
// 首次出现时创建 confirming 记录；确认数达到要求后在同一事务内完成并入账；终态记录忽略后续推送
// 链上事实优先于用户申请，见 trackedDeposit
func (s *DepositService) ApplyConfirmation(ctx context.Context, n ConfirmationNotice) (ledger.LedgerRecord, error) {
	if err := n.normalize(); err != nil {
		return ledger.LedgerRecord{}, err
	}

	var (
		result     ledger.LedgerRecord
		credited   bool
		superseded bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		credited, superseded = false, false
		rec, claimFailed, err := s.trackedDeposit(ctx, tx, n)
		if err != nil {
			return err
		}
		superseded = claimFailed
		result = rec
		if rec.Status != ledger.StatusConfirming {
			// 已完成 / 已失败的记录不再接受推送
			return nil
		}

		if *rec.Confirmations != n.Confirmations || *rec.RequiredConfirmations != n.Required {
			if err := tx.UpdateDepositConfirmations(ctx, rec.ID, n.Confirmations, n.Required); err != nil {
				return err
			}
			confirmations, required := n.Confirmations, n.Required
			rec.Confirmations, rec.RequiredConfirmations = &confirmations, &required
		}
		result = rec

		if ledger.IsConfirming(rec.Status, n.Confirmations, n.Required) {
			return nil
		}

		now := s.now().UTC()
		next := rec.Clone()
		next.Status = ledger.StatusCompleted
		next.CompletedAt = &now
		updated, err := transition{current: rec, next: next, action: "confirm"}.commit(ctx, tx, s.topic, now)
		if err != nil {
			return err
		}
		result = updated
		credited = true
		return emit(ctx, tx, s.topic, rec.UserID, event.TypeDepositCredited, now, event.DepositCreditedEvent{
			DepositID: rec.ID,
			UserID:    rec.UserID,
			Asset:     rec.Asset,
			Network:   rec.Network,
			TxHash:    rec.TxHash,
			Credited:  rec.Amount.Sub(rec.Fee).String(),
		})
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotPending) && result.ID != 0 {
			// 并发推送已经完成了这笔充值
			return s.store.GetRecord(ctx, ledger.SourceRecharge, result.ID)
		}
		if errors.Is(err, ledger.ErrConfirmationConflict) {
			monitor.Business.ConfirmationConflicts.WithLabelValues(n.Network).Inc()
			logger.Error("确认数推送与已记录的充值冲突，需要人工处理",
				zap.String("network", n.Network),
				zap.String("tx_hash", n.TxHash),
				zap.Uint64("user_id", n.UserID),
				zap.Error(err),
			)
			return ledger.LedgerRecord{}, err
		}
		return ledger.LedgerRecord{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	if superseded {
		monitor.Business.DepositClaimsSuperseded.WithLabelValues(n.Network).Inc()
		logger.Warn("用户充值申请与链上确认不一致，申请已作废",
			zap.String("network", n.Network),
			zap.String("tx_hash", n.TxHash),
			zap.Uint64("owner", n.UserID),
		)
	}
	if credited {
		monitor.Business.DepositCreditedTotal.WithLabelValues(result.Asset).Inc()
		logger.Info("充值确认完成并入账",
			zap.Uint64("deposit_id", result.ID),
			zap.Uint64("user_id", result.UserID),
			zap.String("asset", result.Asset),
			zap.String("tx_hash", result.TxHash),
		)
	}
	return result, nil
}

// trackedDeposit 返回索引器跟踪的充值记录，不存在时创建
// (network, tx_hash) 上还在待审核的用户申请: 与推送一致则转为 confirming 由索引器接管，
// 不一致则作废申请并按推送重新建档。已由索引器跟踪的记录出现不一致返回 ErrConfirmationConflict
func (s *DepositService) trackedDeposit(ctx context.Context, tx repository.Store, n ConfirmationNotice) (ledger.LedgerRecord, bool, error) {
	d, err := tx.GetDepositByTxHash(ctx, n.Network, n.TxHash)
	if errors.Is(err, errno.ErrNotFound) {
		rec, err := s.createTracked(ctx, tx, n)
		return rec, false, err
	}
	if err != nil {
		return ledger.LedgerRecord{}, false, err
	}
	rec, err := ledger.FromDeposit(*d)
	if err != nil {
		return ledger.LedgerRecord{}, false, err
	}

	matches := d.UserID == n.UserID && d.Asset == n.Asset && d.Amount.Equal(n.Amount)
	if rec.Status != ledger.StatusPending {
		if !matches {
			return ledger.LedgerRecord{}, false, fmt.Errorf("%w: notice for %s/%s (user %d, %s %s) does not match deposit #%d",
				ledger.ErrConfirmationConflict, n.Network, n.TxHash, n.UserID, n.Amount, n.Asset, d.ID)
		}
		return rec, false, nil
	}

	now := s.now().UTC()
	next := rec.Clone()
	if matches {
		next.Status = ledger.StatusConfirming
		rec, err = transition{current: rec, next: next, action: "track"}.commit(ctx, tx, s.topic, now)
		return rec, false, err
	}

	next.Status = ledger.StatusFailed
	next.RejectionReason = "superseded by chain confirmation"
	if _, err := (transition{current: rec, next: next, action: "supersede"}).commit(ctx, tx, s.topic, now); err != nil {
		return ledger.LedgerRecord{}, false, err
	}
	rec, err = s.createTracked(ctx, tx, n)
	return rec, true, err
}

func (s *DepositService) createTracked(ctx context.Context, tx repository.Store, n ConfirmationNotice) (ledger.LedgerRecord, error) {
	d := &model.Deposit{
		UserID:                n.UserID,
		Asset:                 n.Asset,
		Network:               n.Network,
		Address:               n.Address,
		TxHash:                n.TxHash,
		Amount:                n.Amount,
		Status:                ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusConfirming),
		Confirmations:         n.Confirmations,
		RequiredConfirmations: n.Required,
	}
	if err := tx.CreateDeposit(ctx, d); err != nil {
		return ledger.LedgerRecord{}, err
	}
	return ledger.FromDeposit(*d)
}

// SubmitRecharge 用户提交充值申请，等待管理员审核 (只能通过，不能驳回)
// 索引器已经上报过的交易返回 ErrDepositExists；申请在审核前被索引器推送覆盖时以链上为准
func (s *DepositService) SubmitRecharge(ctx context.Context, req RechargeRequest) (ledger.LedgerRecord, error) {
	if !req.Amount.IsPositive() {
		return ledger.LedgerRecord{}, ledger.ErrInvalidAmount
	}
	d := &model.Deposit{
		UserID:  req.UserID,
		Asset:   strings.ToUpper(strings.TrimSpace(req.Asset)),
		Network: strings.ToUpper(strings.TrimSpace(req.Network)),
		Address: strings.TrimSpace(req.Address),
		TxHash:  strings.TrimSpace(req.TxHash),
		Amount:  req.Amount,
		Status:  ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusPending),
	}
	if d.TxHash == "" {
		return ledger.LedgerRecord{}, errno.ErrBind.WithMessage("tx_hash is required")
	}
	if err := s.store.CreateDeposit(ctx, d); err != nil {
		return ledger.LedgerRecord{}, err
	}
	logger.Info("充值申请已提交", zap.Uint64("deposit_id", d.ID), zap.Uint64("user_id", d.UserID), zap.String("asset", d.Asset))
	return ledger.FromDeposit(*d)
}

// Progress 用户查询自己某笔充值的确认进度
func (s *DepositService) Progress(ctx context.Context, userID, id uint64) (DepositProgress, error) {
	rec, err := s.store.GetRecord(ctx, ledger.SourceRecharge, id)
	if err != nil {
		return DepositProgress{}, err
	}
	if rec.UserID != userID {
		return DepositProgress{}, fmt.Errorf("recharge #%d: %w", id, errno.ErrNotFound)
	}

	var confirmations, required int
	if rec.Confirmations != nil {
		confirmations = *rec.Confirmations
	}
	if rec.RequiredConfirmations != nil {
		required = *rec.RequiredConfirmations
	}
	progress := ledger.Progress(confirmations, required)
	if rec.Status == ledger.StatusCompleted {
		progress = 100
	}
	return DepositProgress{
		ID:                    rec.ID,
		Status:                rec.Status,
		Confirmations:         confirmations,
		RequiredConfirmations: required,
		Progress:              progress,
		Confirming:            ledger.IsConfirming(rec.Status, confirmations, required),
	}, nil
}

// Listen 消费索引器的确认数主题 (阻塞)
// 格式错误的消息直接确认丢弃；处理失败或与已有记录冲突的消息返回错误，不确认
func (s *DepositService) Listen(ctx context.Context, consumer mq.Consumer, topic string) error {
	return consumer.Subscribe(ctx, topic, func(msg *mq.Message) error {
		var n ConfirmationNotice
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			logger.Warn("确认数消息无法解析，已丢弃", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		_, err := s.ApplyConfirmation(ctx, n)
		if errors.Is(err, errno.ErrBind) || errors.Is(err, ledger.ErrMalformedRecord) || errors.Is(err, ledger.ErrInvalidAmount) {
			logger.Warn("确认数消息无效，已丢弃", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		return err
	})
}
