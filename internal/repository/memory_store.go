package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

// MemoryStore 内存实现，用于单元测试和本地调试
// 所有操作串行执行；事务持有全局锁，出错时整体恢复到事务开始前的快照
type MemoryStore struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
	now  func() time.Time
}

type memState struct {
	seq         map[string]uint64
	deposits    map[uint64]model.Deposit
	withdrawals map[uint64]model.Withdrawal
	banks       map[uint64]model.BankWithdrawal
	trades      map[uint64]model.Trade
	accounts    map[uint64]model.Account
	limits      map[string]model.NetworkLimit
	reviews     []model.Review
	outbox      []model.OutboxMessage
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		st: &memState{
			seq:         map[string]uint64{},
			deposits:    map[uint64]model.Deposit{},
			withdrawals: map[uint64]model.Withdrawal{},
			banks:       map[uint64]model.BankWithdrawal{},
			trades:      map[uint64]model.Trade{},
			accounts:    map[uint64]model.Account{},
			limits:      map[string]model.NetworkLimit{},
		},
		now: time.Now,
	}
}

// WithClock 固定时间，测试用
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (st *memState) clone() *memState {
	return &memState{
		seq:         maps.Clone(st.seq),
		deposits:    maps.Clone(st.deposits),
		withdrawals: maps.Clone(st.withdrawals),
		banks:       maps.Clone(st.banks),
		trades:      maps.Clone(st.trades),
		accounts:    maps.Clone(st.accounts),
		limits:      maps.Clone(st.limits),
		reviews:     slices.Clone(st.reviews),
		outbox:      slices.Clone(st.outbox),
	}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) nextID(table string) uint64 {
	s.st.seq[table]++
	return s.st.seq[table]
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	unlock := s.lock()
	defer unlock()

	snapshot := s.st.clone()
	tx := &MemoryStore{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// ---------- 充值 ----------

func (s *MemoryStore) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	defer s.lock()()
	for _, existing := range s.st.deposits {
		if existing.Network == d.Network && existing.TxHash == d.TxHash && existing.Status != depositFailed {
			return fmt.Errorf("%w: %s/%s", errno.ErrDepositExists, d.Network, d.TxHash)
		}
	}
	d.ID = s.nextID("deposits")
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	d.UpdatedAt = d.CreatedAt
	s.st.deposits[d.ID] = *d
	return nil
}

func (s *MemoryStore) GetDepositByTxHash(ctx context.Context, network, txHash string) (*model.Deposit, error) {
	defer s.lock()()
	for _, d := range s.st.deposits {
		if d.Network == network && d.TxHash == txHash && d.Status != depositFailed {
			out := d
			return &out, nil
		}
	}
	return nil, errno.ErrNotFound
}

func (s *MemoryStore) UpdateDepositConfirmations(ctx context.Context, id uint64, confirmations, required int) error {
	defer s.lock()()
	d, ok := s.st.deposits[id]
	if !ok {
		return errno.ErrNotFound
	}
	d.Confirmations, d.RequiredConfirmations = confirmations, required
	d.UpdatedAt = s.now()
	s.st.deposits[id] = d
	return nil
}

func (s *MemoryStore) ListDeposits(ctx context.Context, userID uint64, asset string) ([]model.Deposit, error) {
	defer s.lock()()
	var out []model.Deposit
	for _, id := range sortedKeys(s.st.deposits) {
		if d := s.st.deposits[id]; d.UserID == userID && d.Asset == asset {
			out = append(out, d)
		}
	}
	return out, nil
}

// ---------- 提现 ----------

func (s *MemoryStore) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	defer s.lock()()
	if w.IdempotencyKey != nil {
		for _, existing := range s.st.withdrawals {
			if existing.UserID == w.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *w.IdempotencyKey {
				return fmt.Errorf("%w: duplicate idempotency key", errno.ErrDatabase)
			}
		}
	}
	w.ID = s.nextID("withdrawals")
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now()
	}
	w.UpdatedAt = w.CreatedAt
	s.st.withdrawals[w.ID] = *w
	return nil
}

func (s *MemoryStore) ListWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.Withdrawal, error) {
	defer s.lock()()
	var out []model.Withdrawal
	for _, id := range sortedKeys(s.st.withdrawals) {
		if w := s.st.withdrawals[id]; w.UserID == userID && w.Asset == asset {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateBankWithdrawal(ctx context.Context, b *model.BankWithdrawal) error {
	defer s.lock()()
	if b.IdempotencyKey != nil {
		for _, existing := range s.st.banks {
			if existing.UserID == b.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *b.IdempotencyKey {
				return fmt.Errorf("%w: duplicate idempotency key", errno.ErrDatabase)
			}
		}
	}
	b.ID = s.nextID("bank_withdrawals")
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	b.UpdatedAt = b.CreatedAt
	s.st.banks[b.ID] = *b
	return nil
}

func (s *MemoryStore) ListBankWithdrawals(ctx context.Context, userID uint64, asset string) ([]model.BankWithdrawal, error) {
	defer s.lock()()
	var out []model.BankWithdrawal
	for _, id := range sortedKeys(s.st.banks) {
		if b := s.st.banks[id]; b.UserID == userID && b.Asset == asset {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByIdempotencyKey(ctx context.Context, source ledger.Source, userID uint64, key string) (ledger.LedgerRecord, error) {
	defer s.lock()()
	switch source {
	case ledger.SourceWithdrawal:
		for _, w := range s.st.withdrawals {
			if w.UserID == userID && w.IdempotencyKey != nil && *w.IdempotencyKey == key {
				return ledger.FromWithdrawal(w)
			}
		}
	case ledger.SourceBankWithdrawal:
		for _, b := range s.st.banks {
			if b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
				return ledger.FromBankWithdrawal(b)
			}
		}
	}
	return ledger.LedgerRecord{}, errno.ErrNotFound
}

// ---------- 成交 ----------

func (s *MemoryStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	defer s.lock()()
	t.ID = s.nextID("trades")
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.Kind == "" {
		t.Kind = string(ledger.KindTrade)
	}
	s.st.trades[t.ID] = *t
	return nil
}

func (s *MemoryStore) ListTrades(ctx context.Context, userID uint64, asset string) ([]model.Trade, error) {
	defer s.lock()()
	var out []model.Trade
	for _, id := range sortedKeys(s.st.trades) {
		if t := s.st.trades[id]; t.UserID == userID && (t.BaseAsset == asset || t.QuoteAsset == asset) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ---------- 审核流通用 ----------

func (s *MemoryStore) GetRecord(ctx context.Context, source ledger.Source, id uint64) (ledger.LedgerRecord, error) {
	defer s.lock()()
	return s.getRecord(source, id)
}

func (s *MemoryStore) getRecord(source ledger.Source, id uint64) (ledger.LedgerRecord, error) {
	switch source {
	case ledger.SourceRecharge:
		if d, ok := s.st.deposits[id]; ok {
			return ledger.FromDeposit(d)
		}
	case ledger.SourceWithdrawal:
		if w, ok := s.st.withdrawals[id]; ok {
			return ledger.FromWithdrawal(w)
		}
	case ledger.SourceBankWithdrawal:
		if b, ok := s.st.banks[id]; ok {
			return ledger.FromBankWithdrawal(b)
		}
	default:
		return ledger.LedgerRecord{}, fmt.Errorf("%w: unknown record source %q", errno.ErrNotFound, source)
	}
	return ledger.LedgerRecord{}, errno.ErrNotFound
}

// rawStatus 返回记录的原始状态码
func (s *MemoryStore) rawStatus(source ledger.Source, id uint64) (int, bool) {
	switch source {
	case ledger.SourceRecharge:
		d, ok := s.st.deposits[id]
		return d.Status, ok
	case ledger.SourceWithdrawal:
		w, ok := s.st.withdrawals[id]
		return w.Status, ok
	case ledger.SourceBankWithdrawal:
		b, ok := s.st.banks[id]
		return b.Status, ok
	}
	return 0, false
}

func (s *MemoryStore) ListRecords(ctx context.Context, source ledger.Source, filter RecordFilter) ([]ledger.LedgerRecord, int64, error) {
	defer s.lock()()
	var ids []uint64
	switch source {
	case ledger.SourceRecharge:
		ids = sortedKeys(s.st.deposits)
	case ledger.SourceWithdrawal:
		ids = sortedKeys(s.st.withdrawals)
	case ledger.SourceBankWithdrawal:
		ids = sortedKeys(s.st.banks)
	default:
		return nil, 0, fmt.Errorf("%w: unknown record source %q", errno.ErrNotFound, source)
	}
	slices.Reverse(ids)

	var matched []ledger.LedgerRecord
	for _, id := range ids {
		rec, err := s.getRecord(source, id)
		if err != nil {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.UserID != 0 && rec.UserID != filter.UserID {
			continue
		}
		matched = append(matched, rec)
	}
	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) CompareAndSwapStatus(ctx context.Context, source ledger.Source, id uint64, from ledger.Status, patch StatusPatch) (ledger.LedgerRecord, error) {
	defer s.lock()()
	kind := source.Kind()
	fromCode, err := ledger.EncodeStatus(kind, from)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	toCode, err := ledger.EncodeStatus(kind, patch.To)
	if err != nil {
		return ledger.LedgerRecord{}, err
	}
	current, ok := s.rawStatus(source, id)
	if !ok {
		return ledger.LedgerRecord{}, errno.ErrNotFound
	}
	if current != fromCode {
		return ledger.LedgerRecord{}, ledger.ErrNotPending
	}

	now := s.now()
	switch source {
	case ledger.SourceRecharge:
		d := s.st.deposits[id]
		d.Status, d.CompletedAt, d.RejectionReason, d.UpdatedAt = toCode, patch.CompletedAt, patch.RejectionReason, now
		s.st.deposits[id] = d
	case ledger.SourceWithdrawal:
		w := s.st.withdrawals[id]
		w.Status, w.CompletedAt, w.RejectionReason, w.UpdatedAt = toCode, patch.CompletedAt, patch.RejectionReason, now
		s.st.withdrawals[id] = w
	case ledger.SourceBankWithdrawal:
		b := s.st.banks[id]
		b.Status, b.CompletedAt, b.RejectionReason, b.UpdatedAt = toCode, patch.CompletedAt, patch.RejectionReason, now
		s.st.banks[id] = b
	}
	return s.getRecord(source, id)
}

func (s *MemoryStore) DeleteRecord(ctx context.Context, source ledger.Source, id uint64) error {
	defer s.lock()()
	code, ok := s.rawStatus(source, id)
	if !ok {
		return errno.ErrNotFound
	}
	if !slices.Contains(ledger.TerminalCodes(source.Kind()), code) {
		return ledger.ErrCannotDeletePending
	}
	switch source {
	case ledger.SourceRecharge:
		delete(s.st.deposits, id)
	case ledger.SourceWithdrawal:
		delete(s.st.withdrawals, id)
	case ledger.SourceBankWithdrawal:
		delete(s.st.banks, id)
	}
	return nil
}

// ---------- 账户 ----------

func (s *MemoryStore) findAccount(userID uint64, asset string) (model.Account, bool) {
	for _, acc := range s.st.accounts {
		if acc.UserID == userID && acc.Asset == asset {
			return acc, true
		}
	}
	return model.Account{}, false
}

// LockAccount 内存实现里全局锁已经保证了串行，这里只负责按需建账户
func (s *MemoryStore) LockAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error) {
	defer s.lock()()
	acc, ok := s.findAccount(userID, asset)
	if !ok {
		now := s.now()
		acc = model.Account{ID: s.nextID("accounts"), UserID: userID, Asset: asset, CreatedAt: now, UpdatedAt: now}
		s.st.accounts[acc.ID] = acc
	}
	return &acc, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, userID uint64, asset string) (*model.Account, error) {
	defer s.lock()()
	acc, ok := s.findAccount(userID, asset)
	if !ok {
		return nil, errno.ErrNotFound
	}
	return &acc, nil
}

func (s *MemoryStore) SaveAccount(ctx context.Context, acc *model.Account) error {
	defer s.lock()()
	current, ok := s.st.accounts[acc.ID]
	if !ok {
		return errno.ErrNotFound
	}
	if current.Version != acc.Version {
		return errno.ErrVersionConflict
	}
	current.Total, current.Available, current.Frozen = acc.Total, acc.Available, acc.Frozen
	current.Version++
	current.UpdatedAt = s.now()
	s.st.accounts[acc.ID] = current
	acc.Version = current.Version
	return nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context, afterID uint64, limit int) ([]model.Account, error) {
	defer s.lock()()
	var out []model.Account
	for _, id := range sortedKeys(s.st.accounts) {
		if id <= afterID {
			continue
		}
		out = append(out, s.st.accounts[id])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListUserAccounts(ctx context.Context, userID uint64) ([]model.Account, error) {
	defer s.lock()()
	var out []model.Account
	for _, acc := range s.st.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (s *MemoryStore) HaltAccount(ctx context.Context, id uint64, reason string) error {
	defer s.lock()()
	acc, ok := s.st.accounts[id]
	if !ok {
		return errno.ErrNotFound
	}
	acc.Halted, acc.HaltReason, acc.UpdatedAt = true, reason, s.now()
	s.st.accounts[id] = acc
	return nil
}

// PutAccount 直接写入账户 (不做任何校验)，测试里用来构造漂移的余额
func (s *MemoryStore) PutAccount(acc model.Account) model.Account {
	defer s.lock()()
	if acc.ID == 0 {
		acc.ID = s.nextID("accounts")
	}
	s.st.accounts[acc.ID] = acc
	return acc
}

// ---------- 限额 ----------

func limitKey(asset, network string) string {
	return asset + "/" + network
}

func (s *MemoryStore) GetNetworkLimit(ctx context.Context, asset, network string) (*model.NetworkLimit, error) {
	defer s.lock()()
	l, ok := s.st.limits[limitKey(asset, network)]
	if !ok || !l.Enabled {
		return nil, errno.ErrLimitsNotFound
	}
	return &l, nil
}

func (s *MemoryStore) UpsertNetworkLimit(ctx context.Context, l *model.NetworkLimit) error {
	defer s.lock()()
	key := limitKey(l.Asset, l.Network)
	now := s.now()
	if existing, ok := s.st.limits[key]; ok {
		l.ID, l.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		l.ID, l.CreatedAt = s.nextID("network_limits"), now
	}
	l.UpdatedAt = now
	s.st.limits[key] = *l
	return nil
}

// ---------- 审计 & outbox ----------

func (s *MemoryStore) CreateReview(ctx context.Context, r *model.Review) error {
	defer s.lock()()
	r.ID = s.nextID("reviews")
	r.CreatedAt = s.now()
	s.st.reviews = append(s.st.reviews, *r)
	return nil
}

func (s *MemoryStore) ListReviews(ctx context.Context, kind string, recordID uint64) ([]model.Review, error) {
	defer s.lock()()
	var out []model.Review
	for _, r := range s.st.reviews {
		if r.Kind == kind && r.RecordID == recordID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateOutboxMessage(ctx context.Context, topic, key string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	defer s.lock()()
	now := s.now()
	s.st.outbox = append(s.st.outbox, model.OutboxMessage{
		ID:        s.nextID("outbox_messages"),
		Topic:     topic,
		Key:       key,
		Payload:   b,
		Status:    model.OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (s *MemoryStore) ListPendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	defer s.lock()()
	var out []model.OutboxMessage
	for _, m := range s.st.outbox {
		if m.Status != model.OutboxPending {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkOutboxSent(ctx context.Context, id uint64) error {
	defer s.lock()()
	for i := range s.st.outbox {
		if s.st.outbox[i].ID == id {
			s.st.outbox[i].Status = model.OutboxSent
			s.st.outbox[i].UpdatedAt = s.now()
			return nil
		}
	}
	return errno.ErrNotFound
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}
