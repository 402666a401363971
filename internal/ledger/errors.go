package ledger

import "ledger-core/pkg/errno"

// 账本核心使用的错误。它们都是 errno.Errno 值，包装后依然可以 errors.Is 匹配，
// 并且 handler 层可以直接翻译成响应码。
var (
	// 输入错误
	ErrMissingAddress      = errno.ErrMissingAddress
	ErrInvalidAmount       = errno.ErrInvalidAmount
	ErrBelowMinimum        = errno.ErrBelowMinimum
	ErrAboveMaximum        = errno.ErrAboveMaximum
	ErrInsufficientBalance = errno.ErrInsufficientBalance

	// 状态错误
	ErrNotPending          = errno.ErrNotPending
	ErrCannotDeletePending = errno.ErrCannotDeletePending
	ErrReasonRequired      = errno.ErrReasonRequired
	ErrNotRejectable       = errno.ErrNotRejectable
	ErrNotCancellable      = errno.ErrNotCancellable

	// 不变量错误
	ErrInvariantViolation = errno.ErrInvariantViolation
	ErrAccountHalted      = errno.ErrAccountHalted

	// 数据错误
	ErrMalformedRecord      = errno.ErrMalformedRecord
	ErrConfirmationConflict = errno.ErrConfirmationConflict
)
