package errno

import "errors"

// Errno defines the error code logic
// Errno 是可比较的值类型，包装 (%w) 之后仍然可以用 errors.Is 判断
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Is 按 Code 比较，WithMessage 得到的错误依然匹配原始错误
func (e Errno) Is(target error) bool {
	t, ok := target.(Errno)
	return ok && t.Code == e.Code
}

// WithMessage 返回一个替换了提示信息的新 Errno (Code 不变)
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Decode tries to convert an error to Errno
// 会沿着包装链 (fmt.Errorf("%w")) 查找第一个 Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrNotFound         = Errno{Code: 10005, Message: "Record not found"}
	ErrForbidden        = Errno{Code: 10006, Message: "Forbidden"}
)

// Input Errors (301xx) 直接返回给提交请求的用户，不重试
var (
	ErrMissingAddress      = Errno{Code: 30101, Message: "Withdrawal address is required"}
	ErrInvalidAmount       = Errno{Code: 30102, Message: "Amount must be greater than zero"}
	ErrBelowMinimum        = Errno{Code: 30103, Message: "Amount is below the minimum withdrawal"}
	ErrAboveMaximum        = Errno{Code: 30104, Message: "Amount is above the maximum withdrawal"}
	ErrInsufficientBalance = Errno{Code: 30105, Message: "Insufficient available balance"}
	ErrInvalidAddress      = Errno{Code: 30106, Message: "Address format is invalid for the network"}
)

// State Errors (302xx) 返回给管理员，说明存在竞争或操作失误，重新获取状态后才能重试
var (
	ErrNotPending          = Errno{Code: 30201, Message: "Record is not pending"}
	ErrCannotDeletePending = Errno{Code: 30202, Message: "Cannot delete a record that is still in flight"}
	ErrReasonRequired      = Errno{Code: 30203, Message: "Rejection reason is required"}
	ErrNotRejectable       = Errno{Code: 30204, Message: "Recharge records cannot be rejected"}
	ErrNotCancellable      = Errno{Code: 30205, Message: "Recharge records cannot be cancelled"}
	ErrIdempotencyConflict = Errno{Code: 30206, Message: "Idempotency key reused with a different payload"}
	ErrDepositExists       = Errno{Code: 30207, Message: "This transaction has already been reported"}
)

// Invariant Errors (303xx) 账本漂移信号，绝不能被吞掉
var (
	ErrInvariantViolation = Errno{Code: 30301, Message: "Balance invariant violated"}
	ErrAccountHalted      = Errno{Code: 30302, Message: "Account is halted for reconciliation"}
	ErrVersionConflict    = Errno{Code: 30303, Message: "Account was modified concurrently"}
)

// Data Errors (304xx)
var (
	ErrMalformedRecord    = Errno{Code: 30401, Message: "Malformed ledger record"}
	ErrLimitsNotFound     = Errno{Code: 30402, Message: "Withdrawal limits are not configured for this network"}
	ErrUnsupportedNetwork = Errno{Code: 30403, Message: "Unsupported network"}
	// 索引器推送与已记录的充值不一致，需要人工介入，消费端不能丢弃
	ErrConfirmationConflict = Errno{Code: 30404, Message: "Confirmation conflicts with the recorded deposit"}
)
