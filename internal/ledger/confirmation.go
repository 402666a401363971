package ledger

// Progress 充值确认进度 [0,100]
// required <= 0 视为无需确认，直接 100
func Progress(confirmations, required int) int {
	if required <= 0 {
		return 100
	}
	if confirmations <= 0 {
		return 0
	}
	if confirmations >= required {
		return 100
	}
	// 整数除法即向下取整
	return 100 * confirmations / required
}

// IsConfirming 是否仍在等待区块确认
// 确认数达到要求后即可转为 completed，迁移本身由外部驱动
func IsConfirming(status Status, confirmations, required int) bool {
	return status == StatusConfirming && required > 0 && confirmations < required
}
