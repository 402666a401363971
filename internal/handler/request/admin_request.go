package request

// ReviewRequest 审核: approve 时 remark 可选，reject 时 remark 即驳回原因
type ReviewRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Remark string `json:"remark" binding:"max=255"`
}

// ListRequest 后台列表查询参数
type ListRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending confirming processing completed rejected cancelled failed"`
	UserID   uint64 `form:"user_id"`
	Page     int    `form:"page" binding:"omitempty,gte=1"`
	PageSize int    `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}
