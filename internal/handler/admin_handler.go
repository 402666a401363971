package handler

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/ledger"
	"ledger-core/internal/repository"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
)

// AdminHandler 管理后台，路由上必须挂 AdminAuth
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// List 审核列表
// @Router /api/v1/admin/{kind} [get]
func (h *AdminHandler) List(c *gin.Context) {
	source, err := ledger.ParseSource(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var q request.ListRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	filter := repository.RecordFilter{UserID: q.UserID, Limit: q.PageSize}
	if q.Status != "" {
		status := ledger.Status(q.Status)
		// confirming 只对充值有意义，其他类型直接按参数错误返回
		if _, err := ledger.EncodeStatus(source.Kind(), status); err != nil {
			response.Error(c, errno.ErrBind.WithMessage("status "+q.Status+" is not valid for "+string(source)))
			return
		}
		filter.Status = &status
	}
	if q.Page > 1 {
		if filter.Limit <= 0 {
			filter.Limit = 20
		}
		filter.Offset = (q.Page - 1) * filter.Limit
	}

	records, total, err := h.admin.List(c.Request.Context(), source, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.Page{Items: records, Total: total})
}

// Review 审核: 通过或驳回
// @Router /api/v1/admin/{kind}/{id}/review [post]
func (h *AdminHandler) Review(c *gin.Context) {
	source, err := ledger.ParseSource(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req request.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	rec, err := h.admin.Review(c.Request.Context(), c.GetUint64(ctxAdminID), source, id, req.Action, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// Reviews 某条记录的审核历史
// @Router /api/v1/admin/{kind}/{id}/reviews [get]
func (h *AdminHandler) Reviews(c *gin.Context) {
	source, err := ledger.ParseSource(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reviews, err := h.admin.Reviews(c.Request.Context(), source, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reviews)
}

// Delete 删除已处于终态的记录
// @Router /api/v1/admin/{kind}/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	source, err := ledger.ParseSource(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.admin.Delete(c.Request.Context(), c.GetUint64(ctxAdminID), source, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
