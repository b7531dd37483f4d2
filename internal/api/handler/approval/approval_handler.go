package approval

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/fisker/salesflow/internal/api/middleware"
	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/model"
)

func init() {
	// 单据ID可能是数字或字符串，数字保留为 json.Number 交给 CoerceID
	binding.EnableDecoderUseNumber = true
}

// ApprovalHandler 单据审批接口，五种单据共用
type ApprovalHandler struct {
	coord        *approval.Coordinator
	pendingLimit int
}

// NewApprovalHandler 创建审批处理器
func NewApprovalHandler(coord *approval.Coordinator, pendingLimit int) *ApprovalHandler {
	if pendingLimit <= 0 {
		pendingLimit = 50
	}
	return &ApprovalHandler{coord: coord, pendingLimit: pendingLimit}
}

// Approve POST /api/<slug>/approve
// 请求体 {"<DocumentID>": 1}，审批人为当前认证用户
func (h *ApprovalHandler) Approve(kind approval.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 请求体无法解析时按空请求处理，由校验返回缺失字段
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		raw := body[kind.IDField]
		req := approval.Request{
			DocumentID: approval.CoerceID(raw),
			ApproverID: middleware.CurrentUserID(c),
		}

		result, err := h.coord.Approve(c.Request.Context(), kind, req)
		resp := gin.H{
			"data":            nil,
			kind.IDField:      echoID(req.DocumentID, raw),
			kind.NewIDField(): nil,
			"isFullyApproved": false,
		}
		if err != nil {
			resp["success"] = false
			resp["message"] = approval.MessageOf(err)
			c.JSON(statusFor(err), resp)
			return
		}

		resp["success"] = true
		resp["message"] = result.Message
		resp["isFullyApproved"] = result.FullyApproved()
		if result.FullyApproved() {
			c.JSON(http.StatusOK, resp)
			return
		}
		c.JSON(http.StatusAccepted, resp)
	}
}

// ApprovalStatus GET /api/<slug>/:id/approval-status
func (h *ApprovalHandler) ApprovalStatus(kind approval.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := approval.CoerceID(c.Param("id"))
		status, err := h.coord.Status(c.Request.Context(), kind, id, middleware.CurrentUserID(c))
		if err != nil {
			model.HandleError(c, statusFor(err), err, approval.MessageOf(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"message":             "success",
			kind.IDField:          strconv.FormatInt(id, 10),
			"status":              status.Status,
			"requiredApprovers":   status.RequiredApprovers,
			"completedApprovals":  status.CompletedApprovals,
			"approvalStatus":      status.Approvals,
			"mismatchedApprovals": status.Mismatched,
		})
	}
}

// History GET /api/<slug>/:id/approvals
func (h *ApprovalHandler) History(kind approval.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := approval.CoerceID(c.Param("id"))
		records, err := h.coord.History(c.Request.Context(), kind, id, middleware.CurrentUserID(c))
		if err != nil {
			model.HandleError(c, statusFor(err), err, approval.MessageOf(err))
			return
		}
		if records == nil {
			records = []model.ApprovalRecord{}
		}
		c.JSON(http.StatusOK, model.Success(records))
	}
}

// Pending GET /api/approvals/pending?limit=20
func (h *ApprovalHandler) Pending(c *gin.Context) {
	limit := h.pendingLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v < limit {
		limit = v
	}

	docs, err := h.coord.Pending(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		model.HandleError(c, statusFor(err), err, approval.MessageOf(err))
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{
		"documents": docs,
		"total":     len(docs),
	}))
}

// statusFor 审批错误分类 -> HTTP 状态码
func statusFor(err error) int {
	switch approval.KindOf(err) {
	case approval.KindValidation, approval.KindPermission, approval.KindPrecondition:
		return http.StatusForbidden
	case approval.KindConfiguration:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// echoID 响应中回显的单据ID（字符串）
func echoID(id int64, raw interface{}) string {
	switch {
	case id > 0:
		return strconv.FormatInt(id, 10)
	case raw == nil:
		return ""
	default:
		return fmt.Sprintf("%v", raw)
	}
}
