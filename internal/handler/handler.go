package handler

import (
	"context"
	"errors"
	"strconv"

	"pointsystem/internal/infrastructure/lock"
	"pointsystem/internal/model"
	"pointsystem/internal/service"
	"pointsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestGuard 按 X-Request-ID 防止重复提交，lock.RequestLock 实现了该接口
// 重复提交时 Acquire 返回 lock.ErrDuplicateRequest
type RequestGuard interface {
	Acquire(ctx context.Context, requestID string) (string, error)
	Release(ctx context.Context, requestID, token string) error
}

// Handler 积分接口处理器
type Handler struct {
	pointService *service.PointService
	guard        RequestGuard
}

// NewHandler guard 为 nil 时不做防重校验
func NewHandler(pointService *service.PointService, guard RequestGuard) *Handler {
	return &Handler{
		pointService: pointService,
		guard:        guard,
	}
}

// PointRequest 充值/使用请求，数量是否合法由业务层判断
type PointRequest struct {
	Amount *int64 `json:"amount" binding:"required"`
}

type PointResponse struct {
	ID           int64 `json:"id"`
	Point        int64 `json:"point"`
	UpdateMillis int64 `json:"update_millis"`
}

type HistoryResponse struct {
	ID         int64                 `json:"id"`
	UserID     int64                 `json:"user_id"`
	Type       model.TransactionType `json:"type"`
	Amount     int64                 `json:"amount"`
	TimeMillis int64                 `json:"time_millis"`
}

func toPointResponse(p *model.UserPoint) PointResponse {
	return PointResponse{
		ID:           p.ID,
		Point:        p.Point,
		UpdateMillis: p.UpdateMillis(),
	}
}

// GetPoint 查询用户积分
// GET /point/:id
func (h *Handler) GetPoint(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	point, err := h.pointService.GetPoint(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, toPointResponse(point))
}

// GetHistories 查询用户积分流水，按发生顺序
// GET /point/:id/histories
func (h *Handler) GetHistories(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	histories, err := h.pointService.GetHistories(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]HistoryResponse, 0, len(histories))
	for _, history := range histories {
		list = append(list, HistoryResponse{
			ID:         history.ID,
			UserID:     history.UserID,
			Type:       history.Type,
			Amount:     history.Amount,
			TimeMillis: history.TimeMillis(),
		})
	}

	response.Success(c, list)
}

// Charge 充值积分
// PATCH /point/:id/charge
func (h *Handler) Charge(c *gin.Context) {
	h.mutate(c, h.pointService.Charge)
}

// Use 使用积分
// PATCH /point/:id/use
func (h *Handler) Use(c *gin.Context) {
	h.mutate(c, h.pointService.Use)
}

type pointOperation func(ctx context.Context, userID int64, amount int64) (*model.UserPoint, error)

// mutate 充值和使用的公共流程：
// 1. 解析参数
// 2. 客户端带了 X-Request-ID 时先占位，重复提交直接拒绝
// 3. 执行业务，失败时释放占位，允许客户端重试
func (h *Handler) mutate(c *gin.Context, op pointOperation) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	requestID := c.GetHeader(HeaderRequestID)
	guarded := false
	var token string
	if h.guard != nil && requestID != "" {
		var err error
		token, err = h.guard.Acquire(ctx, requestID)
		if errors.Is(err, lock.ErrDuplicateRequest) {
			response.Conflict(c, response.CodeDuplicateRequest, err.Error())
			return
		}
		if err != nil {
			logrus.WithError(err).WithField("request_id", requestID).Error("请求防重校验失败")
			response.ServerError(c, "服务器内部错误")
			return
		}
		guarded = true
	}

	point, err := op(ctx, userID, *req.Amount)
	if err != nil {
		if guarded {
			if releaseErr := h.guard.Release(context.WithoutCancel(ctx), requestID, token); releaseErr != nil {
				logrus.WithError(releaseErr).WithField("request_id", requestID).Warn("释放请求占位失败")
			}
		}
		writeError(c, err)
		return
	}

	response.Success(c, toPointResponse(point))
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return userID, true
}

// writeError 把业务错误映射为响应码，其他错误不向客户端暴露细节
func writeError(c *gin.Context, err error) {
	var pe *model.PointError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case model.KindOverLimit:
			response.BusinessError(c, response.CodeExceedMaxPoint, pe.Message)
		case model.KindInsufficientBalance:
			response.BusinessError(c, response.CodePointNotEnough, pe.Message)
		default:
			response.ParamError(c, pe.Message)
		}
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logrus.WithError(err).WithField("path", c.FullPath()).Warn("请求已取消")
	} else {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
	}
	response.ServerError(c, "服务器内部错误")
}
