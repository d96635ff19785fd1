package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/identity"
	"github.com/blues/crowdfund/internal/lock"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/blues/crowdfund/internal/rail"
	"github.com/blues/crowdfund/internal/repository"
	"github.com/gin-gonic/gin"
)

// CallerKey 身份中间件写入 gin.Context 的调用方键
const CallerKey = "caller"

const maxPageSize = 100

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 按错误类型映射 HTTP 状态码
func HandleError(c *gin.Context, err error) {
	ErrorResponse(c, StatusFor(err), err.Error())
}

// StatusFor 错误对应的 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, campaign.ErrUnauthorized), errors.Is(err, logic.ErrDepositDisabled):
		return http.StatusForbidden
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, campaign.ErrTierNotFound), errors.Is(err, rail.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, campaign.ErrAlreadyExists), errors.Is(err, repository.ErrConflict), errors.Is(err, lock.ErrLockTimeout):
		return http.StatusConflict
	case errors.Is(err, campaign.ErrInvalidArgument), errors.Is(err, rail.ErrInvalidAmount):
		return http.StatusBadRequest
	case logic.IsDomainError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Caller 身份中间件校验后的调用方
func Caller(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// campaignID 解析路径中的活动ID，限制在 63 位以内
func campaignID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return 0, false
	}
	return id, true
}

// pageParams 解析分页参数，返回 page、pageSize 与 offset
func pageParams(c *gin.Context) (int, int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}
