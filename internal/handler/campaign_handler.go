package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/blues/crowdfund/internal/repository"
	"github.com/gin-gonic/gin"
)

// CampaignHandler 活动处理器
type CampaignHandler struct {
	campaignLogic *logic.CampaignLogic
}

// NewCampaignHandler 创建活动处理器
func NewCampaignHandler(campaignLogic *logic.CampaignLogic) *CampaignHandler {
	return &CampaignHandler{campaignLogic: campaignLogic}
}

// InitCampaign 创建活动
func (h *CampaignHandler) InitCampaign(c *gin.Context) {
	var req InitCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.campaignLogic.InitCampaign(c.Request.Context(), Caller(c), req.Input())
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "活动创建成功", CampaignResponse{Campaign: view})
}

// AddTier 添加档位
func (h *CampaignHandler) AddTier(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	var req AddTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.campaignLogic.AddTier(c.Request.Context(), Caller(c), id, req.TierID, req.Amount)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "档位添加成功", CampaignResponse{Campaign: view})
}

// Publish 发布活动
func (h *CampaignHandler) Publish(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	view, err := h.campaignLogic.Publish(c.Request.Context(), Caller(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "活动已发布", CampaignResponse{Campaign: view})
}

// Contribute 认筹
func (h *CampaignHandler) Contribute(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.campaignLogic.Contribute(c.Request.Context(), Caller(c), id, req.TierID, req.Amount)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "认筹成功", res)
}

// Finalize 结算活动
func (h *CampaignHandler) Finalize(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	res, err := h.campaignLogic.Finalize(c.Request.Context(), Caller(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	message := "活动结算成功"
	if res.Outcome == campaign.OutcomeFailed {
		message = "活动未达软顶，已标记为失败"
	}
	SuccessResponse(c, http.StatusOK, message, res)
}

// Refund 批量退款
func (h *CampaignHandler) Refund(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	res, err := h.campaignLogic.Refund(c.Request.Context(), Caller(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "退款完成", res)
}

// Reimburse 自助退款
func (h *CampaignHandler) Reimburse(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	res, err := h.campaignLogic.Reimburse(c.Request.Context(), Caller(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "退款成功", res)
}

// GetCampaigns 获取活动列表，支持 status（逗号分隔）、owner、deadline_before 过滤
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	page, pageSize, offset := pageParams(c)
	filter := repository.ListFilter{
		Owner:  c.Query("owner"),
		Offset: offset,
		Limit:  pageSize,
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := campaign.ParseStatus(strings.TrimSpace(s))
			if err != nil {
				HandleError(c, err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := c.Query("deadline_before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无效的截止时间")
			return
		}
		filter.DeadlineBefore = &before
	}

	items, total, err := h.campaignLogic.ListCampaigns(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取活动列表成功", GetCampaignsResponse{
		Campaigns:  items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetCampaign 获取活动详情
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	view, err := h.campaignLogic.GetCampaign(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取活动详情成功", CampaignResponse{Campaign: view})
}

// GetContributions 获取活动认筹记录
func (h *CampaignHandler) GetContributions(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	page, pageSize, offset := pageParams(c)

	records, total, err := h.campaignLogic.ListContributions(c.Request.Context(), id, c.Query("contributor"), offset, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取认筹记录成功", GetContributionsResponse{
		Contributions: records,
		Pagination:    newPagination(page, pageSize, total),
	})
}

// GetEvents 获取活动事件
func (h *CampaignHandler) GetEvents(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	page, pageSize, offset := pageParams(c)

	events, total, err := h.campaignLogic.ListEvents(c.Request.Context(), id, offset, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取活动事件成功", GetEventsResponse{
		Events:     events,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetStats 获取活动统计信息
func (h *CampaignHandler) GetStats(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	stats, err := h.campaignLogic.GetStats(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取活动统计成功", GetStatsResponse{Stats: stats})
}
