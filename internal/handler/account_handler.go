package handler

import (
	"net/http"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/gin-gonic/gin"
)

// AccountHandler 账户处理器
type AccountHandler struct {
	accountLogic *logic.AccountLogic
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accountLogic *logic.AccountLogic) *AccountHandler {
	return &AccountHandler{accountLogic: accountLogic}
}

// GetAccount 获取账户余额与流水
func (h *AccountHandler) GetAccount(c *gin.Context) {
	page, pageSize, offset := pageParams(c)

	view, err := h.accountLogic.GetAccount(c.Request.Context(), c.Param("address"), offset, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "获取账户成功", AccountResponse{
		Address:    view.Address,
		Balance:    view.Balance,
		Records:    view.Records,
		Pagination: newPagination(page, pageSize, view.Total),
	})
}

// Deposit 账户充值
func (h *AccountHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	address := campaign.NormalizeIdentity(c.Param("address"))
	balance, err := h.accountLogic.Deposit(c.Request.Context(), address, req.Amount)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "充值成功", DepositResponse{Address: address, Balance: balance})
}
