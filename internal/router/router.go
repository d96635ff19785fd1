package router

import (
	"bytes"
	"io"
	"net/http"

	"github.com/blues/crowdfund/internal/config"
	"github.com/blues/crowdfund/internal/handler"
	"github.com/blues/crowdfund/internal/identity"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes 参与签名的请求体上限
const maxBodyBytes = 1 << 20

func Setup(campaignLogic *logic.CampaignLogic, accountLogic *logic.AccountLogic, verifier identity.Verifier, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "crowdfund-service",
		})
	})

	campaignHandler := handler.NewCampaignHandler(campaignLogic)
	accountHandler := handler.NewAccountHandler(accountLogic)
	auth := identityMiddleware(verifier)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 活动相关路由
		campaigns := v1.Group("/campaigns")
		{
			campaigns.GET("", campaignHandler.GetCampaigns)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.GET("/:id/contributions", campaignHandler.GetContributions)
			campaigns.GET("/:id/events", campaignHandler.GetEvents)
			campaigns.GET("/:id/stats", campaignHandler.GetStats)

			campaigns.POST("", auth, campaignHandler.InitCampaign)
			campaigns.POST("/:id/tiers", auth, campaignHandler.AddTier)
			campaigns.POST("/:id/publish", auth, campaignHandler.Publish)
			campaigns.POST("/:id/contributions", auth, campaignHandler.Contribute)
			campaigns.POST("/:id/finalize", auth, campaignHandler.Finalize)
			campaigns.POST("/:id/refund", auth, campaignHandler.Refund)
			campaigns.POST("/:id/reimburse", auth, campaignHandler.Reimburse)
		}

		// 账户相关路由
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:address", accountHandler.GetAccount)
			if cfg.Rail.AllowDeposit {
				accounts.POST("/:address/deposit", auth, accountHandler.Deposit)
			}
		}
	}

	return r
}

// identityMiddleware 校验调用方身份，读取后还原请求体供后续绑定
func identityMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			handler.ErrorResponse(c, http.StatusBadRequest, "读取请求体失败")
			c.Abort()
			return
		}
		if len(body) > maxBodyBytes {
			handler.ErrorResponse(c, http.StatusRequestEntityTooLarge, "请求体过大")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		caller, err := verifier.Verify(c.Request.Context(), identity.Request{
			Method: c.Request.Method,
			Path:   c.Request.URL.RequestURI(),
			Header: c.Request.Header,
			Body:   body,
		})
		if err != nil {
			logger.Warn("rejected %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			handler.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set(handler.CallerKey, caller)
		c.Next()
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Caller, X-Timestamp, X-Signature")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
