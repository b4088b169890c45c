package gamification

import (
	"net/http"
	"time"

	"fitquest/api/ctxutil"
	"fitquest/api/response"
	gamificationapp "fitquest/application/gamification"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service *gamificationapp.ApplicationService
}

func NewController(service *gamificationapp.ApplicationService) *Controller {
	return &Controller{service: service}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/points")
	{
		g.POST("", c.EarnPoints)
		g.GET("/me", c.Profile)
		g.POST("/me/streak/check", c.CheckStreak)
	}
}

func (c *Controller) EarnPoints(ctx *gin.Context) {
	var req gamificationapp.EarnPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = ctxutil.UserID(ctx)

	profile, err := c.service.EarnPoints(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, profile, "Points recorded")
}

func (c *Controller) Profile(ctx *gin.Context) {
	profile, err := c.service.GetProfile(ctx.Request.Context(), ctxutil.UserID(ctx))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, profile, "Profile retrieved successfully")
}

// CheckStreak 客户端每日首次打开时调用
func (c *Controller) CheckStreak(ctx *gin.Context) {
	userID := ctxutil.UserID(ctx)
	broken, err := c.service.BreakStreak(ctx.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, gin.H{"streak_broken": broken}, "Streak checked")
}
