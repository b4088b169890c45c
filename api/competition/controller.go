package competition

import (
	"net/http"

	"fitquest/api/ctxutil"
	"fitquest/api/response"
	competitionapp "fitquest/application/competition"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service *competitionapp.ApplicationService
}

func NewController(service *competitionapp.ApplicationService) *Controller {
	return &Controller{service: service}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/league")
	{
		g.POST("/join", c.JoinRoom)
		g.GET("/me", c.Membership)
		g.GET("/rooms/:room_id/standings", c.Standings)
	}
}

func (c *Controller) JoinRoom(ctx *gin.Context) {
	var req competitionapp.JoinRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = ctxutil.UserID(ctx)

	membership, err := c.service.JoinRoom(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, membership, "Joined room")
}

// Membership ?week=2025-W11，缺省为当前周
func (c *Controller) Membership(ctx *gin.Context) {
	membership, err := c.service.GetMembership(ctx.Request.Context(), ctxutil.UserID(ctx), ctx.Query("week"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, membership, "Membership retrieved successfully")
}

func (c *Controller) Standings(ctx *gin.Context) {
	standings, err := c.service.Standings(ctx.Request.Context(), ctx.Param("room_id"), ctx.Query("week"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, standings, "Standings retrieved successfully")
}
