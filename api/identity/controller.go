package identity

import (
	"net/http"

	"fitquest/api/ctxutil"
	"fitquest/api/response"
	identityapp "fitquest/application/identity"

	"github.com/gin-gonic/gin"
)

// Controller 用户与授权，所有路由都要求认证
type Controller struct {
	service *identityapp.ApplicationService
}

func NewController(service *identityapp.ApplicationService) *Controller {
	return &Controller{service: service}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/users")
	{
		g.POST("/register", c.Register)
		g.GET("/me", c.Me)
		g.POST("/me/permissions", c.GrantPermission)
		g.POST("/me/devices", c.RegisterDevice)
	}
}

// Register 用户 ID 取令牌的 subject；请求体未给 email 时使用令牌中的 email
func (c *Controller) Register(ctx *gin.Context) {
	id := ctxutil.Identity(ctx)
	var req identityapp.RegisterRequest
	if id != nil && id.Email != "" {
		req.Email = id.Email
	}
	if id != nil && id.Name != "" {
		req.DisplayName = id.Name
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = ctxutil.UserID(ctx)

	user, err := c.service.Register(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, user, "User registered successfully")
}

func (c *Controller) Me(ctx *gin.Context) {
	user, err := c.service.GetUser(ctx.Request.Context(), ctxutil.UserID(ctx))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, user, "User retrieved successfully")
}

func (c *Controller) GrantPermission(ctx *gin.Context) {
	var req identityapp.GrantPermissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = ctxutil.UserID(ctx)

	user, err := c.service.GrantHealthPermission(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, user, "Permission granted")
}

func (c *Controller) RegisterDevice(ctx *gin.Context) {
	var req identityapp.RegisterDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	req.UserID = ctxutil.UserID(ctx)

	user, err := c.service.RegisterDevice(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, user, "Device registered")
}
