// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evzone/myaccounts/api/controller"
	"github.com/evzone/myaccounts/api/middleware"
	"github.com/evzone/myaccounts/api/model"
)

func SetupRouter(
	controllers *controller.Controllers,
	sessions middleware.SessionReader,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	api := router.Group("/api/v1")

	// Sign-in and OTP endpoints are reachable without a session but are
	// rate limited per client IP.
	public := api.Group("")
	public.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	controllers.Auth.RegisterPublicRoutes(public)

	// Everything below requires a live session token.
	authed := api.Group("")
	authed.Use(middleware.SessionAuthMiddleware(sessions))
	controllers.Auth.RegisterProtectedRoutes(authed)
	controllers.KYC.RegisterSelfRoutes(authed)

	// Back-office surface. Operators and admins only.
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleOperator, model.RoleAdmin))
	controllers.Action.RegisterRoutes(admin)
	controllers.User.RegisterRoutes(admin)
	controllers.App.RegisterRoutes(admin)
	controllers.Org.RegisterRoutes(admin)
	controllers.Wallet.RegisterRoutes(admin)
	controllers.KYC.RegisterAdminRoutes(admin)
	controllers.Audit.RegisterRoutes(admin)

	return router
}
