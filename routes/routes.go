package routes

import (
	"net/http"
	"time"

	"Scorekeep/controllers"
	"Scorekeep/middleware"
	"Scorekeep/services/metrics"
	utils "Scorekeep/utils"

	_ "Scorekeep/docs"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Users        controllers.UserLookup
	Orchestrator controllers.GameOrchestrator
	Invitations  controllers.PendingInvitations
	ActiveGames  controllers.ActiveGames
	Completed    controllers.CompletedGames
	Metrics      *prometheus.Registry

	JWTSecret     string
	TokenTTL      time.Duration
	PollInterval  time.Duration
	InvitationTTL time.Duration
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// utils global
	router.Use(utils.ErrorHandler())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Metrics)))
	}

	router.GET("/ping", controllers.Ping)
	router.HEAD("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.POST("/login", controllers.Login(deps.Users, controllers.TokenSettings{
		Secret: deps.JWTSecret,
		TTL:    deps.TokenTTL,
	}))

	requireAuth := middleware.AuthRequired(deps.JWTSecret)

	authentication := router.Group("/auth")
	authentication.Use(requireAuth)
	{
		authentication.DELETE("/logout", controllers.Logout)

		authentication.GET("/me", controllers.Me(deps.Users))
	}

	api := router.Group("/api")
	api.GET("/realtime-config", controllers.GetRealtimeConfig(deps.PollInterval, deps.InvitationTTL))

	authenticated := api.Group("/")
	authenticated.Use(requireAuth)
	{
		invitations := authenticated.Group("/game-invitations")
		{
			invitations.POST("", controllers.CreateGameInvitations(deps.Orchestrator))
			invitations.GET("/:gameId", controllers.GetSessionInvitations(deps.Orchestrator))
			invitations.POST("/:invitationId/respond", controllers.RespondToInvitation(deps.Orchestrator))
		}

		authenticated.GET("/my-invitations", controllers.GetMyInvitations(deps.Invitations))

		sessions := authenticated.Group("/game-sessions/:gameId")
		{
			sessions.GET("", controllers.GetGameSession(deps.Orchestrator))
			sessions.POST("/start", controllers.StartGameSession(deps.Orchestrator))
			sessions.POST("/cancel", controllers.CancelGameSession(deps.Orchestrator))
		}

		active := authenticated.Group("/active-game")
		{
			active.GET("", controllers.GetActiveGame(deps.ActiveGames))
			active.POST("", controllers.SaveActiveGame(deps.ActiveGames))
			active.DELETE("", controllers.DeleteActiveGame(deps.ActiveGames))
			active.POST("/rounds", controllers.RecordRound(deps.ActiveGames))
		}

		games := authenticated.Group("/games/:gameType")
		{
			games.GET("/active-game", controllers.GetActiveGame(deps.ActiveGames))
			games.POST("/active-game", controllers.SaveActiveGame(deps.ActiveGames))
			games.DELETE("/active-game", controllers.DeleteActiveGame(deps.ActiveGames))
			games.GET("/completed-games", controllers.ListCompletedGames(deps.Completed))
			games.POST("/completed-games", controllers.FinishGame(deps.Completed))
		}
	}
}
