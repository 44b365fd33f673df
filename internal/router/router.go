package router

import (
	"os"
	"regexp"

	"emuhub/internal/handlers"
	"emuhub/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Runtime versions look like "1.4", "1.4.2" or "1.4.2-beta3". Date-stamped
// nightlies ("nightly-20250812") pass too.
var gamehubVersionRe = regexp.MustCompile(`^[0-9A-Za-z]+(?:[._-][0-9A-Za-z]+)*$`)

func validGamehubVersion(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return len(v) <= 20 && gamehubVersionRe.MatchString(v)
}

// Setup builds the engine with sessions, CORS, compression and the custom
// binding rules. Tests drive the same engine the server runs.
func Setup() *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("gamehub_version", validGamehubVersion)
	}

	r := gin.Default()

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("emuhub_session", store))

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = []string{origins}
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.LoadUser())

	Register(r)
	return r
}

// Register attaches every route to the engine.
func Register(r *gin.Engine) {
	authHandler := handlers.NewAuthHandler()
	configHandler := handlers.NewConfigHandler()
	voteHandler := handlers.NewVoteHandler()
	commentHandler := handlers.NewCommentHandler()
	gameHandler := handlers.NewGameHandler()
	userHandler := handlers.NewUserHandler()
	notificationHandler := handlers.NewNotificationHandler()
	adminHandler := handlers.NewAdminHandler()
	seoHandler := handlers.NewSEOHandler()
	imageHandler := handlers.NewImageHandler()

	// Public routes
	r.GET("/configs", configHandler.List)
	r.GET("/configs/:id", configHandler.Detail)
	r.GET("/configs/:id/versions", configHandler.ListVersions)
	r.GET("/configs/:id/versions/:versionId", configHandler.GetVersion)
	r.GET("/configs/:id/comments", commentHandler.List)
	r.GET("/c/:pid", configHandler.DetailByPid)

	r.GET("/games", gameHandler.List)
	r.GET("/games/:slug", gameHandler.Detail)
	r.GET("/users/:id", userHandler.Profile)

	r.GET("/auth/captcha", authHandler.Captcha)
	r.POST("/auth/signup", authHandler.Signup)
	r.POST("/auth/activate", authHandler.Activate)
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/logout", authHandler.Logout)
	r.POST("/auth/forgot", authHandler.ForgotPassword)
	r.POST("/auth/reset", authHandler.ResetPassword)

	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)
	r.GET("/img/:id", imageHandler.Proxy)

	// Session-holder routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/configs", configHandler.Create)
		authorized.PATCH("/configs/:id", configHandler.Update)
		authorized.DELETE("/configs/:id", configHandler.Delete)
		authorized.POST("/configs/:id/versions/:versionId/revert", configHandler.Revert)
		authorized.POST("/configs/:id/vote", voteHandler.VoteConfig)
		authorized.GET("/configs/:id/vote/user", voteHandler.MyConfigVote)
		authorized.POST("/configs/:id/favorite", configHandler.ToggleFavorite)
		authorized.POST("/configs/:id/comments", commentHandler.Create)

		authorized.POST("/comments/:id/vote", voteHandler.VoteComment)
		authorized.DELETE("/comments/:cid", commentHandler.Delete)

		authorized.POST("/games", gameHandler.Create)
		authorized.POST("/report", voteHandler.Report)
		authorized.POST("/upload", imageHandler.Upload)

		authorized.GET("/me", authHandler.Me)
		authorized.PATCH("/me/settings", userHandler.UpdateSettings)
		authorized.GET("/me/favorites", userHandler.Favorites)
		authorized.GET("/me/reputation", userHandler.ReputationLog)
		authorized.POST("/me/checkin", userHandler.CheckIn)
		authorized.GET("/me/emojis", userHandler.Emojis)

		authorized.GET("/me/notifications", notificationHandler.List)
		authorized.POST("/me/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/me/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/me/notifications/:id", notificationHandler.Delete)
	}

	// Moderation routes
	staff := r.Group("/")
	staff.Use(middleware.StaffRequired())
	{
		staff.POST("/configs/:id/restore", configHandler.Restore)
		staff.POST("/configs/:id/legacy", configHandler.ToggleLegacy)
		staff.GET("/admin/reports", adminHandler.ListReports)
		staff.DELETE("/admin/reports/:id", adminHandler.ResolveReport)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/users/:id/punish", adminHandler.PunishUser)
	}
}
