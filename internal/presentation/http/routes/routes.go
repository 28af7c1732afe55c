// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/container"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/handlers"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// maxFilesPerUpload bounds one multipart upload request.
const maxFilesPerUpload = 10

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	secure := strings.HasPrefix(config.AuthURL, "https://")
	renderer := handlers.NewRenderer(container.Site, config.AuthURL)

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.Recovery(container.Logger, renderer.RenderPanic))
	r.Use(middleware.CORSMiddleware(config.AllowedOrigins))

	r.Static("/static", "web/static")
	if config.StorageDriver == "" || config.StorageDriver == "local" {
		r.Static("/media", config.LocalUploadDir)
	}

	r.Use(middleware.Session(container.AuthService, container.PageStateManager, secure, container.Logger))

	// Initialize handlers
	pageHandlers := handlers.NewPageHandlers(container.CatalogService, container.CheckoutService, renderer, container.Logger, container.PerfTracker)
	formHandlers := handlers.NewFormHandlers(container.FormService, renderer, config.MaxUploadBytes, container.Logger, container.PerfTracker)
	reactionHandlers := handlers.NewReactionHandlers(container.ReactionService, container.Hub, container.Logger, container.PerfTracker)
	themeHandlers := handlers.NewThemeHandlers(container.Site.Themes, secure, container.Logger)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, renderer, secure, container.Logger, container.PerfTracker)
	checkoutHandlers := handlers.NewCheckoutHandlers(container.CheckoutService, container.Logger, container.PerfTracker)
	emailHandlers := handlers.NewEmailHandlers(container.EmailService, container.Logger, container.PerfTracker)
	blobHandlers := handlers.NewBlobHandlers(container.BlobService, config.MaxUploadBytes, container.Logger, container.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(container.PageStateManager, container.Logger, container.PerfTracker)

	// Public pages
	r.GET("/", pageHandlers.Home)
	r.GET("/artists", pageHandlers.Artists)
	r.GET("/artists/:id", pageHandlers.Artist)
	r.GET("/listings", pageHandlers.Listings)
	r.GET("/listings/:id", pageHandlers.Listing)
	r.GET("/blog", pageHandlers.Blog)
	r.GET("/blog/:slug", pageHandlers.BlogPost)
	r.GET("/events", pageHandlers.Events)
	r.GET("/events/:id", pageHandlers.Event)
	r.GET("/search", pageHandlers.Search)

	// Member pages
	private := r.Group("/", middleware.RequirePageAuth())
	{
		private.GET("/dashboard", pageHandlers.Dashboard)
		private.GET("/forms/:name", formHandlers.Show)
		private.POST("/forms/:name", formHandlers.Submit)
	}

	r.GET("/ws/reactions", reactionHandlers.Feed)

	authAPI := r.Group("/api/auth")
	{
		authAPI.GET("/providers", authHandlers.GetProviders)
		authAPI.GET("/signin", authHandlers.GetSignInPage)
		authAPI.GET("/signin/:provider", authHandlers.GetSignIn)
		authAPI.POST("/signin/email", authHandlers.PostEmailSignIn)
		authAPI.GET("/callback/:provider", authHandlers.GetCallback)
		authAPI.POST("/signout", authHandlers.PostSignOut)
		authAPI.GET("/session", authHandlers.GetSession)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", systemHandlers.GetHealth)
		apiGroup.POST("/theme", themeHandlers.Select)
		apiGroup.POST("/webhooks/stripe", checkoutHandlers.PostWebhook)
		apiGroup.POST("/email/inbound", emailHandlers.PostInbound)

		// Signed-in API routes answer 401 with no body
		member := apiGroup.Group("", middleware.RequireAPIAuth())
		{
			member.POST("/reactions/:kind/:id/:reaction", reactionHandlers.React)
			member.POST("/checkout", checkoutHandlers.PostCheckout)
			member.POST("/email/send", emailHandlers.PostSend)
			member.GET("/blob/containers", blobHandlers.GetContainers)
			member.GET("/blob/containers/:container", blobHandlers.GetBlobs)
			member.POST("/blob/upload", blobHandlers.LimitUploads(maxFilesPerUpload), blobHandlers.PostUpload)

			admin := member.Group("/system", middleware.RequireRole(user.RoleAdmin))
			{
				admin.GET("/log-levels", systemHandlers.GetLogLevels)
				admin.PUT("/log-levels", systemHandlers.SetLogLevel)
				admin.GET("/performance", systemHandlers.GetPerformance)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: handlers.ErrorMessage{Message: "route not found"}})
			return
		}
		renderer.RenderError(c, "", api.ErrNotFound, "/")
	})

	return r
}
