package router

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/handlers"
	"github.com/3Eeeecho/supfile/internal/middlewares"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 路由需要的全部 Handler
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Folder *handlers.FolderHandler
	File   *handlers.FileHandler
	Query  *handlers.QueryHandler
	Share  *handlers.ShareHandler
}

func InitRouter(h Handlers, jwtSecret, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	{
		// 认证相关路由 (无需认证)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
		}

		// 公开分享 (无需认证)
		publicGroup := api.Group("/public/share")
		{
			publicGroup.GET("/:token", h.Share.Access)
			publicGroup.GET("/:token/download", h.Share.Download)
		}

		// 需要认证的路由组
		authenticated := api.Group("")
		authenticated.Use(middlewares.AuthMiddleware(jwtSecret))

		authenticated.GET("/users/me", h.User.GetProfile)

		folderGroup := authenticated.Group("/folders")
		{
			folderGroup.POST("", h.Folder.Create)
			folderGroup.GET("", h.Folder.List)
			folderGroup.GET("/:id", h.Folder.Get)
			folderGroup.PATCH("/:id/rename", h.Folder.Rename)
			folderGroup.PATCH("/:id/move", h.Folder.Move)
			folderGroup.DELETE("/:id", h.Folder.Delete)
			folderGroup.PATCH("/:id/restore", h.Folder.Restore)
			folderGroup.GET("/:id/download", h.Folder.Download)
			folderGroup.POST("/:id/favorite", h.Folder.ToggleFavorite)
		}

		fileGroup := authenticated.Group("/files")
		{
			fileGroup.POST("/upload", h.File.Upload)
			fileGroup.GET("", h.File.List)
			fileGroup.DELETE("/trash/empty", h.File.EmptyTrash)
			fileGroup.GET("/:id/download", h.File.Download)
			fileGroup.GET("/:id/preview", h.File.Preview)
			fileGroup.GET("/:id/preview-info", h.File.PreviewInfo)
			fileGroup.PATCH("/:id/rename", h.File.Rename)
			fileGroup.PATCH("/:id/move", h.File.Move)
			fileGroup.DELETE("/:id", h.File.Delete)
			fileGroup.PATCH("/:id/restore", h.File.Restore)
			fileGroup.DELETE("/:id/permanent", h.File.PermanentDelete)
			fileGroup.POST("/:id/favorite", h.File.ToggleFavorite)
		}

		shareGroup := authenticated.Group("/shares")
		{
			shareGroup.POST("/file/:id", h.Share.CreateFileShare)
			shareGroup.GET("/file/:id", h.Share.ListFileShares)
			shareGroup.POST("/folder/:id", h.Share.CreateFolderShare)
			shareGroup.GET("/folder/:id", h.Share.ListFolderShares)
			shareGroup.DELETE("/:id", h.Share.Delete)
		}

		authenticated.GET("/trash", h.Query.Trash)
		authenticated.GET("/favorites", h.Query.Favorites)
		authenticated.GET("/recent", h.Query.Recents)
		authenticated.GET("/search", h.Query.Search)
		authenticated.POST("/search/advanced", h.Query.AdvancedSearch)
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "Route not found")
	})

	return router
}
