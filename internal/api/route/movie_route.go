package route

import (
	"github.com/bassista/go_reel/internal/api/controller"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/storage"
	"github.com/gin-gonic/gin"
)

// NewMovieRouter registers the movie collection endpoints on group.
func NewMovieRouter(group *gin.RouterGroup, store storage.Storage) {
	mc := controller.NewMovieController(store, repository.NewValidator())

	group.GET("movies", mc.List)
	group.POST("movies", mc.Create)
	group.GET("movies/:id", mc.Get)
	group.PUT("movies/:id", mc.Update)
	group.DELETE("movies/:id", mc.Delete)
	group.GET("genres", mc.Genres)
}
