package controller

import (
	"context"
	"net/http"

	"github.com/bassista/go_reel/internal/catalog"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// MovieCrudService implements CrudService for movies on top of a storage.Storage.
type MovieCrudService struct {
	Store storage.Storage
}

func (s *MovieCrudService) All(ctx context.Context) ([]repository.Movie, error) {
	return s.Store.GetAllMovies(ctx)
}

func (s *MovieCrudService) Get(ctx context.Context, id string) (repository.Movie, error) {
	return s.Store.GetMovie(ctx, id)
}

func (s *MovieCrudService) Create(ctx context.Context, in repository.MovieInput) (repository.Movie, error) {
	return s.Store.CreateMovie(ctx, in)
}

func (s *MovieCrudService) Update(ctx context.Context, id string, patch repository.MoviePatch) (repository.Movie, error) {
	return s.Store.UpdateMovie(ctx, id, patch)
}

func (s *MovieCrudService) Delete(ctx context.Context, id string) (bool, error) {
	return s.Store.DeleteMovie(ctx, id)
}

// MovieController serves the movie collection.
type MovieController struct {
	CrudController[repository.Movie, repository.MovieInput, repository.MoviePatch]
}

func NewMovieController(store storage.Storage, v *validator.Validate) *MovieController {
	if v == nil {
		v = repository.NewValidator()
	}
	return &MovieController{
		CrudController: CrudController[repository.Movie, repository.MovieInput, repository.MoviePatch]{
			Service:   &MovieCrudService{Store: store},
			Validator: v,
			Resource:  "movie",
		},
	}
}

// List handles GET /api/movies with optional genre, watched, sort and q query parameters.
func (mc *MovieController) List(c *gin.Context) {
	var q catalog.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
		return
	}
	if err := mc.Validator.Struct(q); err != nil {
		respondValidation(c, "invalid query", err)
		return
	}

	movies, err := mc.Service.All(c.Request.Context())
	if err != nil {
		mc.respondError(c, err, "list")
		return
	}
	c.JSON(http.StatusOK, q.Apply(movies))
}

// Genres handles GET /api/genres: the distinct genres of the collection.
func (mc *MovieController) Genres(c *gin.Context) {
	movies, err := mc.Service.All(c.Request.Context())
	if err != nil {
		mc.respondError(c, err, "list")
		return
	}
	c.JSON(http.StatusOK, catalog.Genres(movies))
}
