package storage

import "github.com/bassista/go_reel/internal/repository"

func sampleMovies() []repository.MovieInput {
	rating := func(v float64) *float64 { return &v }
	return []repository.MovieInput{
		{
			Title:     "The Shawshank Redemption",
			Genre:     "Drama",
			Rating:    rating(9.3),
			Watched:   true,
			Review:    "Hope, patience and friendship behind prison walls. Still one of the best stories cinema has told.",
			PosterURL: "https://images.unsplash.com/photo-1536440136628-849c177e76a1?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&h=1200",
		},
		{
			Title:     "Inception",
			Genre:     "Sci-Fi",
			Rating:    rating(8.8),
			Watched:   true,
			Review:    "Dreams inside dreams, with a heist plot holding it together. The set pieces have aged very well.",
			PosterURL: "https://images.unsplash.com/photo-1478720568477-152d9b164e26?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&h=1200",
		},
		{
			Title:     "Pulp Fiction",
			Genre:     "Crime",
			Rating:    rating(8.9),
			Watched:   true,
			Review:    "Interlocking stories, sharp dialogue and characters you quote for years.",
			PosterURL: "https://images.unsplash.com/photo-1515634928627-2a4e0dae3ddf?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&h=1200",
		},
		{
			Title:     "The Dark Knight",
			Genre:     "Action",
			Rating:    rating(9.0),
			Watched:   false,
			Review:    "A superhero film carried by its villain. Tense from start to finish.",
			PosterURL: "https://images.unsplash.com/photo-1531259683007-016a7b628fc3?ixlib=rb-4.0.3&auto=format&fit=crop&w=800&h=1200",
		},
	}
}
