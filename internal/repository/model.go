package repository

import (
	"reflect"
	"strings"
)

// DefaultRating is applied when a movie is created without a rating.
const DefaultRating = 5.0

// Metadata holds versioning info for the snapshot file.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// DataDocument is the persisted JSON snapshot of the in-memory store.
type DataDocument struct {
	Metadata Metadata `json:"metadata"`
	Movies   []Movie  `json:"movies" validate:"dive"`
	Users    []User   `json:"users" validate:"dive"`
}

// Movie is a single entry of the collection.
type Movie struct {
	ID        string  `json:"id" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	Genre     string  `json:"genre" validate:"required"`
	Rating    float64 `json:"rating" validate:"gte=1,lte=10"`
	Watched   bool    `json:"watched"`
	Review    string  `json:"review,omitempty"`
	PosterURL string  `json:"posterUrl,omitempty" validate:"omitempty,url"`
}

// MovieInput is the create payload: every movie field except the identifier.
type MovieInput struct {
	Title     string   `json:"title" validate:"required,max=200"`
	Genre     string   `json:"genre" validate:"required,max=64"`
	Rating    *float64 `json:"rating" validate:"omitnil,gte=1,lte=10"`
	Watched   bool     `json:"watched"`
	Review    string   `json:"review" validate:"max=5000"`
	PosterURL string   `json:"posterUrl" validate:"omitempty,url"`
}

// MoviePatch is the update payload. Nil fields are left untouched.
type MoviePatch struct {
	Title     *string  `json:"title" validate:"omitnil,min=1,max=200"`
	Genre     *string  `json:"genre" validate:"omitnil,min=1,max=64"`
	Rating    *float64 `json:"rating" validate:"omitnil,gte=1,lte=10"`
	Watched   *bool    `json:"watched"`
	Review    *string  `json:"review" validate:"omitnil,max=5000"`
	PosterURL *string  `json:"posterUrl" validate:"omitnil,url|eq="`
}

// User is an account record. The password is stored as given.
type User struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserInput is the create payload for users.
type UserInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims surrounding whitespace from free-text identity fields.
func (in *MovieInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Genre = strings.TrimSpace(in.Genre)
	in.PosterURL = strings.TrimSpace(in.PosterURL)
}

// ToMovie builds the record the store will persist under id.
func (in MovieInput) ToMovie(id string) Movie {
	rating := DefaultRating
	if in.Rating != nil {
		rating = *in.Rating
	}
	return Movie{
		ID:        id,
		Title:     in.Title,
		Genre:     in.Genre,
		Rating:    rating,
		Watched:   in.Watched,
		Review:    in.Review,
		PosterURL: in.PosterURL,
	}
}

// Normalize trims the provided text fields, mirroring MovieInput.Normalize.
func (p *MoviePatch) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.Title)
	trim(p.Genre)
	trim(p.PosterURL)
}

// IsEmpty reports whether the patch carries no field at all.
func (p MoviePatch) IsEmpty() bool {
	return p.Title == nil && p.Genre == nil && p.Rating == nil &&
		p.Watched == nil && p.Review == nil && p.PosterURL == nil
}

// ApplyTo returns m with every provided field replaced. The identifier is never touched.
func (p MoviePatch) ApplyTo(m Movie) Movie {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Genre != nil {
		m.Genre = *p.Genre
	}
	if p.Rating != nil {
		m.Rating = *p.Rating
	}
	if p.Watched != nil {
		m.Watched = *p.Watched
	}
	if p.Review != nil {
		m.Review = *p.Review
	}
	if p.PosterURL != nil {
		m.PosterURL = *p.PosterURL
	}
	return m
}

// ApplyDefaults sets fallback values after decode.
func (d *DataDocument) ApplyDefaults() {
	if d.Movies == nil {
		d.Movies = []Movie{}
	}
	if d.Users == nil {
		d.Users = []User{}
	}
}

// AreDataDocumentsEqual compares two DataDocuments ignoring Metadata.
func AreDataDocumentsEqual(a, b *DataDocument) bool {
	if a == nil || b == nil {
		return a == b
	}
	left, right := *a, *b
	left.ApplyDefaults()
	right.ApplyDefaults()
	return reflect.DeepEqual(left.Movies, right.Movies) && reflect.DeepEqual(left.Users, right.Users)
}
