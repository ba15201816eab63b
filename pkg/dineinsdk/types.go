package dineinsdk

import (
	"time"

	"github.com/aussiebroadwan/dinein/pkg/jwtx"
)

// ============================================================================
// Auth Types
// ============================================================================

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /users/login and POST /auth/refresh.
// The refresh endpoint may omit RefreshToken when it does not rotate it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType defaults to "bearer" when empty
	TokenType string `json:"token_type,omitempty"`

	// UserID and Username are only sent by the login endpoint
	UserID   jwtx.UserID `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignupRequest is the body of POST /users/signup.
type SignupRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`

	// ConfirmPassword is checked locally and never sent
	ConfirmPassword string `json:"-"`
}

// SignupResponse is the created account.
type SignupResponse struct {
	UserID   jwtx.UserID `json:"user_id"`
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// List envelope
// ============================================================================

// Meta is the pagination block of a list response.
type Meta struct {
	Total      int    `json:"total,omitempty"`
	Page       int    `json:"page,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// HasMore reports whether another page can be requested.
func (m Meta) HasMore() bool { return m.NextCursor != "" }

// ListResponse is the {data, meta} envelope used by every list endpoint.
type ListResponse[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// ============================================================================
// Discovery Types
// ============================================================================

// Location is a single restaurant branch.
type Location struct {
	ID           int64    `json:"id"`
	RestaurantID int64    `json:"restaurant_id,omitempty"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	City         string   `json:"city,omitempty"`
	Latitude     float64  `json:"latitude,omitempty"`
	Longitude    float64  `json:"longitude,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	PriceLevel   int      `json:"price_level,omitempty"`
	CategoryIDs  []int64  `json:"category_ids,omitempty"`
	AmbienceIDs  []int64  `json:"ambience_ids,omitempty"`
	ImageURLs    []string `json:"image_urls,omitempty"`
}

// Category is a cuisine or restaurant type.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Ambience is a mood tag (rooftop, family, quiet...).
type Ambience struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LocationQuery filters GET /restaurants/locations.
type LocationQuery struct {
	Search     string
	CategoryID int64
	AmbienceID int64
	Cursor     string
	Limit      int
}

// Discovery is the combined result of the home-screen fan-out.
type Discovery struct {
	Locations  ListResponse[Location]
	Categories []Category
	Ambiences  []Ambience
}

// ============================================================================
// Booking Types
// ============================================================================

// Table is a physical table offered inside an AvailableSlot.
type Table struct {
	TableID     int64  `json:"table_id"`
	Capacity    int    `json:"capacity"`
	TableNumber string `json:"table_number"`
}

// AvailableSlot is a bookable time of day for one location and date,
// bundled with the tables free at that time. Immutable once fetched.
type AvailableSlot struct {
	// Time is "HH:MM" in the restaurant's local time
	Time            string  `json:"time"`
	AvailableTables []Table `json:"available_tables"`
}

type availableSlotsResponse struct {
	Data []AvailableSlot `json:"data"`
}

// ReservationRequest is the body of POST /reservation/reservations.
type ReservationRequest struct {
	LocationID int64 `json:"location_id"`
	UserID     int64 `json:"user_id"`
	TableID    int64 `json:"table_id"`

	// ReservationDate is "YYYY-MM-DDTHH:MM:00", local and without offset
	ReservationDate string `json:"reservation_date"`

	NumberOfGuests  int    `json:"number_of_guests"`
	OccasionTypeID  *int64 `json:"occasion_type_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Comments        string `json:"comments,omitempty"`
}

// ReservationUpdate is the body of PUT /reservation/reservations/{id}.
// Nil fields are left unchanged.
type ReservationUpdate struct {
	ReservationDate *string `json:"reservation_date,omitempty"`
	NumberOfGuests  *int    `json:"number_of_guests,omitempty"`
	TableID         *int64  `json:"table_id,omitempty"`
	Comments        *string `json:"comments,omitempty"`
}

// Reservation is a booking as returned by the backend.
type Reservation struct {
	ID              int64  `json:"reservation_id"`
	LocationID      int64  `json:"location_id"`
	UserID          int64  `json:"user_id"`
	TableID         int64  `json:"table_id"`
	ReservationDate string `json:"reservation_date"`
	NumberOfGuests  int    `json:"number_of_guests"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Status          string `json:"status,omitempty"`
	Comments        string `json:"comments,omitempty"`
}

// ReservationQuery pages through a user's reservations.
type ReservationQuery struct {
	UserID int64
	Status string
	Cursor string
	Limit  int
}

type createReservationResponse struct {
	ReservationID int64 `json:"reservation_id"`
	ID            int64 `json:"id"`
}

// ============================================================================
// Favorite Types
// ============================================================================

// Favorite is the server-side record marking a location as liked.
type Favorite struct {
	FavoriteID int64 `json:"id"`
	LocationID int64 `json:"location_id"`
	UserID     int64 `json:"user_id"`
}

type createFavoriteRequest struct {
	UserID     int64 `json:"user_id"`
	LocationID int64 `json:"location_id"`
}

// ============================================================================
// Review Types
// ============================================================================

// Review is a rating left for a location.
type Review struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	UserID     int64     `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewRequest is the body of POST /reviews/reviews.
type ReviewRequest struct {
	LocationID    int64  `json:"location_id"`
	UserID        int64  `json:"user_id"`
	ReservationID int64  `json:"reservation_id,omitempty"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment,omitempty"`
}

// ============================================================================
// Notification Types
// ============================================================================

// Notification is an in-app message for the signed-in user.
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
