package dineinsdk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	requiredReason = "required"

	minPasswordLen   = 8
	maxPasswordLen   = 128
	maxReviewComment = 1000
)

var (
	reEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reDigits = regexp.MustCompile(`^[0-9]+$`)
)

func validateEmail(email string) string {
	switch {
	case email == "":
		return requiredReason
	case !reEmail.MatchString(email):
		return "must be a valid email address"
	}
	return ""
}

// Validate checks the login form.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if reason := validateEmail(strings.TrimSpace(r.Email)); reason != "" {
		errs["email"] = reason
	}
	if r.Password == "" {
		errs["password"] = requiredReason
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the signup form.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r SignupRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(r.FirstName) == "" {
		errs["first_name"] = requiredReason
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs["last_name"] = requiredReason
	}
	if reason := validateEmail(strings.TrimSpace(r.Email)); reason != "" {
		errs["email"] = reason
	}

	switch pw := r.Password; {
	case pw == "":
		errs["password"] = requiredReason
	case len(pw) < minPasswordLen:
		errs["password"] = "too short (min 8)"
	case len(pw) > maxPasswordLen:
		errs["password"] = "too long (max 128)"
	}

	if r.ConfirmPassword != r.Password {
		errs["confirm_password"] = "passwords do not match"
	}

	if doc := strings.TrimSpace(r.DocumentNumber); doc != "" && !reDigits.MatchString(doc) {
		errs["document_number"] = "must contain only digits"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks a review before it is posted.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r ReviewRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if r.LocationID <= 0 {
		errs["location_id"] = requiredReason
	}
	if r.Rating < 1 || r.Rating > 5 {
		errs["rating"] = "must be between 1 and 5"
	}
	if utf8.RuneCountInString(r.Comment) > maxReviewComment {
		errs["comment"] = "too long (max 1000)"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
