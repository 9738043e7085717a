package guardian

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/saferoute/saferoute/internal/api/models"
)

// Service errors.
var (
	ErrTooManyContacts = errors.New("guardian contact limit reached")
)

// Validation constants.
const (
	MaxNameLength         = 80
	MaxContactsPerUser    = 10
	contactIDPrefix       = "gdn_"
	contactIDRandomLength = 22
)

// phoneRegex accepts international and local phone formats.
var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)

// Service provides guardian contact operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new guardian service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the user's contacts.
func (s *Service) List(ctx context.Context, userID string) ([]*Contact, error) {
	return s.repo.List(ctx, userID)
}

// Create validates and stores a new contact for the user.
func (s *Service) Create(ctx context.Context, userID, name, phone string) (*Contact, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	if fieldErrors := validate(name, phone); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	n, err := s.repo.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n >= MaxContactsPerUser {
		return nil, ErrTooManyContacts
	}

	contact := &Contact{
		ID:        contactIDPrefix + uuid.New().String()[:contactIDRandomLength],
		UserID:    userID,
		Name:      name,
		Phone:     phone,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

// Delete removes one of the user's contacts.
func (s *Service) Delete(ctx context.Context, userID, contactID string) error {
	return s.repo.Delete(ctx, userID, contactID)
}

func validate(name, phone string) []models.FieldError {
	var errs []models.FieldError

	switch {
	case name == "":
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 80 characters"})
	}

	switch {
	case phone == "":
		errs = append(errs, models.FieldError{Field: "phone", Message: "is required"})
	case !phoneRegex.MatchString(phone):
		errs = append(errs, models.FieldError{Field: "phone", Message: "must be a phone number"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
