package guardian

import "context"

// Repository defines the interface for guardian contact persistence.
type Repository interface {
	// List returns a user's contacts, oldest first.
	List(ctx context.Context, userID string) ([]*Contact, error)

	// Count returns how many contacts a user has.
	Count(ctx context.Context, userID string) (int, error)

	// Create stores a new contact.
	Create(ctx context.Context, contact *Contact) error

	// Delete removes a contact owned by the user.
	// Returns ErrContactNotFound if it doesn't exist or belongs to someone else.
	Delete(ctx context.Context, userID, contactID string) error
}
