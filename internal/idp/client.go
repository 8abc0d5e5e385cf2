package idp

import "context"

// EmailAddress is one address attached to a remote user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User is the identity provider's representation of a user. Fields this
// service does not interpret (metadata, external accounts) are carried
// through opaquely.
type User struct {
	ID                    string           `json:"id"`
	Username              string           `json:"username"`
	FirstName             string           `json:"first_name"`
	LastName              string           `json:"last_name"`
	ImageURL              string           `json:"image_url"`
	HasImage              bool             `json:"has_image"`
	EmailAddresses        []EmailAddress   `json:"email_addresses"`
	PrimaryEmailAddressID string           `json:"primary_email_address_id"`
	PublicMetadata        map[string]any   `json:"public_metadata"`
	PrivateMetadata       map[string]any   `json:"private_metadata"`
	UnsafeMetadata        map[string]any   `json:"unsafe_metadata"`
	ExternalAccounts      []map[string]any `json:"external_accounts"`
	Banned                bool             `json:"banned"`
	Locked                bool             `json:"locked"`
	CreatedAt             int64            `json:"created_at"`
}

// CreateParams are the fields sent when materializing a remote user for a
// locally-seeded record.
type CreateParams struct {
	Username       string
	EmailAddress   string
	Password       string
	FirstName      string
	LastName       string
	PublicMetadata map[string]any
}

// Client is the contract with the identity provider's admin API. It returns
// identity facts only; no user creation decisions or linking logic live
// behind it.
type Client interface {
	// ListUsers returns one page of users, ordered by the provider.
	// startingAfter is the opaque cursor (the last user id of the
	// previous page, empty for the first page).
	ListUsers(ctx context.Context, startingAfter string, limit int) ([]User, error)

	// GetUser fetches a single user by its provider id.
	GetUser(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the user owning the address, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser provisions a new remote user.
	CreateUser(ctx context.Context, p CreateParams) (*User, error)
}
