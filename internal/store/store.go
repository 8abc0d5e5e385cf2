package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey is returned when a write violates the unique index
	// on remoteId or email. Callers are expected to retry as lookup+update.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// ExternalAccount is a linked third-party account as reported by the IdP.
// It is passed through unmodified; the engine never inspects it.
type ExternalAccount map[string]any

// User is the local identity record. At most one record may hold a given
// non-empty RemoteID, and at most one may hold a given Email (stored
// lower-cased). A record with an empty RemoteID is local-only: it exists
// here but has no remote identity yet.
type User struct {
	LocalID          string            `bson:"-" json:"id"`
	RemoteID         string            `bson:"remoteId,omitempty" json:"remoteId,omitempty"`
	Username         string            `bson:"username,omitempty" json:"username,omitempty"`
	Email            string            `bson:"email" json:"email"`
	FirstName        string            `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName         string            `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Name             string            `bson:"name,omitempty" json:"name,omitempty"`
	ImageURL         string            `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	HasImage         bool              `bson:"hasImage,omitempty" json:"hasImage,omitempty"`
	PublicMetadata   map[string]any    `bson:"publicMetadata,omitempty" json:"publicMetadata,omitempty"`
	PrivateMetadata  map[string]any    `bson:"privateMetadata,omitempty" json:"privateMetadata,omitempty"`
	UnsafeMetadata   map[string]any    `bson:"unsafeMetadata,omitempty" json:"unsafeMetadata,omitempty"`
	ExternalAccounts []ExternalAccount `bson:"externalAccounts,omitempty" json:"externalAccounts,omitempty"`
	Inactive         bool              `bson:"inactive" json:"inactive"`
	SeedPassword     string            `bson:"seedPassword,omitempty" json:"-"`
	CreatedAt        time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// UserStore is the persistence contract for local identity records.
// Implementations must enforce uniqueness of remoteId (sparse) and email,
// reporting violations as ErrDuplicateKey. Records are never hard-deleted
// through this interface.
type UserStore interface {
	FindByRemoteID(ctx context.Context, remoteID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// ListLocalOnly returns every record with no remote identity linked.
	ListLocalOnly(ctx context.Context) ([]User, error)

	// Insert persists a new record and fills in LocalID and timestamps.
	Insert(ctx context.Context, u *User) error

	// Update overwrites the mutable fields of the record identified by
	// u.LocalID. Changing RemoteID or Email may hit a unique index.
	Update(ctx context.Context, u *User) error

	// SetInactive flips the soft-delete flag on the record holding
	// remoteID. A missing record returns ErrNotFound.
	SetInactive(ctx context.Context, remoteID string, inactive bool) error

	// Claim sets remoteID on the record identified by localID, provided
	// that record is still local-only. Returns ErrDuplicateKey when
	// another record already holds remoteID, ErrNotFound when localID
	// does not exist or is already linked.
	Claim(ctx context.Context, localID, remoteID string) error
}
