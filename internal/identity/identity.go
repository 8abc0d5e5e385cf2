package identity

import (
	"strings"

	"github.com/suvilkaushik/easysched-mvp/internal/idp"
)

// EventKind classifies a lifecycle event after normalization.
type EventKind int

const (
	Created EventKind = iota
	Updated
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Canonical is the shape-independent representation of one identity-change
// event. It contains facts only, no decisions: the reconciliation engine
// decides what to do with it.
type Canonical struct {
	RemoteID         string
	Email            string // primary address, lower-cased; empty when absent
	Username         string
	FirstName        string
	LastName         string
	Name             string
	ImageURL         string
	HasImage         bool
	PublicMetadata   map[string]any
	PrivateMetadata  map[string]any
	UnsafeMetadata   map[string]any
	ExternalAccounts []map[string]any
	Kind             EventKind
}

// FromRemote maps a typed provider user into a canonical identity for the
// bulk and per-user sync paths. The first listed address is taken as
// primary.
func FromRemote(u *idp.User, kind EventKind) Canonical {
	var email string
	if len(u.EmailAddresses) > 0 {
		email = strings.ToLower(u.EmailAddresses[0].EmailAddress)
	}

	return Canonical{
		RemoteID:         u.ID,
		Email:            email,
		Username:         u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		ImageURL:         u.ImageURL,
		HasImage:         u.HasImage,
		PublicMetadata:   u.PublicMetadata,
		PrivateMetadata:  u.PrivateMetadata,
		UnsafeMetadata:   u.UnsafeMetadata,
		ExternalAccounts: u.ExternalAccounts,
		Kind:             kind,
	}
}
