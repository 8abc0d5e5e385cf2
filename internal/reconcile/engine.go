package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/suvilkaushik/easysched-mvp/internal/identity"
	"github.com/suvilkaushik/easysched-mvp/internal/store"
)

// ErrConflict means a remote id is already linked to a different local
// record. It signals a double-materialization bug upstream and must never
// be resolved by silently overwriting the other record's link.
var ErrConflict = errors.New("reconcile: remote id already claimed by another record")

// Outcome reports what ApplyCreateOrUpdate did, for sync accounting.
type Outcome int

const (
	// OutcomeSkipped means the event carried no usable remote id.
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	// OutcomeLinked means a local-only record was claimed by a remote
	// identity through its email.
	OutcomeLinked
)

// Engine decides, for a canonical identity, whether to create, update, or
// deactivate a local record. It is the ONLY place where identity-to-record
// merge logic lives. Every operation is idempotent; the store's unique
// indexes on remoteId and email are the sole concurrency control.
type Engine struct {
	store store.UserStore
}

func NewEngine(s store.UserStore) *Engine {
	return &Engine{store: s}
}

// ApplyCreateOrUpdate merges one canonical identity into the local store:
//
//  1. Lookup by remote id; if found, overwrite profile fields
//     (last-write-wins) and clear the inactive flag.
//  2. Otherwise lookup by email: a match is a local-only record being
//     claimed by a newly observed remote identity.
//  3. Otherwise insert a fresh record.
//
// A lookup-then-write race against a concurrent application of the same
// identity surfaces as a duplicate-key error on the write, which is retried
// once as a lookup + update.
func (e *Engine) ApplyCreateOrUpdate(ctx context.Context, c identity.Canonical) (Outcome, error) {
	if c.RemoteID == "" {
		return OutcomeSkipped, nil
	}

	// 1. Try remote id lookup
	rec, err := e.store.FindByRemoteID(ctx, c.RemoteID)
	if err == nil {
		merge(rec, c)
		if uerr := e.store.Update(ctx, rec); uerr != nil {
			return OutcomeSkipped, uerr
		}
		return OutcomeUpdated, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return OutcomeSkipped, err
	}

	// 2. Try email-based claim (local-only record, new remote identity)
	if c.Email != "" {
		rec, err = e.store.FindByEmail(ctx, c.Email)
		if err == nil {
			rec.RemoteID = c.RemoteID
			merge(rec, c)
			uerr := e.store.Update(ctx, rec)
			if errors.Is(uerr, store.ErrDuplicateKey) {
				// Someone linked this remote id concurrently.
				return e.retryAsUpdate(ctx, c, uerr)
			}
			if uerr != nil {
				return OutcomeSkipped, uerr
			}
			return OutcomeLinked, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return OutcomeSkipped, err
		}
	}

	// 3. Create new record
	fresh := newRecord(c)
	err = e.store.Insert(ctx, &fresh)
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost the insert race; the record now exists. Apply as update.
		return e.retryAsUpdate(ctx, c, err)
	}
	if err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeCreated, nil
}

// retryAsUpdate re-resolves after a unique-index rejection. The record that
// beat us must be findable by remote id or email; anything else means the
// store rejected the write for a reason we cannot repair here.
func (e *Engine) retryAsUpdate(ctx context.Context, c identity.Canonical, cause error) (Outcome, error) {
	rec, err := e.store.FindByRemoteID(ctx, c.RemoteID)
	if errors.Is(err, store.ErrNotFound) && c.Email != "" {
		rec, err = e.store.FindByEmail(ctx, c.Email)
	}
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("reconcile: retry after duplicate key: %w", cause)
	}

	rec.RemoteID = c.RemoteID
	merge(rec, c)
	if err := e.store.Update(ctx, rec); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeUpdated, nil
}

// ApplyDeactivate soft-deletes the record linked to remoteID. Deactivating
// an identity that was never observed locally is a silent no-op.
func (e *Engine) ApplyDeactivate(ctx context.Context, remoteID string) error {
	err := e.store.SetInactive(ctx, remoteID, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// ClaimLocalOnly links a freshly materialized remote identity to the local
// record it was created for. Unlike the email-claim path, a remote id
// already held by a different record is an error here, not something to
// merge around.
func (e *Engine) ClaimLocalOnly(ctx context.Context, localID, remoteID string) error {
	err := e.store.Claim(ctx, localID, remoteID)
	if err == nil {
		return nil
	}

	if errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("%w: remote id %s", ErrConflict, remoteID)
	}

	if errors.Is(err, store.ErrNotFound) {
		// The record may already be linked. Linked to the same remote id
		// is an idempotent success; to a different one is a conflict.
		rec, ferr := e.store.FindByRemoteID(ctx, remoteID)
		if ferr == nil && rec.LocalID == localID {
			return nil
		}
		if ferr == nil {
			return fmt.Errorf("%w: remote id %s", ErrConflict, remoteID)
		}
	}
	return err
}

func newRecord(c identity.Canonical) store.User {
	u := store.User{
		RemoteID: c.RemoteID,
		Email:    c.Email,
	}
	merge(&u, c)
	return u
}

// merge overwrites the record's profile fields with the canonical values.
// Events carry complete snapshots, so empty canonical names clear stored
// ones (last-write-wins). The email is kept when the event has none: email
// is the unique join key and must never be blanked.
func merge(rec *store.User, c identity.Canonical) {
	if c.Email != "" {
		rec.Email = c.Email
	}
	if c.Username != "" {
		rec.Username = c.Username
	}
	rec.FirstName = c.FirstName
	rec.LastName = c.LastName
	rec.Name = c.Name
	rec.ImageURL = c.ImageURL
	rec.HasImage = c.HasImage
	if c.PublicMetadata != nil {
		rec.PublicMetadata = c.PublicMetadata
	}
	if c.PrivateMetadata != nil {
		rec.PrivateMetadata = c.PrivateMetadata
	}
	if c.UnsafeMetadata != nil {
		rec.UnsafeMetadata = c.UnsafeMetadata
	}
	if c.ExternalAccounts != nil {
		rec.ExternalAccounts = make([]store.ExternalAccount, 0, len(c.ExternalAccounts))
		for _, acct := range c.ExternalAccounts {
			rec.ExternalAccounts = append(rec.ExternalAccounts, store.ExternalAccount(acct))
		}
	}

	// Any create or update observed for this identity reactivates it.
	rec.Inactive = false
}
