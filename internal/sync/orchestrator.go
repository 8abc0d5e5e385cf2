package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suvilkaushik/easysched-mvp/internal/identity"
	"github.com/suvilkaushik/easysched-mvp/internal/idp"
	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/reconcile"
	"github.com/suvilkaushik/easysched-mvp/internal/store"
)

// Report summarizes one full sync run. Per-record failures accumulate here
// instead of aborting the pass.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Linked     int       `json:"linked"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
}

func (r *Report) fail(scope string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, scope+": "+err.Error())
	logger.Warn("sync record failed", map[string]any{
		"run":    r.RunID,
		"record": scope,
		"error":  err.Error(),
	})
}

// Orchestrator drives bulk two-directional reconciliation: remote→local by
// paging through every remote identity, local→remote by materializing
// remote identities for records that have none.
type Orchestrator struct {
	store    store.UserStore
	idp      idp.Client
	engine   *reconcile.Engine
	pageSize int
}

func NewOrchestrator(s store.UserStore, client idp.Client, engine *reconcile.Engine, pageSize int) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Orchestrator{
		store:    s,
		idp:      client,
		engine:   engine,
		pageSize: pageSize,
	}
}

// RunFullSync executes both passes and always returns a report, even when
// every record failed. Only a context cancellation stops a pass early.
func (o *Orchestrator) RunFullSync(ctx context.Context) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	o.pullRemote(ctx, report)
	o.pushLocalOnly(ctx, report)

	report.FinishedAt = time.Now().UTC()
	logger.Info("full sync finished", map[string]any{
		"run":     report.RunID,
		"created": report.Created,
		"updated": report.Updated,
		"linked":  report.Linked,
		"failed":  report.Failed,
	})
	return report
}

// pullRemote pages through all remote identities and applies each one.
// A failing page aborts further paging (the cursor is gone); a failing
// record does not.
func (o *Orchestrator) pullRemote(ctx context.Context, report *Report) {
	cursor := ""
	for {
		if ctx.Err() != nil {
			report.fail("pull", ctx.Err())
			return
		}

		page, err := o.idp.ListUsers(ctx, cursor, o.pageSize)
		if err != nil {
			report.fail("pull page after "+cursor, err)
			return
		}
		if len(page) == 0 {
			return
		}

		for i := range page {
			remote := &page[i]
			if err := o.applyRemote(ctx, remote, report); err != nil {
				report.fail("remote "+remote.ID, err)
			}
		}

		cursor = page[len(page)-1].ID
		if len(page) < o.pageSize {
			return
		}
	}
}

func (o *Orchestrator) applyRemote(ctx context.Context, remote *idp.User, report *Report) error {
	c := identity.FromRemote(remote, identity.Updated)

	outcome, err := o.engine.ApplyCreateOrUpdate(ctx, c)
	if err != nil {
		return err
	}
	switch outcome {
	case reconcile.OutcomeCreated:
		report.Created++
	case reconcile.OutcomeUpdated:
		report.Updated++
	case reconcile.OutcomeLinked:
		report.Linked++
	}

	// The provider flags banned/locked accounts instead of deleting them;
	// both read as deactivated here.
	if remote.Banned || remote.Locked {
		return o.engine.ApplyDeactivate(ctx, remote.ID)
	}
	return nil
}

// pushLocalOnly walks every record without a remote link. Each gets either
// claimed against an existing remote identity with the same email, or a
// brand-new remote identity created for it.
func (o *Orchestrator) pushLocalOnly(ctx context.Context, report *Report) {
	locals, err := o.store.ListLocalOnly(ctx)
	if err != nil {
		report.fail("push list", err)
		return
	}

	for i := range locals {
		if ctx.Err() != nil {
			report.fail("push", ctx.Err())
			return
		}
		rec := &locals[i]
		if err := o.materialize(ctx, rec); err != nil {
			report.fail("local "+rec.LocalID, err)
			continue
		}
		report.Linked++
	}
}

func (o *Orchestrator) materialize(ctx context.Context, rec *store.User) error {
	email := strings.ToLower(rec.Email)
	if email == "" {
		return errors.New("record has no email")
	}

	// The user may have signed up remotely since the last sync; claiming
	// the existing identity avoids creating a duplicate remote account.
	remote, err := o.idp.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, idp.ErrNotFound) {
		return fmt.Errorf("find by email: %w", err)
	}

	if remote == nil {
		base := rec.Username
		if base == "" {
			base, _, _ = strings.Cut(email, "@")
		}
		password := rec.SeedPassword
		if password == "" {
			password = GeneratePassword()
		}

		remote, err = o.idp.CreateUser(ctx, idp.CreateParams{
			Username:       GenerateUsername(base),
			EmailAddress:   email,
			Password:       password,
			FirstName:      rec.FirstName,
			LastName:       rec.LastName,
			PublicMetadata: map[string]any{"synced_from": "mongo-seed"},
		})
		if err != nil {
			return fmt.Errorf("create remote user: %w", err)
		}
		logger.Info("materialized remote identity", map[string]any{
			"email":    email,
			"remoteId": remote.ID,
		})
	}

	if err := o.engine.ClaimLocalOnly(ctx, rec.LocalID, remote.ID); err != nil {
		return fmt.Errorf("claim %s: %w", remote.ID, err)
	}
	return nil
}
