// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/normalize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = errors.New("invitation not found")
	ErrHomeNotFound  = errors.New("home not found")
	ErrSelfInvite    = errors.New("the owner cannot be invited to their own home")
	ErrAlreadyMember = errors.New("this email already belongs to a member of the home")

	// ErrInvitationResolved is returned when accepting or declining an
	// invitation that is no longer pending. Nothing is written.
	ErrInvitationResolved = errors.New("invitation is no longer pending")
)

// Strategy selects how pending invitations are reconciled at sign-in.
type Strategy string

const (
	// StrategyLedger accepts pending invitations whose home already lists
	// the principal as a member. Invitation history is kept.
	StrategyLedger Strategy = "ledger"
	// StrategyPush adds the principal to every home whose pendingInvites
	// holds their email.
	StrategyPush Strategy = "push"
)

// ParseStrategy accepts "ledger" (also "pull") or "push". Blank means ledger.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ledger", "pull":
		return StrategyLedger, nil
	case "push":
		return StrategyPush, nil
	}
	return "", fmt.Errorf("unknown invitation reconcile strategy %q", s)
}

// Store is the invitation ledger. It keeps invitations and the pendingInvites
// and members sets of homes in step, writing every transition as one batch.
// Home sets are only changed with add-to-set / pull.
type Store struct {
	s        docstore.Store
	strategy Strategy
}

func New(s docstore.Store, strategy Strategy) *Store {
	if strategy == "" {
		strategy = StrategyLedger
	}
	return &Store{s: s, strategy: strategy}
}

// Strategy returns the configured reconcile strategy.
func (st *Store) Strategy() Strategy {
	return st.strategy
}

// Invite records a pending invitation for email and adds it to the home's
// pendingInvites. An empty email is a no-op. When a pending invitation for
// (home, email) already exists it is returned with created=false.
func (st *Store) Invite(ctx context.Context, homeID, homeName, createdBy, email string) (inv models.Invitation, created bool, err error) {
	emailLower := normalize.Email(email)
	if emailLower == "" {
		return models.Invitation{}, false, nil
	}

	if existing, ok, err := st.pending(ctx, homeID, emailLower); err != nil || ok {
		return existing, false, err
	}

	var home models.Home
	if err := st.s.Get(ctx, models.HomesCollection, homeID, &home); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Invitation{}, false, ErrHomeNotFound
		}
		return models.Invitation{}, false, err
	}
	if err := st.checkInvitee(ctx, home, emailLower); err != nil {
		return models.Invitation{}, false, err
	}
	if homeName == "" {
		homeName = home.Name
	}

	inv = models.Invitation{
		ID:         primitive.NewObjectID().Hex(),
		HomeID:     homeID,
		HomeName:   homeName,
		CreatedBy:  createdBy,
		Email:      strings.TrimSpace(email),
		EmailLower: emailLower,
		Status:     models.InvitationPending,
		CreatedAt:  time.Now().UTC(),
	}
	b := docstore.NewBatch().
		Set(models.InvitationsCollection, inv.ID, inv).
		Update(models.HomesCollection, homeID, docstore.Update{AddToSet: bson.M{"pendingInvites": emailLower}})

	if err := st.s.Commit(ctx, b); err != nil {
		switch {
		case errors.Is(err, docstore.ErrDuplicate):
			// A concurrent invite won the unique pending index.
			existing, ok, ferr := st.pending(ctx, homeID, emailLower)
			if ferr != nil {
				return models.Invitation{}, false, ferr
			}
			if ok {
				return existing, false, nil
			}
			return models.Invitation{}, false, err
		case errors.Is(err, docstore.ErrNotFound):
			return models.Invitation{}, false, ErrHomeNotFound
		}
		return models.Invitation{}, false, fmt.Errorf("invite %s: %w", emailLower, err)
	}
	return inv, true, nil
}

// checkInvitee rejects emails registered to the owner or an existing member.
func (st *Store) checkInvitee(ctx context.Context, home models.Home, emailLower string) error {
	var profiles []models.Profile
	if err := st.s.Find(ctx, models.UsersCollection, docstore.Where("emailLower", emailLower), &profiles); err != nil {
		return err
	}
	for _, p := range profiles {
		if p.UID == home.OwnerID {
			return ErrSelfInvite
		}
		if home.HasMember(p.UID) {
			return ErrAlreadyMember
		}
	}
	return nil
}

func (st *Store) pending(ctx context.Context, homeID, emailLower string) (models.Invitation, bool, error) {
	var found []models.Invitation
	q := docstore.Where("homeId", homeID).
		Eq("emailLower", emailLower).
		Eq("status", string(models.InvitationPending))
	if err := st.s.Find(ctx, models.InvitationsCollection, q, &found); err != nil {
		return models.Invitation{}, false, err
	}
	if len(found) == 0 {
		return models.Invitation{}, false, nil
	}
	return found[0], true, nil
}

// Get returns the invitation with id.
func (st *Store) Get(ctx context.Context, id string) (models.Invitation, error) {
	var inv models.Invitation
	if err := st.s.Get(ctx, models.InvitationsCollection, id, &inv); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Invitation{}, ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// ListForHome returns every invitation of a home, newest first.
func (st *Store) ListForHome(ctx context.Context, homeID string) ([]models.Invitation, error) {
	var out []models.Invitation
	if err := st.s.Find(ctx, models.InvitationsCollection, docstore.Where("homeId", homeID), &out); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// ListForEmail returns every invitation addressed to email, newest first.
func (st *Store) ListForEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	emailLower := normalize.Email(email)
	if emailLower == "" {
		return []models.Invitation{}, nil
	}
	var out []models.Invitation
	if err := st.s.Find(ctx, models.InvitationsCollection, docstore.Where("emailLower", emailLower), &out); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders by createdAt descending; a missing timestamp counts
// as the Unix epoch and so sorts last.
func sortNewestFirst(invs []models.Invitation) {
	ts := func(inv models.Invitation) int64 {
		if inv.CreatedAt.IsZero() {
			return 0
		}
		return inv.CreatedAt.UnixMilli()
	}
	sort.SliceStable(invs, func(i, j int) bool { return ts(invs[i]) > ts(invs[j]) })
}

// Accept makes principalID a member of the invitation's home, removes the
// email from pendingInvites and marks the invitation accepted, in one batch.
// A missing invitation is a no-op; one that is no longer pending yields
// ErrInvitationResolved and nothing is written.
func (st *Store) Accept(ctx context.Context, id, principalID string) error {
	inv, err := st.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if inv.Status != models.InvitationPending {
		return fmt.Errorf("%w: %s", ErrInvitationResolved, inv.Status)
	}

	b := docstore.NewBatch()
	st.resolve(b, inv, models.InvitationAccepted, principalID, time.Now().UTC())
	b.Update(models.HomesCollection, inv.HomeID, docstore.Update{
		AddToSet: bson.M{"members": principalID},
		Pull:     bson.M{"pendingInvites": inv.EmailLower},
	})
	return st.commit(ctx, b)
}

// Decline marks the invitation denied and removes the email from the home's
// pendingInvites. A missing invitation is a no-op.
func (st *Store) Decline(ctx context.Context, id string) error {
	inv, err := st.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if inv.Status != models.InvitationPending {
		return fmt.Errorf("%w: %s", ErrInvitationResolved, inv.Status)
	}

	b := docstore.NewBatch()
	st.resolve(b, inv, models.InvitationDenied, "", time.Now().UTC())
	b.Update(models.HomesCollection, inv.HomeID, docstore.Update{
		Pull: bson.M{"pendingInvites": inv.EmailLower},
	})
	return st.commit(ctx, b)
}

// resolve queues the pending -> status transition, guarded so a concurrent
// resolution makes the whole batch fail instead of resolving twice.
func (st *Store) resolve(b *docstore.Batch, inv models.Invitation, status models.InvitationStatus, uid string, at time.Time) {
	set := bson.M{"status": string(status), "respondedAt": at}
	if uid != "" {
		set["inviteeUid"] = uid
	}
	b.UpdateIf(models.InvitationsCollection, inv.ID,
		bson.M{"status": string(models.InvitationPending)},
		docstore.Update{Set: set})
}

func (st *Store) commit(ctx context.Context, b *docstore.Batch) error {
	err := st.s.Commit(ctx, b)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrConflict):
		return ErrInvitationResolved
	case errors.Is(err, docstore.ErrNotFound):
		return ErrHomeNotFound
	}
	return err
}

// ReconcileOnSignIn applies the configured strategy for p and reports how
// many homes changed. It is idempotent and never touches an invitation that
// is no longer pending.
func (st *Store) ReconcileOnSignIn(ctx context.Context, p models.Principal) (int, error) {
	emailLower := normalize.Email(p.Email)
	if p.UID == "" || emailLower == "" {
		return 0, nil
	}
	if st.strategy == StrategyPush {
		return st.reconcilePush(ctx, p.UID, emailLower)
	}
	return st.reconcileLedger(ctx, p.UID, emailLower)
}

func (st *Store) pendingFor(ctx context.Context, emailLower string) ([]models.Invitation, error) {
	var invs []models.Invitation
	q := docstore.Where("emailLower", emailLower).Eq("status", string(models.InvitationPending))
	if err := st.s.Find(ctx, models.InvitationsCollection, q, &invs); err != nil {
		return nil, err
	}
	return invs, nil
}

// reconcileLedger accepts pending invitations whose home already has uid
// as a member. Homes that have not granted membership are left alone.
func (st *Store) reconcileLedger(ctx context.Context, uid, emailLower string) (int, error) {
	invs, err := st.pendingFor(ctx, emailLower)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, inv := range invs {
		var home models.Home
		if err := st.s.Get(ctx, models.HomesCollection, inv.HomeID, &home); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			return n, err
		}
		if !contains(home.Members, uid) {
			continue
		}
		b := docstore.NewBatch()
		st.resolve(b, inv, models.InvitationAccepted, uid, time.Now().UTC())
		b.Update(models.HomesCollection, inv.HomeID, docstore.Update{Pull: bson.M{"pendingInvites": emailLower}})
		if err := st.commit(ctx, b); err != nil {
			if errors.Is(err, ErrInvitationResolved) || errors.Is(err, ErrHomeNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// reconcilePush adds uid to every home holding emailLower in pendingInvites.
// Pending invitation records for those homes are accepted in the same batch
// so the ledger does not keep stale pending entries.
func (st *Store) reconcilePush(ctx context.Context, uid, emailLower string) (int, error) {
	var homes []models.Home
	if err := st.s.Find(ctx, models.HomesCollection, docstore.Query{}.Contains("pendingInvites", emailLower), &homes); err != nil {
		return 0, err
	}
	invs, err := st.pendingFor(ctx, emailLower)
	if err != nil {
		return 0, err
	}
	byHome := make(map[string][]models.Invitation, len(invs))
	for _, inv := range invs {
		byHome[inv.HomeID] = append(byHome[inv.HomeID], inv)
	}

	n := 0
	for _, home := range homes {
		now := time.Now().UTC()
		b := docstore.NewBatch().Update(models.HomesCollection, home.ID, docstore.Update{
			AddToSet: bson.M{"members": uid},
			Pull:     bson.M{"pendingInvites": emailLower},
		})
		for _, inv := range byHome[home.ID] {
			st.resolve(b, inv, models.InvitationAccepted, uid, now)
		}
		if err := st.commit(ctx, b); err != nil {
			if errors.Is(err, ErrInvitationResolved) || errors.Is(err, ErrHomeNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
