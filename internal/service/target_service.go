package service

import (
	"fmt"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
)

// TargetKind discriminates the targeting variants.
type TargetKind int

const (
	TargetAll TargetKind = iota
	TargetByRole
	TargetByVerification
	TargetByIDs
)

// Target is the tagged targeting specification. Anything that does not match
// a variant is rejected at the boundary by ParseTarget, never deeper in.
type Target struct {
	Kind         TargetKind
	Role         model.Role
	Verified     bool
	RecipientIDs []int
}

// ParseTarget maps the loosely-typed wire payload
// {include_all, filter_role, filter_verified, recipient_ids} onto a variant.
// Exactly one variant must apply.
func ParseTarget(includeAll bool, role *string, verified *bool, recipientIDs []int) (Target, error) {
	set := 0
	if includeAll {
		set++
	}
	if role != nil {
		set++
	}
	if verified != nil {
		set++
	}
	if len(recipientIDs) > 0 {
		set++
	}
	if set == 0 {
		return Target{}, apperrors.NewInvalidTarget("no targeting criteria given")
	}
	if set > 1 {
		return Target{}, apperrors.NewInvalidTarget("targeting criteria are mutually exclusive")
	}

	switch {
	case includeAll:
		return Target{Kind: TargetAll}, nil
	case role != nil:
		r, ok := model.ParseRole(*role)
		if !ok {
			return Target{}, apperrors.NewInvalidTarget(fmt.Sprintf("unknown role %q", *role))
		}
		return Target{Kind: TargetByRole, Role: r}, nil
	case verified != nil:
		return Target{Kind: TargetByVerification, Verified: *verified}, nil
	default:
		return Target{Kind: TargetByIDs, RecipientIDs: recipientIDs}, nil
	}
}

// TargetResolver turns a Target into a concrete recipient set. Resolution is
// read-only and safe to repeat for previews.
type TargetResolver struct {
	UserRepo repository.UserRepositoryInterface
}

// Resolve returns the deduplicated non-admin users matching the target. The
// admin issuing the send is always excluded, even under TargetAll or an
// explicit id list.
func (r *TargetResolver) Resolve(senderID int, t Target) ([]model.User, error) {
	var (
		users []model.User
		err   error
	)
	switch t.Kind {
	case TargetAll:
		users, err = r.UserRepo.ListRecipients(nil, nil)
	case TargetByRole:
		role := t.Role
		users, err = r.UserRepo.ListRecipients(&role, nil)
	case TargetByVerification:
		verified := t.Verified
		users, err = r.UserRepo.ListRecipients(nil, &verified)
	case TargetByIDs:
		users, err = r.UserRepo.ListByIDs(t.RecipientIDs)
	default:
		return nil, apperrors.NewInvalidTarget("unknown target kind")
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(users))
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.ID == senderID || u.IsAdmin || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out, nil
}
