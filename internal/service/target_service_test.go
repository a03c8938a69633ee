package service_test

import (
	"errors"
	"testing"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/service"
)

// MockUserRepo serves a fixed user directory.
type MockUserRepo struct {
	users []model.User
}

func (m *MockUserRepo) GetByID(id int) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepo) ListRecipients(role *model.Role, verified *bool) ([]model.User, error) {
	out := []model.User{}
	for _, u := range m.users {
		if u.IsAdmin || !u.IsActive {
			continue
		}
		if role != nil && u.Role != *role {
			continue
		}
		if verified != nil && u.IsVerified != *verified {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserRepo) ListByIDs(ids []int) ([]model.User, error) {
	out := []model.User{}
	for _, id := range ids {
		for _, u := range m.users {
			if u.ID == id && u.IsActive {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (m *MockUserRepo) ListActiveTalents() ([]model.User, error) {
	role := model.RoleTalent
	return m.ListRecipients(&role, nil)
}

func directory() []model.User {
	return []model.User{
		{ID: 1, Username: "admin", Role: model.RoleAdmin, IsAdmin: true, IsActive: true},
		{ID: 2, Username: "alice", Role: model.RoleTalent, IsVerified: true, IsActive: true},
		{ID: 3, Username: "bob", Role: model.RoleTalent, IsActive: true},
		{ID: 4, Username: "dan", Role: model.RoleEmployer, IsVerified: true, IsActive: true},
		{ID: 5, Username: "erin", Role: model.RoleClient, IsActive: true},
	}
}

func TestParseTargetRejectsUnknownRole(t *testing.T) {
	role := "superuser"
	_, err := service.ParseTarget(false, &role, nil, nil)

	var invalid *apperrors.ErrInvalidTarget
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestParseTargetRejectsEmptyCriteria(t *testing.T) {
	_, err := service.ParseTarget(false, nil, nil, nil)
	var invalid *apperrors.ErrInvalidTarget
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestParseTargetRejectsCombinedCriteria(t *testing.T) {
	role := "talent"
	verified := true
	_, err := service.ParseTarget(false, &role, &verified, nil)
	var invalid *apperrors.ErrInvalidTarget
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTarget for combined criteria, got %v", err)
	}
}

func TestResolveAllExcludesAdminsAndSender(t *testing.T) {
	resolver := &service.TargetResolver{UserRepo: &MockUserRepo{users: directory()}}

	target, err := service.ParseTarget(true, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	users, err := resolver.Resolve(2, target) // alice is the sender here
	if err != nil {
		t.Fatal(err)
	}

	if len(users) != 3 {
		t.Fatalf("expected 3 recipients, got %d", len(users))
	}
	for _, u := range users {
		if u.ID == 2 {
			t.Error("sender must be excluded from its own target set")
		}
		if u.IsAdmin {
			t.Error("admins must never be targeted")
		}
	}
}

func TestResolveByRole(t *testing.T) {
	resolver := &service.TargetResolver{UserRepo: &MockUserRepo{users: directory()}}
	role := "talent"

	target, err := service.ParseTarget(false, &role, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	users, err := resolver.Resolve(1, target)
	if err != nil {
		t.Fatal(err)
	}

	if len(users) != 2 {
		t.Fatalf("expected 2 talents, got %d", len(users))
	}
}

func TestResolveByVerification(t *testing.T) {
	resolver := &service.TargetResolver{UserRepo: &MockUserRepo{users: directory()}}
	verified := true

	target, err := service.ParseTarget(false, nil, &verified, nil)
	if err != nil {
		t.Fatal(err)
	}
	users, err := resolver.Resolve(1, target)
	if err != nil {
		t.Fatal(err)
	}

	if len(users) != 2 {
		t.Fatalf("expected 2 verified users, got %d", len(users))
	}
}

func TestResolveByIDsDeduplicatesAndFilters(t *testing.T) {
	resolver := &service.TargetResolver{UserRepo: &MockUserRepo{users: directory()}}

	// Duplicate ids, the sender, and an admin are all in the request.
	target, err := service.ParseTarget(false, nil, nil, []int{3, 3, 4, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	users, err := resolver.Resolve(2, target)
	if err != nil {
		t.Fatal(err)
	}

	if len(users) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(users))
	}
	seen := map[int]bool{}
	for _, u := range users {
		if seen[u.ID] {
			t.Errorf("duplicate recipient id %d", u.ID)
		}
		seen[u.ID] = true
	}
}
