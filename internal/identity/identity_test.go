package identity

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestFromClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":             "user-1",
		"email":           "doc@clinic.example",
		"custom:clinicId": "clinic-1",
		"custom:role":     "Doctor",
		"cognito:groups":  []any{"Doctor", "Admin"},
	}
	id, err := FromClaims(claims)
	if err != nil {
		t.Fatalf("FromClaims: %v", err)
	}
	if id.Sub != "user-1" || id.Email != "doc@clinic.example" || id.ClinicID != "clinic-1" {
		t.Errorf("unexpected identity: %+v", id)
	}
	if id.Role != RoleDoctor {
		t.Errorf("role = %q, want Doctor", id.Role)
	}
	if len(id.Groups) != 2 || id.Groups[0] != "Doctor" {
		t.Errorf("groups = %v", id.Groups)
	}
}

func TestFromClaimsMissingTenant(t *testing.T) {
	_, err := FromClaims(jwt.MapClaims{"sub": "user-1", "email": "a@b.c"})
	if !errors.Is(err, ErrNoTenant) {
		t.Fatalf("err = %v, want ErrNoTenant", err)
	}
}

func TestFromClaimsMissingSub(t *testing.T) {
	if _, err := FromClaims(jwt.MapClaims{"custom:clinicId": "clinic-1"}); err == nil {
		t.Fatal("expected error for missing sub")
	}
}

func TestFromClaimsDefaults(t *testing.T) {
	id, err := FromClaims(jwt.MapClaims{
		"sub":              "user-2",
		"cognito:username": "fallback@clinic.example",
		"custom:clinicId":  "clinic-2",
	})
	if err != nil {
		t.Fatalf("FromClaims: %v", err)
	}
	if id.Email != "fallback@clinic.example" {
		t.Errorf("email fallback = %q", id.Email)
	}
	if id.Role != RoleStaff {
		t.Errorf("default role = %q, want Staff", id.Role)
	}
	if id.Groups == nil {
		t.Error("groups must never be nil")
	}
	if id.IsSystemAdmin() {
		t.Error("Staff must not be SystemAdmin")
	}
}

func TestIsSystemAdminGroupBased(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		want bool
	}{
		{"group without role", Identity{Role: RoleAdmin, Groups: []string{"SystemAdmin"}}, true},
		{"role without group", Identity{Role: RoleSystemAdmin, Groups: []string{"Admin"}}, false},
		{"both", Identity{Role: RoleSystemAdmin, Groups: []string{"SystemAdmin"}}, true},
		{"neither", Identity{Role: RoleStaff, Groups: []string{"Staff"}}, false},
		{"no groups", Identity{Role: RoleSystemAdmin}, false},
	}
	for _, tc := range cases {
		if got := tc.id.IsSystemAdmin(); got != tc.want {
			t.Errorf("%s: IsSystemAdmin() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFromClaimsNonStringGroupsIgnored(t *testing.T) {
	id, err := FromClaims(jwt.MapClaims{
		"sub":             "user-3",
		"custom:clinicId": "clinic-3",
		"cognito:groups":  []any{"Staff", 42, nil},
	})
	if err != nil {
		t.Fatalf("FromClaims: %v", err)
	}
	if len(id.Groups) != 1 || id.Groups[0] != "Staff" {
		t.Errorf("groups = %v, want [Staff]", id.Groups)
	}
}
