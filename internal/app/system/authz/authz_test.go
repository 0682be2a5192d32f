package authz_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	"github.com/dalemusser/homeready/internal/app/system/auth"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/testutil"
)

func TestUserCtx(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected no user")
	}

	req = auth.WithTestUser(req, &auth.SessionUser{ID: "u1", Name: "Ana"})
	uid, name, ok := authz.UserCtx(req)
	if !ok || uid != "u1" || name != "Ana" {
		t.Errorf("UserCtx = %q, %q, %v", uid, name, ok)
	}

	req = auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{Name: "no id"})
	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("user without id should not count as signed in")
	}
}

func TestMemberAndOwnerHome(t *testing.T) {
	ds := testutil.NewStore(t)
	fx := testutil.NewFixtures(t, ds)
	homes := homestore.New(ds)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	home := fx.CreateHome(ctx, "owner", "Casa", "member")

	tests := []struct {
		name      string
		uid       string
		memberErr error
		ownerErr  error
	}{
		{"owner", "owner", nil, nil},
		{"member", "member", nil, authz.ErrNotOwner},
		{"stranger", "stranger", authz.ErrNotMember, authz.ErrNotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := authz.MemberHome(ctx, homes, home.ID, tt.uid); !errors.Is(err, tt.memberErr) {
				t.Errorf("MemberHome err = %v, want %v", err, tt.memberErr)
			}
			if _, err := authz.OwnerHome(ctx, homes, home.ID, tt.uid); !errors.Is(err, tt.ownerErr) {
				t.Errorf("OwnerHome err = %v, want %v", err, tt.ownerErr)
			}
		})
	}

	if _, err := authz.MemberHome(ctx, homes, "missing", "owner"); !errors.Is(err, homestore.ErrNotFound) {
		t.Errorf("missing home err = %v, want homestore.ErrNotFound", err)
	}
}
