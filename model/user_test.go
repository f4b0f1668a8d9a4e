package model

import "testing"

func TestHasPermission(t *testing.T) {
	user := User{
		Role:        RoleClient,
		Permissions: "shipments.view, invoices.view",
	}
	if !user.HasPermission(PermShipmentsView) {
		t.Fatal("explicit grant must pass")
	}
	if !user.HasPermission(PermInvoicesView) {
		t.Fatal("grant with surrounding whitespace must pass")
	}
	if user.HasPermission(PermPaymentsCreate) {
		t.Fatal("missing grant must fail")
	}
}

func TestPrimaryContactHasEveryPermission(t *testing.T) {
	user := User{
		Role:             RoleClient,
		IsPrimaryContact: true,
		Permissions:      "",
	}
	for _, perm := range []string{
		PermShipmentsView, PermShipmentsCreate, PermInvoicesView,
		PermPaymentsCreate, PermPoliciesView,
	} {
		if !user.HasPermission(perm) {
			t.Fatalf("primary contact must hold %s", perm)
		}
	}
}

func TestPermissionList(t *testing.T) {
	user := User{Permissions: "shipments.view,policies.view"}
	perms := user.PermissionList()
	if len(perms) != 2 || perms[0] != PermShipmentsView || perms[1] != PermPoliciesView {
		t.Fatalf("unexpected permission list: %v", perms)
	}
	if (&User{}).PermissionList() != nil {
		t.Fatal("empty permission set must yield nil")
	}
}
