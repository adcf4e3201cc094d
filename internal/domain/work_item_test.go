package domain

import "testing"

func TestIsValidTransition(t *testing.T) {
	cases := []struct {
		current WorkItemStatus
		next    WorkItemStatus
		want    bool
	}{
		{WorkItemStatusUnclaimed, WorkItemStatusClaimed, true},
		{WorkItemStatusClaimed, WorkItemStatusResolved, true},
		{WorkItemStatusClaimed, WorkItemStatusUnclaimed, true},
		{WorkItemStatusResolved, WorkItemStatusUnclaimed, true},
		{WorkItemStatusUnclaimed, WorkItemStatusResolved, false},
		{WorkItemStatusResolved, WorkItemStatusClaimed, false},
		{WorkItemStatusUnclaimed, WorkItemStatusUnclaimed, false},
	}
	for _, tc := range cases {
		if got := IsValidTransition(tc.current, tc.next); got != tc.want {
			t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tc.current, tc.next, got, tc.want)
		}
	}
}

func TestAutoAssignable(t *testing.T) {
	cases := []struct {
		name      string
		moderator *Moderator
		want      bool
	}{
		{"active standard", &Moderator{Role: RoleStandard, Active: true}, true},
		{"inactive standard", &Moderator{Role: RoleStandard, Active: false}, false},
		{"active elevated", &Moderator{Role: RoleElevated, Active: true}, false},
		{"active superuser", &Moderator{Role: RoleSuperuser, Active: true}, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := tc.moderator.AutoAssignable(); got != tc.want {
			t.Errorf("%s: AutoAssignable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
