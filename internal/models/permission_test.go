package models

import "testing"

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{in: "viewer", want: PermissionViewer},
		{in: " Admin ", want: PermissionAdmin},
		{in: "3", want: PermissionManager},
		{in: "0", want: PermissionNone},
		{in: "5", wantErr: true},
		{in: "owner", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePermission(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParsePermission(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePermission(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePermission(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPermissionAllows(t *testing.T) {
	if !PermissionAdmin.Allows(PermissionViewer) {
		t.Fatal("admin should satisfy viewer")
	}
	if PermissionEditor.Allows(PermissionManager) {
		t.Fatal("editor should not satisfy manager")
	}
	if !PermissionManager.Allows(PermissionManager) {
		t.Fatal("equal level should be allowed")
	}
}
