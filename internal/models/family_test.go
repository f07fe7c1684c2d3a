package models

import (
	"reflect"
	"testing"
)

func TestFamilyHasMember(t *testing.T) {
	f := Family{MemberIDs: []string{"u1", "u2"}}

	if !f.HasMember("u1") {
		t.Errorf("HasMember(u1) = false, want true")
	}
	if f.HasMember("u3") {
		t.Errorf("HasMember(u3) = true, want false")
	}
}

func TestFamilyRemoveMember(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		remove  string
		want    []string
		removed bool
	}{
		{
			name:    "middle member",
			members: []string{"u1", "u2", "u3"},
			remove:  "u2",
			want:    []string{"u1", "u3"},
			removed: true,
		},
		{
			name:    "last member",
			members: []string{"u1", "u2"},
			remove:  "u2",
			want:    []string{"u1"},
			removed: true,
		},
		{
			name:    "absent member",
			members: []string{"u1"},
			remove:  "u2",
			want:    []string{"u1"},
			removed: false,
		},
		{
			name:    "empty list",
			members: nil,
			remove:  "u1",
			want:    nil,
			removed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Family{MemberIDs: tt.members}
			removed := f.RemoveMember(tt.remove)
			if removed != tt.removed {
				t.Errorf("RemoveMember() = %v, want %v", removed, tt.removed)
			}
			if !reflect.DeepEqual(f.MemberIDs, tt.want) {
				t.Errorf("MemberIDs = %v, want %v", f.MemberIDs, tt.want)
			}
		})
	}
}
