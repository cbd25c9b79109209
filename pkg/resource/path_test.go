package resource

import "testing"

func testOwner() *User {
	return &User{ID: "user-1", Username: "alice"}
}

func TestNewUserPathParsing(t *testing.T) {
	owner := testOwner()

	tests := []struct {
		name  string
		input string
		parts []string
	}{
		{"simple", "docs", []string{"docs"}},
		{"nested", "docs/work/report.txt", []string{"docs", "work", "report.txt"}},
		{"leading slash", "/docs/work", []string{"docs", "work"}},
		{"trailing slash", "docs/work/", []string{"docs", "work"}},
		{"root", "", nil},
		{"root slash", "/", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path, err := NewUserPath(owner, tc.input)
			if err != nil {
				t.Fatalf("NewUserPath(%q) failed: %v", tc.input, err)
			}
			got := path.Parts()
			if len(got) != len(tc.parts) {
				t.Fatalf("expected %d parts, got %d (%v)", len(tc.parts), len(got), got)
			}
			for i := range got {
				if got[i] != tc.parts[i] {
					t.Errorf("part %d: expected %q, got %q", i, tc.parts[i], got[i])
				}
			}
		})
	}
}

func TestNewUserPathRejectsBadSegments(t *testing.T) {
	owner := testOwner()

	for _, input := range []string{"a//b", "a/./b", "a/../b", "..", "."} {
		if _, err := NewUserPath(owner, input); err == nil {
			t.Errorf("NewUserPath(%q) should have failed", input)
		} else if !HasCode(err, CodeInvalidPath) {
			t.Errorf("NewUserPath(%q): expected invalid-path error, got %v", input, err)
		}
	}
}

func TestUserPathNavigation(t *testing.T) {
	owner := testOwner()
	path, err := NewUserPath(owner, "a/b/c")
	if err != nil {
		t.Fatalf("NewUserPath failed: %v", err)
	}

	if path.IsRoot() {
		t.Error("a/b/c should not be root")
	}
	if path.Name() != "c" {
		t.Errorf("expected name c, got %q", path.Name())
	}
	if path.String() != "/a/b/c" {
		t.Errorf("expected /a/b/c, got %q", path.String())
	}

	parent := path.Parent()
	if parent.String() != "/a/b" {
		t.Errorf("expected parent /a/b, got %q", parent.String())
	}

	root := RootOf(owner)
	if !root.IsRoot() {
		t.Error("RootOf should be root")
	}
	if root.Parent().String() != root.String() {
		t.Error("parent of root should be root")
	}
	if root.RootName() != owner.ID {
		t.Errorf("root folder name should be the owner ID, got %q", root.RootName())
	}

	joined := root.Join("a").Join("b").Join("c")
	if joined.String() != path.String() {
		t.Errorf("Join chain: expected %q, got %q", path.String(), joined.String())
	}
}

func TestUserPathParents(t *testing.T) {
	owner := testOwner()
	path, err := NewUserPath(owner, "a/b/c")
	if err != nil {
		t.Fatalf("NewUserPath failed: %v", err)
	}

	parents := path.Parents()
	want := []string{"/", "/a", "/a/b"}
	if len(parents) != len(want) {
		t.Fatalf("expected %d ancestors, got %d", len(want), len(parents))
	}
	for i, p := range parents {
		if p.String() != want[i] {
			t.Errorf("ancestor %d: expected %q, got %q", i, want[i], p.String())
		}
	}
}

func TestUnionUsernames(t *testing.T) {
	got := UnionUsernames([]string{"a", "b"}, []string{"b", "c", "a", "d"})
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
