package resource

import "strings"

// UserPath addresses a node in one owner's namespace: an owner identity plus
// a slash-delimited path below the owner's root folder. It is the unit of
// addressing for every engine operation.
//
// The zero segments path addresses the root folder itself. Paths are always
// relative to the owner's root; the root folder's persisted name (the owner's
// user ID) never appears in the path string.
type UserPath struct {
	owner *User
	parts []string
}

// NewUserPath parses a slash-delimited path for the given owner.
//
// Leading and trailing slashes are ignored. Empty segments ("a//b") and the
// "." / ".." pseudo-segments are rejected with an invalid-path error.
func NewUserPath(owner *User, path string) (UserPath, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return UserPath{owner: owner}, nil
	}
	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return UserPath{}, ErrInvalidPath(path)
		}
	}
	return UserPath{owner: owner, parts: parts}, nil
}

// RootOf returns the path of the owner's root folder.
func RootOf(owner *User) UserPath {
	return UserPath{owner: owner}
}

// Owner returns the identity the path is scoped to.
func (p UserPath) Owner() *User {
	return p.owner
}

// RootName returns the persisted name of the owner's root folder.
func (p UserPath) RootName() string {
	return p.owner.ID
}

// IsRoot reports whether the path addresses the root folder itself.
func (p UserPath) IsRoot() bool {
	return len(p.parts) == 0
}

// Name returns the final path segment, or "" for the root path.
func (p UserPath) Name() string {
	if len(p.parts) == 0 {
		return ""
	}
	return p.parts[len(p.parts)-1]
}

// Parts returns the path segments from root to leaf.
func (p UserPath) Parts() []string {
	return p.parts
}

// Parent returns the path with the final segment removed. The parent of the
// root path is the root path itself.
func (p UserPath) Parent() UserPath {
	if len(p.parts) == 0 {
		return p
	}
	return UserPath{owner: p.owner, parts: p.parts[:len(p.parts)-1]}
}

// Parents returns every ancestor path ordered nearest-to-root first,
// starting at the root path and ending at the immediate parent. Used by
// mkdir-p style creation to walk the ancestor chain top-down.
func (p UserPath) Parents() []UserPath {
	out := make([]UserPath, 0, len(p.parts))
	for i := 0; i < len(p.parts); i++ {
		out = append(out, UserPath{owner: p.owner, parts: p.parts[:i]})
	}
	return out
}

// Join returns the path extended by one segment.
func (p UserPath) Join(name string) UserPath {
	parts := make([]string, len(p.parts), len(p.parts)+1)
	copy(parts, p.parts)
	return UserPath{owner: p.owner, parts: append(parts, name)}
}

// String renders the path below the owner's root, with a leading slash.
func (p UserPath) String() string {
	return "/" + strings.Join(p.parts, "/")
}
