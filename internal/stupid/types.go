// Package stupid is the narrow capability layer the stack transaction core
// is built on: tree reads, three-way merges, index manipulation, mergetool
// invocation, note copying, and status enumeration. The core only ever
// talks to the Context interface, never to go-git or the git binary
// directly, so it can be driven in tests by an in-memory fake.
//
// The name matches the affectionate nickname this layer has in the tool
// this module's design is grounded on: the "stupid" layer, because it does
// not know anything about patches or stacks, only about Git plumbing.
package stupid

import (
	"fmt"
	"strings"

	"github.com/aelgogary/stgit/internal/signature"
)

// OID is an opaque object id (a commit or a tree). It is a hex string under
// the hood so both a go-git-backed implementation and an in-memory fake can
// produce and compare them cheaply.
type OID string

// IsZero reports whether o is the zero value (no object).
func (o OID) IsZero() bool {
	return o == ""
}

func (o OID) String() string {
	return string(o)
}

// Commit is the subset of a commit object the transaction engine needs:
// its tree, its parents, and enough of its signature lines to re-derive
// author/committer identities per the commit's declared encoding.
type Commit struct {
	ID            OID
	TreeID        OID
	ParentIDs     []OID
	Message       string
	AuthorRaw     string
	CommitterRaw  string
	Encoding      string
}

// Parent returns the nth parent's id. ok is false if there is no such
// parent (e.g. asking for parent 0 of a root commit).
func (c Commit) Parent(n int) (OID, bool) {
	if n < 0 || n >= len(c.ParentIDs) {
		return "", false
	}
	return c.ParentIDs[n], true
}

// AuthorStrict decodes the commit's author line per its declared encoding.
func (c Commit) AuthorStrict() (signature.Signature, error) {
	return signature.DecodeRaw(c.AuthorRaw, c.Encoding)
}

// CommitterStrict decodes the commit's committer line per its declared encoding.
func (c Commit) CommitterStrict() (signature.Signature, error) {
	return signature.DecodeRaw(c.CommitterRaw, c.Encoding)
}

// StatusResult is the outcome of enumerating worktree/index status against
// an optional pathspec.
type StatusResult struct {
	Conflicts []string
}

// CheckConflicts returns an error naming the conflicting paths, or nil if
// there are none.
func (s StatusResult) CheckConflicts() error {
	if len(s.Conflicts) == 0 {
		return nil
	}
	return fmt.Errorf("conflicting paths: %s", strings.Join(s.Conflicts, ", "))
}

// Config is the narrow read-only configuration surface the capability
// layer exposes to the core (e.g. stgit.autoimerge, user.name/user.email).
// It also satisfies signature.ConfigSource.
type Config interface {
	Get(key string) (string, bool)
	GetBool(key string, def bool) bool
}

// mapConfig is a trivial in-memory Config, used by the fake capability
// layer and as a building block for the real one.
type mapConfig map[string]string

func (m mapConfig) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapConfig) GetBool(key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	default:
		return def
	}
}

// NewMapConfig builds a Config backed by a plain map.
func NewMapConfig(m map[string]string) Config {
	return mapConfig(m)
}
