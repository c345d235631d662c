// Package signature decodes and constructs Git commit author/committer
// signatures. Commit messages and signature lines are stored as raw bytes
// in the object database under a declared encoding; this package re-derives
// a usable Go string per that encoding rather than assuming UTF-8, and
// constructs the default committer signature used when the transaction
// engine synthesizes new commits.
package signature

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/aelgogary/stgit/internal/stackerrors"
)

// Signature is a decoded author or committer identity.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String renders the signature in raw git commit-header form:
// "Name <email> <unix-seconds> <+HHMM>".
func (s Signature) String() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, s.When.Unix(), sign, hh, mm)
}

// Options carries explicit overrides for commit synthesis, corresponding to
// the original tool's --author-date / --committer-date style flags. An
// override here always wins over config/environment defaults; command-line
// parsing of these flags is out of this module's scope, but the semantic
// that an explicit override takes precedence is a core concern and lives
// here rather than in a CLI layer.
type Options struct {
	AuthorDateOverride    *time.Time
	CommitterDateOverride *time.Time
}

// Apply overrides the date fields of sig per opts, returning the possibly
// modified signature.
func (o Options) Apply(sig Signature, isCommitter bool) Signature {
	if isCommitter && o.CommitterDateOverride != nil {
		sig.When = *o.CommitterDateOverride
	} else if !isCommitter && o.AuthorDateOverride != nil {
		sig.When = *o.AuthorDateOverride
	}
	return sig
}

// knownEncodings maps a commit's declared "encoding" header value (as it
// appears on the commit object, case-insensitively) to a decoder able to
// turn its raw signature/message bytes into valid UTF-8. The empty string
// means "no encoding header", which per the git convention means UTF-8.
var knownEncodings = map[string]func(raw string) (string, error){
	"":        decodeUTF8,
	"utf-8":   decodeUTF8,
	"utf8":    decodeUTF8,
	"iso-8859-1": decodeLatin1,
	"latin1":     decodeLatin1,
}

func decodeUTF8(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("declared utf-8 but contains invalid byte sequences")
	}
	return raw, nil
}

func decodeLatin1(raw string) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		return "", fmt.Errorf("decoding iso-8859-1: %w", err)
	}
	return out, nil
}

// DecodeRaw decodes a raw "Name <email> unixtime zone" signature line per
// the commit's declared encoding. Unknown encodings are a fatal error: the
// core must propagate this failure rather than silently guessing.
func DecodeRaw(raw, encoding string) (Signature, error) {
	decode, ok := knownEncodings[strings.ToLower(strings.TrimSpace(encoding))]
	if !ok {
		return Signature{}, fmt.Errorf("%w: %q", stackerrors.ErrUnsupportedEncoding, encoding)
	}
	text, err := decode(raw)
	if err != nil {
		return Signature{}, err
	}
	return parseRaw(text)
}

// parseRaw splits "Name <email> unixtime zone" into a Signature.
func parseRaw(line string) (Signature, error) {
	open := strings.LastIndex(line, "<")
	closeIdx := strings.LastIndex(line, ">")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return Signature{}, fmt.Errorf("malformed signature line: %q", line)
	}
	name := strings.TrimSpace(line[:open])
	email := strings.TrimSpace(line[open+1 : closeIdx])
	rest := strings.Fields(strings.TrimSpace(line[closeIdx+1:]))
	if len(rest) != 2 {
		return Signature{}, fmt.Errorf("malformed signature timestamp: %q", line)
	}
	sec, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed signature timestamp %q: %w", rest[0], err)
	}
	loc, err := parseZone(rest[1])
	if err != nil {
		return Signature{}, err
	}
	return Signature{Name: name, Email: email, When: time.Unix(sec, 0).In(loc)}, nil
}

func parseZone(z string) (*time.Location, error) {
	if len(z) != 5 || (z[0] != '+' && z[0] != '-') {
		return nil, fmt.Errorf("malformed timezone offset: %q", z)
	}
	hh, err := strconv.Atoi(z[1:3])
	if err != nil {
		return nil, fmt.Errorf("malformed timezone offset: %q", z)
	}
	mm, err := strconv.Atoi(z[3:5])
	if err != nil {
		return nil, fmt.Errorf("malformed timezone offset: %q", z)
	}
	offset := hh*3600 + mm*60
	if z[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(z, offset), nil
}

// ConfigSource is the narrow slice of repository configuration needed to
// build a default committer. It is supplied by the stupid capability layer
// (config loading proper is out of this module's scope).
type ConfigSource interface {
	Get(key string) (string, bool)
}

// DefaultCommitter builds the committer signature used when the
// transaction engine synthesizes a new commit: user.name/user.email from
// config, "now" as the timestamp.
func DefaultCommitter(cfg ConfigSource) (Signature, error) {
	name, ok := cfg.Get("user.name")
	if !ok || name == "" {
		return Signature{}, fmt.Errorf("user.name is not configured")
	}
	email, ok := cfg.Get("user.email")
	if !ok || email == "" {
		return Signature{}, fmt.Errorf("user.email is not configured")
	}
	return Signature{Name: name, Email: email, When: time.Now()}, nil
}
