// Package identity canonicalises commit signatures into the author identities
// that contribution records are keyed by.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
)

// Mailmapper resolves a signature through a .mailmap.
type Mailmapper interface {
	ResolveSignature(sig gitlib.Signature) gitlib.Signature
}

// Resolver turns signatures into identities. Signatures go through the
// repository mailmap first and then through the optional people dict.
// A nil Resolver only normalises emails.
type Resolver struct {
	// dict maps a lowercased alias (email or name) to the canonical identity.
	dict map[string]string
}

// NewResolver creates a resolver from alias groups. The first entry of each
// group is the canonical identity.
func NewResolver(groups [][]string) *Resolver {
	r := &Resolver{dict: make(map[string]string)}

	for _, group := range groups {
		if len(group) == 0 {
			continue
		}

		canonical := Normalize(group[0])
		if canonical == "" {
			continue
		}

		for _, alias := range group {
			if key := Normalize(alias); key != "" {
				r.dict[key] = canonical
			}
		}
	}

	return r
}

// LoadPeopleDict reads a people dict file: one developer per line, aliases
// separated by '|', canonical identity first. Blank lines and lines starting
// with '#' are skipped.
func LoadPeopleDict(path string) (*Resolver, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load people dict: %w", err)
	}
	defer file.Close()

	var groups [][]string

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		groups = append(groups, strings.Split(line, "|"))
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read people dict %s: %w", path, err)
	}

	return NewResolver(groups), nil
}

// Len returns the number of known aliases.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}

	return len(r.dict)
}

// Resolve returns the identity of sig. mm may be nil. The second result is
// false when the signature has no usable email.
func (r *Resolver) Resolve(mm Mailmapper, sig gitlib.Signature) (string, bool) {
	if mm != nil {
		sig = mm.ResolveSignature(sig)
	}

	email := Normalize(sig.Email)

	if r != nil {
		if canonical, ok := r.dict[email]; ok && email != "" {
			return canonical, true
		}

		if canonical, ok := r.dict[Normalize(sig.Name)]; ok && sig.Name != "" {
			return canonical, true
		}
	}

	if email == "" {
		return "", false
	}

	return email, true
}

// Normalize trims and lowercases an identity.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NormalizeAll normalises every identity and drops empty ones.
func NormalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if n := Normalize(id); n != "" {
			out = append(out, n)
		}
	}

	return out
}
