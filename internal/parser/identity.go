package parser

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// identityWidth is the truncated hex width of a listing identity.
const identityWidth = 12

// IdentityAssigner derives stable content-based identities. The source
// site exposes no external ID per listing, so identity is a pure
// function of (year, converter, model, title); the collision suffix
// covers near-duplicate listings that reduce to the same tuple within
// one run.
//
// An assigner is valid for exactly one run: collision state must not
// leak across runs or identities would stop being reproducible.
type IdentityAssigner struct {
	seen map[string]struct{}
}

// NewIdentityAssigner creates an assigner for a single run.
func NewIdentityAssigner() *IdentityAssigner {
	return &IdentityAssigner{seen: make(map[string]struct{})}
}

// Assign returns the identity for the given content tuple. On a
// collision with an identity already assigned this run, an integer
// suffix starting at 0 is appended to the hash input and incremented
// until the result is unique.
func (a *IdentityAssigner) Assign(year int, converter, model, title string) string {
	key := strings.Join([]string{strconv.Itoa(year), converter, model, title}, "|")

	id := hashIdentity(key)
	for i := 0; ; i++ {
		if _, taken := a.seen[id]; !taken {
			break
		}
		id = hashIdentity(key + "|" + strconv.Itoa(i))
	}

	a.seen[id] = struct{}{}
	return id
}

func hashIdentity(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:identityWidth]
}
