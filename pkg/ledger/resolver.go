package ledger

// SharedLedger groups several user identities under one ledger id. Membership
// is a flat set with one designated owner; there is no permission hierarchy.
type SharedLedger struct {
	ID      string   `json:"id" yaml:"id"`
	Owner   string   `json:"owner" yaml:"owner"`
	Members []string `json:"members" yaml:"members"`
}

// Contains reports whether the user belongs to the shared ledger. The owner
// is always a member.
func (s SharedLedger) Contains(userID string) bool {
	if s.Owner == userID {
		return true
	}
	for _, m := range s.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// MembershipSource exposes the current shared-ledger membership state.
// Changing membership happens elsewhere; the resolver only ever reads.
type MembershipSource interface {
	SharedLedgers() []SharedLedger
}

// Resolver maps a user identity to the ledger id their operations target.
type Resolver struct {
	memberships MembershipSource
}

func NewResolver(memberships MembershipSource) *Resolver {
	return &Resolver{memberships: memberships}
}

// Resolve returns the shared ledger's id when the user belongs to exactly one
// shared ledger, and the user's own id otherwise. Pure lookup, no side
// effects.
func (r *Resolver) Resolve(userID string) string {
	if r.memberships == nil {
		return userID
	}
	var match string
	count := 0
	for _, shared := range r.memberships.SharedLedgers() {
		if shared.Contains(userID) {
			match = shared.ID
			count++
		}
	}
	if count == 1 {
		return match
	}
	return userID
}
