package domain

import (
	"sort"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
)

// CanInvite reports whether a member holding r may invite others or issue invite tokens.
func (r Role) CanInvite() bool {
	return r == RoleOwner || r == RoleEditor
}

// Membership is one entry of a plan's membership map.
type Membership struct {
	Role     Role
	JoinedAt time.Time
}

// UnionMemberIDs returns existing with duplicates removed (first occurrence wins)
// and add appended when it is not already present.
func UnionMemberIDs(existing []UserID, add UserID) []UserID {
	out := make([]UserID, 0, len(existing)+1)
	seen := make(map[UserID]struct{}, len(existing)+1)
	for _, id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if _, ok := seen[add]; !ok {
		out = append(out, add)
	}
	return out
}

// MissingMemberIDs returns the membership-map keys that ids does not contain,
// in MemberIDsFromMembers order. Entries of ids without a membership are ignored.
func MissingMemberIDs(members map[UserID]Membership, ids []UserID) []UserID {
	have := make(map[UserID]struct{}, len(ids))
	for _, id := range ids {
		have[id] = struct{}{}
	}
	var missing []UserID
	for _, id := range MemberIDsFromMembers(members) {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// MemberIDsFromMembers derives the member-id list from the membership map.
// Order: JoinedAt ascending, then id ascending.
func MemberIDsFromMembers(members map[UserID]Membership) []UserID {
	out := make([]UserID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := members[out[i]], members[out[j]]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return out[i] < out[j]
	})
	return out
}
