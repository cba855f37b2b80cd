package models

// Group is a set of users who share expenses.
// Groups own their expenses and their settlements.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Trip to Goa").
	Name string

	// CreatedBy is the user ID of the group's creator.
	CreatedBy string

	// Members is the list of users in this group, creator included.
	Members []GroupMember

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember records one user's membership in a group.
type GroupMember struct {
	UserID   string
	JoinedAt int64
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the user IDs of all members, in membership order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}
