package models

// Node is a member position inside a chain's tree.
// Ownership is by containment: a node belongs to the chain whose
// collection stores it, there is no chain foreign key.
type Node struct {
	ID string `db:"id" json:"_id"`

	// Unique within its chain only
	NodeID int64 `db:"node_id" json:"nodeId"`

	// Size of the subtree rooted here (root holds the chain total)
	TotalMembers int64 `db:"total_members" json:"totalMembers"`

	User     string   `db:"user_id" json:"user,omitempty"`
	Parent   string   `db:"parent" json:"parent,omitempty"`
	Children []string `db:"children" json:"children,omitempty"`
}

// User is an entry of the user directory
type User struct {
	ID       string `db:"id" json:"_id"`
	UserName string `db:"user_name" json:"userName"`
}

// Row is a federated result row. It only exists for the duration of one
// query: a node, the chain it was read from, and the joined user when the
// plan asked for one.
type Row struct {
	Node
	Chain    string `json:"chain"`
	UserData *User  `json:"userData,omitempty"`
}
