package models

// Chain is one referral tree registered in the chain directory
// Maps to: chains collection / chains table
type Chain struct {
	ID string `db:"id" json:"_id"`

	// Unique within the registry; also names the chain's node collection
	Name string `db:"name" json:"name"`

	// Capital contributed per member
	SeedAmount float64 `db:"seed_amount" json:"seedAmount"`

	// Reference to the root node inside the chain's own node collection
	RootNode string `db:"root_node" json:"rootNode"`

	// Computed at query time: root.totalMembers * SeedAmount
	Investment float64 `db:"-" json:"investment"`
}

