package models

// Snapshot is the consistent view of one institution's scheduling inputs, read in
// a single transaction so concurrent edits cannot tear the inputs of a run.
type Snapshot struct {
	Institution Institution
	Activities  []Activity
	Rooms       []Room
	Groups      []Group
}
