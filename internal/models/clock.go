package models

// ReplicaClock represents the highest counter this store has recorded
// for a single replica.
type ReplicaClock struct {
	ReplicaID string `db:"replica_id"`
	Counter   uint64 `db:"counter"`
}
