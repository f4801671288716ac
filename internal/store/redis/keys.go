package redis

import "fmt"

const rootPrefix = "mindhaven:"

// Keys builds every Redis key the service uses. Entry keys are namespaced by
// collection so several journals can share one database.
type Keys struct {
	collection string
}

func NewKeys(collection string) Keys {
	return Keys{collection: collection}
}

// Entry returns the key holding one entry document.
func (k Keys) Entry(id string) string {
	return fmt.Sprintf("%s%s:entry:%s", rootPrefix, k.collection, id)
}

// ByDate returns the sorted set of entry ids scored by creation time.
func (k Keys) ByDate() string {
	return fmt.Sprintf("%s%s:by_date", rootPrefix, k.collection)
}

// Comment returns the key caching the comment for a text hash.
func (k Keys) Comment(hash string) string {
	return rootPrefix + "comment:" + hash
}

// Session returns the key holding one UI session.
func (k Keys) Session(id string) string {
	return rootPrefix + "session:" + id
}
