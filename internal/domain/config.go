package domain

// Config is the runtime view of the node configuration shared by the
// usecases and the index repository.
type Config struct {
	// Collections this node indexes.
	Collections []string
	// ExternalCollections are indexed only for actors already known
	// locally, so unrelated repos cannot grow the store unboundedly.
	ExternalCollections []string
	// CollectionKeys maps a collection to the JSON fields promoted into
	// the key/value projection, in configuration order.
	CollectionKeys map[string][]string
	// NotificationsOnly skips all storage writes during ingestion and
	// only emits refresh signals.
	NotificationsOnly bool
}

// IndexedKeys returns the promoted keys configured for a collection.
func (c Config) IndexedKeys(collection string) []string {
	return c.CollectionKeys[collection]
}

// IsExternal reports whether a collection is externally owned.
func (c Config) IsExternal(collection string) bool {
	for _, col := range c.ExternalCollections {
		if col == collection {
			return true
		}
	}
	return false
}

// WantedCollections is the full subscribe set for the firehose.
func (c Config) WantedCollections() []string {
	out := make([]string, 0, len(c.Collections)+len(c.ExternalCollections))
	out = append(out, c.Collections...)
	out = append(out, c.ExternalCollections...)
	return out
}
