// Package cache holds the in-process caches used while fetching documents.
// A cache lives for one processing pass.
package cache

// Cache is a keyed store of fetched values.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}
