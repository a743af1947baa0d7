package valkey

import "github.com/redis/rueidis"

// NewStoreForTest wraps an injected rueidis client, typically a rueidis/mock one.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
