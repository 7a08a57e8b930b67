package transport

import (
	"context"
	"strings"

	"github.com/unkn0wn-root/netgate/kvstore"
)

// Credentials supplies the Authorization header value for outgoing calls.
// An empty value sends no header.
type Credentials interface {
	Authorization(ctx context.Context) (string, error)
}

// DefaultTokenKey is where the CLI stores the API token.
const DefaultTokenKey = "auth/token"

// StoreCredentials reads a token from a kvstore.Store on every call. The
// token is never refreshed or rotated here.
type StoreCredentials struct {
	Store  kvstore.Store
	Key    string // "" => DefaultTokenKey
	Scheme string // "" => "Bearer"
}

var _ Credentials = StoreCredentials{}

func (c StoreCredentials) Authorization(ctx context.Context) (string, error) {
	key := c.Key
	if key == "" {
		key = DefaultTokenKey
	}
	b, ok, err := c.Store.Get(ctx, key)
	if err != nil || !ok {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", nil
	}
	scheme := c.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}
	return scheme + " " + token, nil
}
