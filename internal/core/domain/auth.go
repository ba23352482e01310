package domain

import "time"

// APIKey authorises a caller of the HTTP API. Only the SHA-256 of the token
// is kept. CreatedAt and UpdatedAt are owned by the key store.
type APIKey struct {
	TokenHash string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor is the name recorded on audit and outbox events for mutations made
// with this key.
func (k APIKey) Actor() string {
	if k.Name == "" {
		return "api-key"
	}
	return k.Name
}
