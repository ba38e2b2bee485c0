// Package storage provides the local key-value store the state containers
// persist into. Values are flat strings or JSON blobs under fixed keys;
// the last writer wins.
package storage

// Fixed keys used by the state containers.
const (
	KeyAuthToken     = "auth_token"
	KeyLanguage      = "language"
	KeyHasSeenIntro  = "hasSeenIntro"
	KeyNotifications = "notifications"
	KeyConversations = "conversations"
	KeyElderProfile  = "elder_profile"
)

type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes a key; deleting an absent key is not an error.
	Delete(key string) error
}
