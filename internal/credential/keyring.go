package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "cloudsync"

// Open returns a keyring backed by the platform credential store, falling
// back to an encrypted file under ~/.config/cloudsync/credentials.
func Open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/cloudsync/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("cloudsync-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}
