package salesforce

import (
	"os"
)

// ReadKeyFile reads a PEM encoded private key from path
func ReadKeyFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadKeyError{Path: path, Err: err}
	}
	return b, nil
}
