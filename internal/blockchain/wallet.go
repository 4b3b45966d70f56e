package blockchain

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// PopulateWallet stores the X.509 identity under userName unless it is already present.
func PopulateWallet(wallet *gateway.Wallet, orgName, userName, certPath, keyDir string) error {
	if wallet.Exists(userName) {
		return nil
	}

	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return fmt.Errorf("read certificate: %w", err)
	}

	keyPath, err := findPrivateKey(keyDir)
	if err != nil {
		return err
	}
	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	identity := gateway.NewX509Identity(orgName+"MSP", string(cert), string(key))
	return wallet.Put(userName, identity)
}

// findPrivateKey returns the first regular file under dir (the MSP keystore layout).
func findPrivateKey(dir string) (string, error) {
	keyPath := ""
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if keyPath == "" && !d.IsDir() {
			keyPath = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if keyPath == "" {
		return "", fmt.Errorf("no private key found in directory %s", dir)
	}
	return keyPath, nil
}
