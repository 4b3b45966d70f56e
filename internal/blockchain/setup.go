// Package blockchain anchors punch events on a Hyperledger Fabric channel for tamper evidence.
package blockchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/models"
)

// RecordPunchTx is the chaincode function receiving anchored punches.
const RecordPunchTx = "RecordPunch"

// Contract is the part of a gateway contract the anchor submits through.
type Contract interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// Anchor submits a copy of every appended punch to the configured chaincode.
type Anchor struct {
	contract Contract
	gw       *gateway.Gateway
	sdk      *fabsdk.FabricSDK
}

// NewAnchor wraps an existing contract. Used directly by tests.
func NewAnchor(contract Contract) *Anchor {
	return &Anchor{contract: contract}
}

// Initialize populates the wallet with the configured identity and connects the gateway.
func Initialize(cfg config.FabricConfig) (*Anchor, error) {
	os.Setenv("DISCOVERY_AS_LOCALHOST", "true")

	fsWallet, err := gateway.NewFileSystemWallet(cfg.WalletDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	if err := PopulateWallet(fsWallet, cfg.OrgName, cfg.UserName, cfg.UserCertPath, cfg.UserKeyDir); err != nil {
		return nil, fmt.Errorf("failed to populate wallet for %s: %w", cfg.UserName, err)
	}

	sdk, err := fabsdk.New(fabconfig.FromFile(filepath.Clean(cfg.ConnectionProfile)))
	if err != nil {
		return nil, fmt.Errorf("failed to create fabsdk instance: %w", err)
	}

	gw, err := gateway.Connect(
		gateway.WithSDK(sdk),
		gateway.WithIdentity(fsWallet, cfg.UserName),
	)
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network, err := gw.GetNetwork(cfg.ChannelName)
	if err != nil {
		gw.Close()
		sdk.Close()
		return nil, fmt.Errorf("failed to get network: %w", err)
	}

	return &Anchor{
		contract: network.GetContract(cfg.ChaincodeName),
		gw:       gw,
		sdk:      sdk,
	}, nil
}

// AnchorPunch submits the punch and waits for commit or ctx expiry.
// The gateway call itself cannot be cancelled; it finishes in the background.
func (a *Anchor) AnchorPunch(ctx context.Context, entry models.PunchLog) error {
	done := make(chan error, 1)
	go func() {
		_, err := a.contract.SubmitTransaction(RecordPunchTx,
			entry.ID.Hex(),
			entry.DriverID,
			string(entry.Type),
			string(entry.Method),
			entry.Timestamp.UTC().Format(time.RFC3339Nano),
		)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("submit %s for punch %s: %w", RecordPunchTx, entry.ID.Hex(), err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Anchor) Close() {
	if a.gw != nil {
		a.gw.Close()
	}
	if a.sdk != nil {
		a.sdk.Close()
	}
}
