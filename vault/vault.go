package vault

import (
	"context"
	"errors"
	"fmt"
	"path"

	"eventers-ticket-ledger/algorand"

	"github.com/hashicorp/vault/api"
)

var ErrSecretNotFound = errors.New("secret not found")

// Vault reads the treasury signing account and host payout addresses.
// Secrets live in a kv mount: the treasury at TreasuryPath with fields
// address and mnemonic, each host at PayoutPath/<account> with field address.
type Vault struct {
	TreasuryPath string
	PayoutPath   string
	*api.Client
}

func New(token, unsealKey, address, treasuryPath, payoutPath string) (*Vault, error) {
	config := &api.Config{
		Address: address,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("new: error initializing vault: %w", err)
	}

	client.SetToken(token)

	s := client.Sys()
	status, err := s.SealStatus()
	if err != nil {
		return nil, fmt.Errorf("new: error getting seal status: %w", err)
	}

	if status.Sealed {
		if unsealKey == "" {
			return nil, fmt.Errorf("new: vault is sealed and no unseal key is configured")
		}
		unsealResponse, err := s.Unseal(unsealKey)
		if err != nil {
			return nil, fmt.Errorf("new: error getting unseal response: %w", err)
		}
		if unsealResponse.Sealed {
			return nil, fmt.Errorf("new: vault unseal unsuccessful")
		}
	}

	return &Vault{TreasuryPath: treasuryPath, PayoutPath: payoutPath, Client: client}, nil
}

// Treasury returns the account payouts are sent from.
func (v *Vault) Treasury(ctx context.Context) (*algorand.Account, error) {
	data, err := v.read(ctx, v.TreasuryPath)
	if err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}

	address, err := field(data, "address")
	if err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}
	passphrase, err := field(data, "mnemonic")
	if err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}

	return &algorand.Account{AccountAddress: address, SecurityPassphrase: passphrase}, nil
}

// PayoutAddress implements algorand.AddressResolver.
func (v *Vault) PayoutAddress(ctx context.Context, account string) (string, error) {
	data, err := v.read(ctx, path.Join(v.PayoutPath, account))
	if err != nil {
		return "", fmt.Errorf("payoutAddress: %w", err)
	}
	address, err := field(data, "address")
	if err != nil {
		return "", fmt.Errorf("payoutAddress: %s: %w", account, err)
	}
	return address, nil
}

func (v *Vault) read(ctx context.Context, p string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	secret, err := v.Logical().Read(p)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", p, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%s: %w", p, ErrSecretNotFound)
	}
	return secret.Data, nil
}

func field(data map[string]interface{}, name string) (string, error) {
	v, ok := data[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("field %s: %w", name, ErrSecretNotFound)
	}
	return v, nil
}
