package algorand

import (
	"context"
	"errors"
	"fmt"

	"eventers-ticket-ledger/logger"

	"github.com/algorand/go-algorand-sdk/client/algod"
	"github.com/algorand/go-algorand-sdk/client/algod/models"
	"github.com/algorand/go-algorand-sdk/crypto"
	"github.com/algorand/go-algorand-sdk/mnemonic"
	"github.com/algorand/go-algorand-sdk/transaction"
	"github.com/algorand/go-algorand-sdk/types"
)

const (
	validRounds   = 1000
	confirmRounds = 10
)

var ErrNotConfirmed = errors.New("transaction not confirmed")

type Account struct {
	AccountAddress     string
	SecurityPassphrase string
}

// node is the part of the algod client a payout uses.
type node interface {
	SuggestedParams(headers ...*algod.Header) (models.TransactionParams, error)
	SendRawTransaction(stx []byte, headers ...*algod.Header) (models.TransactionID, error)
	PendingTransactionInformation(transactionID string, headers ...*algod.Header) (models.Transaction, error)
	Status(headers ...*algod.Header) (models.NodeStatus, error)
	StatusAfterBlock(blockNum uint64, headers ...*algod.Header) (models.NodeStatus, error)
}

// AddressResolver maps a ledger account to the address that receives its payouts.
type AddressResolver interface {
	PayoutAddress(ctx context.Context, account string) (string, error)
}

// Payer sends host payouts from the treasury account. Without a resolver the
// ledger account id must itself be an Algorand address.
type Payer struct {
	from         *Account
	node         node
	resolver     AddressResolver
	amountFactor uint64
	minFee       uint64
}

func New(from *Account, apiAddress, apiKey string, amountFactor, minFee uint64, resolver AddressResolver) (*Payer, error) {
	headers := []*algod.Header{{Key: "X-API-Key", Value: apiKey}}
	algodClient, err := algod.MakeClientWithHeaders(apiAddress, "", headers)
	if err != nil {
		return nil, fmt.Errorf("new: error connecting to algo: %w", err)
	}
	return newPayer(from, algodClient, amountFactor, minFee, resolver), nil
}

func newPayer(from *Account, n node, amountFactor, minFee uint64, resolver AddressResolver) *Payer {
	if amountFactor == 0 {
		amountFactor = 1
	}
	return &Payer{
		from:         from,
		node:         n,
		resolver:     resolver,
		amountFactor: amountFactor,
		minFee:       minFee,
	}
}

func (p *Payer) Pay(ctx context.Context, to string, amount uint64) error {
	toAddr := to
	if p.resolver != nil {
		addr, err := p.resolver.PayoutAddress(ctx, to)
		if err != nil {
			return fmt.Errorf("pay: error resolving payout address of %s: %w", to, err)
		}
		toAddr = addr
	}
	if _, err := types.DecodeAddress(toAddr); err != nil {
		return fmt.Errorf("pay: invalid payout address %q for %s: %w", toAddr, to, err)
	}

	txParams, err := p.node.SuggestedParams()
	if err != nil {
		return fmt.Errorf("pay: error getting suggested tx params: %w", err)
	}

	microAlgos := amount * p.amountFactor
	if amount != 0 && microAlgos/amount != p.amountFactor {
		return fmt.Errorf("pay: amount %d overflows with factor %d", amount, p.amountFactor)
	}
	note := []byte(fmt.Sprintf("ticket sale payout to %s", to))
	firstValidRound := txParams.LastRound
	lastValidRound := firstValidRound + validRounds

	txn, err := transaction.MakePaymentTxnWithFlatFee(p.from.AccountAddress, toAddr, p.minFee, microAlgos,
		firstValidRound, lastValidRound, note, "", txParams.GenesisID, txParams.GenesisHash)
	if err != nil {
		return fmt.Errorf("pay: error creating transaction: %w", err)
	}

	privateKey, err := mnemonic.ToPrivateKey(p.from.SecurityPassphrase)
	if err != nil {
		return fmt.Errorf("pay: error getting private key from mnemonic: %w", err)
	}

	txID, signed, err := crypto.SignTransaction(privateKey, txn)
	if err != nil {
		return fmt.Errorf("pay: failed to sign transaction: %w", err)
	}
	logger.Debugf(ctx, "pay: signed txid: %s", txID)

	txHeaders := []*algod.Header{{Key: "Content-Type", Value: "application/x-binary"}}
	sendResponse, err := p.node.SendRawTransaction(signed, txHeaders...)
	if err != nil {
		return fmt.Errorf("pay: failed to send transaction: %w", err)
	}
	logger.Infof(ctx, "pay: submitted transaction %s paying %d to %s", sendResponse.TxID, microAlgos, toAddr)

	return p.waitForConfirmation(ctx, sendResponse.TxID)
}

// waitForConfirmation polls until txID lands in a block, for at most
// confirmRounds rounds.
func (p *Payer) waitForConfirmation(ctx context.Context, txID string) error {
	nodeStatus, err := p.node.Status()
	if err != nil {
		return fmt.Errorf("waitForConfirmation: error getting algod status: %w", err)
	}
	round := nodeStatus.LastRound

	for i := 0; i < confirmRounds; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waitForConfirmation: %s: %w", txID, err)
		}

		pt, err := p.node.PendingTransactionInformation(txID)
		if err != nil {
			logger.Warnf(ctx, "waiting for confirmation of %s: %v", txID, err)
		} else if pt.ConfirmedRound > 0 {
			logger.Infof(ctx, "transaction %s confirmed in round %d", txID, pt.ConfirmedRound)
			return nil
		}

		round++
		if _, err := p.node.StatusAfterBlock(round); err != nil {
			return fmt.Errorf("waitForConfirmation: error waiting for round %d: %w", round, err)
		}
	}
	return fmt.Errorf("waitForConfirmation: %s after %d rounds: %w", txID, confirmRounds, ErrNotConfirmed)
}

// GenerateAccount creates a fresh keypair, used to provision a treasury.
func GenerateAccount() (*Account, error) {
	account := crypto.GenerateAccount()
	passphrase, err := mnemonic.FromPrivateKey(account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generateAccount: error generating account: %w", err)
	}

	return &Account{
		AccountAddress:     account.Address.String(),
		SecurityPassphrase: passphrase,
	}, nil
}
