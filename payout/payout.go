// Package payout holds Payer implementations that do not touch a network.
package payout

import (
	"context"
	"sync"

	"eventers-ticket-ledger/logger"

	"github.com/sirupsen/logrus"
)

// LogPayer records payouts in the log only. It is meant for development
// deployments without a treasury.
type LogPayer struct {
	mu    sync.Mutex
	total map[string]uint64
}

func NewLogPayer() *LogPayer {
	return &LogPayer{total: make(map[string]uint64)}
}

func (p *LogPayer) Pay(ctx context.Context, to string, amount uint64) error {
	p.mu.Lock()
	p.total[to] += amount
	total := p.total[to]
	p.mu.Unlock()

	logger.WithFields(ctx, logrus.Fields{
		"payee":  to,
		"amount": amount,
		"total":  total,
	}).Info("payout recorded")
	return nil
}

// Total returns everything paid to account since start.
func (p *LogPayer) Total(account string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total[account]
}
