package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventers-ticket-ledger/algorand"
	"eventers-ticket-ledger/config"
	"eventers-ticket-ledger/firebase"
	"eventers-ticket-ledger/ledger"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/payout"
	"eventers-ticket-ledger/store"
	"eventers-ticket-ledger/store/redisstore"
	"eventers-ticket-ledger/store/sqlstore"
	"eventers-ticket-ledger/vault"

	firebaseadmin "firebase.google.com/go"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

// Factory builds each collaborator once from configuration. Any failure is
// fatal: the service cannot run without its store, payer or identity check.
type Factory interface {
	Store(ctx context.Context) store.Store
	Payer(ctx context.Context) ledger.Payer
	Verifier(ctx context.Context) firebase.Verifier
}

type factory struct {
	storeOnce    sync.Once
	payerOnce    sync.Once
	verifierOnce sync.Once
	vaultOnce    sync.Once

	store    store.Store
	payer    ledger.Payer
	verifier firebase.Verifier
	vault    *vault.Vault
}

func NewFactory() Factory {
	return &factory{}
}

func (f *factory) Store(ctx context.Context) store.Store {
	f.storeOnce.Do(func() {
		s, err := openStore(ctx, viper.GetString(config.StoreDriver))
		if err != nil {
			logger.Fatalf(ctx, "store: could not open %s store: %+v", viper.GetString(config.StoreDriver), err)
		}
		f.store = s
	})
	return f.store
}

func openStore(ctx context.Context, driver string) (store.Store, error) {
	switch driver {
	case config.DriverRedis:
		return redisstore.New(redisstore.Options{
			Address:  viper.GetString(config.RedisAddress),
			Password: viper.GetString(config.RedisPassword),
			DB:       viper.GetInt(config.RedisDB),
			Prefix:   viper.GetString(config.RedisPrefix),
		})
	case config.DriverMySQL, config.DriverPostgres, config.DriverSQLite:
		return sqlstore.Open(ctx, driver, viper.GetString(config.StoreDSN))
	case config.DriverMemory, "":
		if path := viper.GetString(config.StoreSnapshotPath); path != "" {
			return store.OpenMemory(path)
		}
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func (f *factory) Payer(ctx context.Context) ledger.Payer {
	f.payerOnce.Do(func() {
		switch driver := viper.GetString(config.PayoutDriver); driver {
		case config.PayoutAlgorand:
			v := f.Vault(ctx)
			treasury, err := v.Treasury(ctx)
			if err != nil {
				logger.Fatalf(ctx, "payer: could not load treasury account: %+v", err)
			}
			p, err := algorand.New(
				treasury,
				viper.GetString(config.ApiAddress),
				viper.GetString(config.ApiKey),
				viper.GetUint64(config.AmountFactor),
				viper.GetUint64(config.MinFee),
				v,
			)
			if err != nil {
				logger.Fatalf(ctx, "payer: error creating algorand client: %+v", err)
			}
			f.payer = p
		case config.PayoutLog, "":
			f.payer = payout.NewLogPayer()
		default:
			logger.Fatalf(ctx, "payer: unknown payout driver %q", driver)
		}
	})
	return f.payer
}

func (f *factory) Vault(ctx context.Context) *vault.Vault {
	f.vaultOnce.Do(func() {
		v, err := vault.New(
			viper.GetString(config.VaultToken),
			viper.GetString(config.VaultUnsealKey),
			viper.GetString(config.VaultAddress),
			viper.GetString(config.TreasuryPath),
			viper.GetString(config.PayoutPath),
		)
		if err != nil {
			logger.Fatalf(ctx, "vault: error creating vault client: %+v", err)
		}
		f.vault = v
	})
	return f.vault
}

func (f *factory) Verifier(ctx context.Context) firebase.Verifier {
	f.verifierOnce.Do(func() {
		switch mode := viper.GetString(config.AuthMode); mode {
		case config.AuthJWT:
			f.verifier = firebase.NewJWTVerifier(
				viper.GetString(config.FirebaseProjectID),
				time.Duration(viper.GetInt(config.JWTOfflineInterval))*time.Second,
			)
		case config.AuthFirebase, "":
			opt := option.WithCredentialsFile(viper.GetString(config.FirebaseServiceAccountKeyPath))
			app, err := firebaseadmin.NewApp(ctx, nil, opt)
			if err != nil {
				logger.Fatalf(ctx, "verifier: error initializing firebase app: %+v", err)
			}
			f.verifier = firebase.NewAdminVerifier(app)
		default:
			logger.Fatalf(ctx, "verifier: unknown auth mode %q", mode)
		}
	})
	return f.verifier
}
