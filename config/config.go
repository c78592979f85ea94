package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	Port            = "server.port"
	ShutdownTimeout = "server.shutdown_timeout"

	LogLevel  = "log.level"
	LogFormat = "log.format"

	StoreDriver       = "store.driver"
	StoreDSN          = "store.dsn"
	StoreSnapshotPath = "store.snapshot_path"

	RedisAddress  = "redis.address"
	RedisPassword = "redis.password"
	RedisDB       = "redis.db"
	RedisPrefix   = "redis.prefix"

	AuthMode                      = "auth.mode"
	FirebaseProjectID             = "firebase.project_id"
	FirebaseServiceAccountKeyPath = "firebase.service_account_key_path"
	JWTOfflineInterval            = "firebase.jwt_offline_interval"

	PayoutDriver = "payout.driver"

	ApiAddress   = "algorand.api_address"
	ApiKey       = "algorand.api_key"
	AmountFactor = "algorand.amount_factor"
	MinFee       = "algorand.min_fee"

	VaultAddress   = "vault.address"
	VaultToken     = "vault.token"
	VaultUnsealKey = "vault.unseal_key"
	TreasuryPath   = "vault.treasury_path"
	PayoutPath     = "vault.payout_path"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"

	PayoutLog      = "log"
	PayoutAlgorand = "algorand"
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault(Port, ":9000")
	viper.SetDefault(ShutdownTimeout, 10*time.Second)
	viper.SetDefault(LogLevel, "info")
	viper.SetDefault(LogFormat, "text")
	viper.SetDefault(StoreDriver, DriverMemory)
	viper.SetDefault(RedisAddress, "localhost:6379")
	viper.SetDefault(RedisPrefix, "ledger:")
	viper.SetDefault(AuthMode, AuthFirebase)
	viper.SetDefault(JWTOfflineInterval, 120)
	viper.SetDefault(PayoutDriver, PayoutLog)
	viper.SetDefault(AmountFactor, 1)
	viper.SetDefault(MinFee, 1000)
	viper.SetDefault(TreasuryPath, "secret/ledger/treasury")
	viper.SetDefault(PayoutPath, "secret/ledger/payout")
}
