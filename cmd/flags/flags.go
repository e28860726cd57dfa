// Package flags holds the cli flag definitions and setup helpers shared by
// the relay binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/privibase/relay/common"
	"github.com/privibase/relay/httpserver"
)

// SetupLogger builds the process logger from the common logging flags.
func SetupLogger(cCtx *cli.Context) *slog.Logger {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer assembles the HTTP server config from the common flags.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// Required credentials. The process refuses to start without them.

var PrivateKeyFlag = &cli.StringFlag{
	Name:     "private-key",
	EnvVars:  []string{"PRIVATE_KEY"},
	Required: true,
	Usage:    "hex-encoded signing key authenticating the relay with the notification provider",
}

var BotTokenFlag = &cli.StringFlag{
	Name:     "telegram-bot-token",
	EnvVars:  []string{"TELEGRAM_BOT_TOKEN"},
	Required: true,
	Usage:    "Telegram bot authentication token for the registration interface",
}

var ContractAddrFlag = &cli.StringFlag{
	Name:     "contract-address",
	EnvVars:  []string{"CONTRACT_ADDRESS"},
	Required: true,
	Usage:    "monitored contract emitting ConfidentialAlertTriggered events",
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	EnvVars: []string{"RPC_ADDR"},
	Value:   "https://sepolia-rollup.arbitrum.io/rpc",
	Usage:   "address to connect to RPC",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:3000",
	Usage: "address to listen on for the webhook API",
}

var StorageURIFlag = &cli.StringFlag{
	Name:  "storage-uri",
	Value: "file://data/subscriptions.json",
	Usage: "snapshot backend URI for subscription persistence (file://, s3://, vault://, ipfs://)",
}

var ProviderAddrFlag = &cli.StringFlag{
	Name:  "provider-addr",
	Value: "",
	Usage: "notification provider endpoint (empty selects the public gateway)",
}

var NetworkNameFlag = &cli.StringFlag{
	Name:  "network-name",
	Value: "Arbitrum Sepolia",
	Usage: "chain name rendered in alert messages",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "privibase-relay",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
