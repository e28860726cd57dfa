package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/privibase/relay/chatbot"
	"github.com/privibase/relay/cmd/flags"
	"github.com/privibase/relay/common"
	"github.com/privibase/relay/httpserver"
	"github.com/privibase/relay/listener"
	"github.com/privibase/relay/metrics"
	"github.com/privibase/relay/notifier"
	"github.com/privibase/relay/registration"
	"github.com/privibase/relay/storage"
	"github.com/privibase/relay/subscriptions"
)

func main() {
	app := &cli.App{
		Name:  "relayd",
		Usage: "Relay on-chain and hardware alerts to the confidential notification provider",
		Flags: append([]cli.Flag{
			flags.PrivateKeyFlag,
			flags.BotTokenFlag,
			flags.ContractAddrFlag,
			flags.RpcAddrFlag,
			flags.ListenAddrFlag,
			flags.StorageURIFlag,
			flags.ProviderAddrFlag,
			flags.NetworkNameFlag,
		}, flags.CommonFlags...),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	contractHex := cCtx.String(flags.ContractAddrFlag.Name)
	if !ethcommon.IsHexAddress(contractHex) {
		logger.Error("Invalid contract address", "address", contractHex)
		return fmt.Errorf("invalid contract address: %s", contractHex)
	}
	contractAddr := ethcommon.HexToAddress(contractHex)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscription registry over its snapshot backend
	storageFactory := storage.NewSnapshotBackendFactory(logger)
	backend, err := storageFactory.BackendFor(cCtx.String(flags.StorageURIFlag.Name))
	if err != nil {
		logger.Error("Failed to create snapshot backend", "err", err)
		return err
	}
	store := subscriptions.NewStore(backend, logger)
	store.Load(ctx)

	// Dispatch client for the notification provider
	notifyClient, err := notifier.NewWeb3TelegramClient(
		cCtx.String(flags.ProviderAddrFlag.Name),
		cCtx.String(flags.PrivateKeyFlag.Name),
		logger,
	)
	if err != nil {
		logger.Error("Failed to create notification client", "err", err)
		return err
	}
	logger.Info("Notification client ready", "sender", notifyClient.Sender().String())

	// Chain event feed
	rpcAddress := cCtx.String(flags.RpcAddrFlag.Name)
	logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
	ethClient, err := ethclient.Dial(rpcAddress)
	if err != nil {
		logger.Error("Failed to dial RPC", "err", err)
		return err
	}

	// Metrics listener shared across the pipeline
	serverCfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
	metricsSrv, err := metrics.New(common.PackageName, serverCfg.MetricsAddr)
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}
	collectors := metricsSrv.Collectors()

	// Webhook ingestion
	handler := httpserver.NewHandler(store, notifyClient, collectors, logger)
	server, err := httpserver.New(serverCfg, handler, metricsSrv)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	// Chain ingestion
	chainListener := listener.New(ethClient, listener.Config{
		Contract:  contractAddr,
		Network:   cCtx.String(flags.NetworkNameFlag.Name),
		Registry:  store,
		Notifier:  notifyClient,
		Collector: collectors,
		Log:       logger,
	})
	go func() {
		if err := chainListener.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Chain listener stopped", "err", err)
		}
	}()

	// Registration interface over the chat bot
	engine := registration.NewEngine(store, logger)
	engine.OnRegister(func() { collectors.RegistrationsTotal.Inc() })
	bot := chatbot.New("", cCtx.String(flags.BotTokenFlag.Name), engine, logger)
	go func() {
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Chat bot stopped", "err", err)
		}
	}()

	logger.Info("Privibase relay running",
		"listenAddr", serverCfg.ListenAddr,
		"contract", contractAddr.Hex(),
		"subscriptions", store.Len())

	// Wait for termination signal
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	cancel()
	server.Shutdown()
	ethClient.Close()
	logger.Info("Relay shutdown complete")

	return nil
}
