package main

import (
	"net/rpc"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ghostnet/ghostserver/admin"
	"github.com/ghostnet/ghostserver/config"
	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/server"
)

const releaseVersion = "0.1.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		configPath string
		dev        bool
	)

	cmd := &cobra.Command{
		Use:           "ghostserver",
		Short:         "Real-time Ghost party-game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, dev)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&configPath, "config", "c", ".", "directory containing config.yaml")
	fs.BoolVar(&dev, "dev", false, "human-readable logs")

	return cmd
}

func run(configPath string, dev bool) error {
	logger.Init(dev)
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	gameServer, err := server.New(cfg)
	if err != nil {
		return err
	}

	adminServer, err := admin.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return err
	}
	if err := rpc.Register(admin.NewService(gameServer.Registry())); err != nil {
		return err
	}
	go adminServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Log.Info("shutting down")
		adminServer.Stop()
		gameServer.Shutdown()
	}()

	logger.Log.Infow("starting ghost server", "tcp", cfg.Server.TCPAddress)
	return gameServer.Start()
}
