package main

import (
	"fmt"
	"io"
	"os"

	"pix-reconciler/config"
	"pix-reconciler/internal/adapter/provider"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/service"
	"pix-reconciler/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app carries what every command needs. Tests preset cfg and stderr.
type app struct {
	cfgPath  string
	logLevel string
	cfg      *config.Config
	stderr   io.Writer
	log      zerolog.Logger

	// provider overrides the HTTP client built from cfg.Provider.
	provider ports.PaymentProvider
}

func main() {
	if err := newRootCmd(&app{stderr: os.Stderr}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pixctl",
		Short:         "pixctl - PIX charge and reconciliation tooling",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(createCmd(a))
	rootCmd.AddCommand(checkCmd(a))
	rootCmd.AddCommand(simulateCmd(a))
	rootCmd.AddCommand(monitorCmd(a))
	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(tokenCmd(a))

	return rootCmd
}

func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if err := a.cfg.ValidateCore(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}

	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logger.NewConsole(level, a.stderr)
	return nil
}

func (a *app) paymentProvider() (ports.PaymentProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	if a.cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("provider.api_key is not set (PIX_PROVIDER_API_KEY or ABACATEPAY_API_KEY)")
	}
	return provider.NewClient(a.cfg.Provider, nil, logger.Component(a.log, "provider")), nil
}

func (a *app) chargeService() (ports.ChargeService, error) {
	p, err := a.paymentProvider()
	if err != nil {
		return nil, err
	}
	// No status cache: the CLI always asks the provider.
	return service.NewChargeService(p, nil, service.ChargeDefaults{
		Amount:           a.cfg.Charge.ProductPrice,
		Description:      a.cfg.Charge.Description,
		ExpiresIn:        a.cfg.Charge.ExpiresIn,
		ExternalIDPrefix: a.cfg.Charge.ExternalIDPrefix,
	}, a.log), nil
}
