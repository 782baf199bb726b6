package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pix-reconciler/internal/adapter/http/dto"
	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/service"
	"pix-reconciler/pkg/logger"

	"github.com/spf13/cobra"
)

func createCmd(a *app) *cobra.Command {
	var (
		in       domain.CreateChargeInput
		customer domain.Customer
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a PIX charge (defaults to the configured product)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if customer.TaxID != "" && !dto.ValidCPF(customer.TaxID) {
				return fmt.Errorf("invalid tax id %q", customer.TaxID)
			}
			if customer.Phone != "" && !dto.ValidPhone(customer.Phone) {
				return fmt.Errorf("invalid phone %q", customer.Phone)
			}
			in.Customer = customer

			svc, err := a.chargeService()
			if err != nil {
				return err
			}
			charge, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printCharge(cmd.OutOrStdout(), charge)
			return nil
		},
	}

	cmd.Flags().Int64Var(&in.Amount, "amount", 0, "Amount in cents (default: product price)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Charge description")
	cmd.Flags().DurationVar(&in.ExpiresIn, "expires-in", 0, "Charge lifetime (default: charge.expires_in)")
	cmd.Flags().StringVar(&in.ExternalID, "external-id", "", "External reference (default: generated)")
	cmd.Flags().StringVar(&customer.Name, "name", "", "Customer name")
	cmd.Flags().StringVar(&customer.Email, "email", "", "Customer email")
	cmd.Flags().StringVar(&customer.Phone, "phone", "", "Customer cellphone")
	cmd.Flags().StringVar(&customer.TaxID, "tax-id", "", "Customer CPF")

	return cmd
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <charge-id>",
		Short: "Show the current status of a charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.chargeService()
			if err != nil {
				return err
			}
			charge, err := svc.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCharge(cmd.OutOrStdout(), charge)
			return nil
		},
	}
}

func simulateCmd(a *app) *cobra.Command {
	var metadata map[string]string

	cmd := &cobra.Command{
		Use:   "simulate <charge-id>",
		Short: "Simulate payment of a dev mode charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.chargeService()
			if err != nil {
				return err
			}
			charge, err := svc.Simulate(cmd.Context(), args[0], metadata)
			if err != nil {
				return err
			}
			printCharge(cmd.OutOrStdout(), charge)
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&metadata, "metadata", nil, "Metadata sent with the simulation (key=value,...)")
	return cmd
}

func monitorCmd(a *app) *cobra.Command {
	var (
		interval    time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "monitor <charge-id>",
		Short: "Poll a charge until it is paid, expires or is cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Monitor.Interval
			}
			if !cmd.Flags().Changed("max-attempts") {
				maxAttempts = a.cfg.Monitor.MaxAttempts
			}

			p, err := a.paymentProvider()
			if err != nil {
				return err
			}
			monitor := service.NewPaymentMonitor(p, logger.Component(a.log, "monitor"),
				service.WithMinInterval(a.cfg.Monitor.MinInterval))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Monitoring %s (max %d attempts, every %s, Ctrl-C to stop)\n", args[0], maxAttempts, interval)

			res, err := monitor.Watch(ctx, args[0], ports.MonitorOptions{
				Interval:    interval,
				MaxAttempts: maxAttempts,
				OnAttempt: func(s domain.MonitorSession) {
					printAttempt(out, s)
				},
			})
			if err != nil {
				return err
			}
			printMonitorResult(out, res)
			if res.State != domain.MonitorPaid {
				return fmt.Errorf("charge %s not paid: %s", res.ChargeID, strings.ToLower(string(res.State)))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Time between checks (default: monitor.interval)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 100, "Checks before giving up (default: monitor.max_attempts)")
	return cmd
}
