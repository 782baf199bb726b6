package main

import (
	"errors"
	"fmt"

	"pix-reconciler/internal/adapter/storage/archive"
	"pix-reconciler/internal/adapter/storage/eventlog"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/service"
	"pix-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"
)

func reportCmd(a *app) *cobra.Command {
	var (
		logPath string
		outDir  string
		upload  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate summary, product and detailed reports from the event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath == "" {
				logPath = a.cfg.EventLog.Path
			}
			if outDir == "" {
				outDir = a.cfg.Report.OutputDir
			}
			loc, err := a.cfg.Report.Location()
			if err != nil {
				return fmt.Errorf("report.timezone: %w", err)
			}

			var store ports.ReportArchive
			if upload {
				if !a.cfg.Archive.Enabled {
					return errors.New("--archive needs archive.enabled and an archive.bucket")
				}
				s3, err := archive.NewFromConfig(cmd.Context(), a.cfg.Archive, logger.Component(a.log, "archive"))
				if err != nil {
					return err
				}
				store = s3
			}

			fileLog := eventlog.New(logPath, logger.Component(a.log, "eventlog"))
			agg := service.NewAggregator(a.cfg.Charge.ProductName, a.cfg.Charge.ProductPrice, loc, clockz.RealClock)
			reports := service.NewReportService(fileLog, agg, service.NewExporter(a.log), a.log)

			out := cmd.OutOrStdout()
			files, err := reports.Generate(cmd.Context(), outDir)
			if err != nil {
				return err
			}

			printSummary(out, files.Reports.Summary, 5)
			printProduct(out, files.Reports.Product)

			fmt.Fprintln(out, "\nFiles:")
			for _, f := range files.All() {
				fmt.Fprintf(out, "  %s\n", f)
			}

			if store != nil {
				fmt.Fprintln(out, "\nArchived:")
				for _, f := range files.All() {
					key, err := store.Upload(cmd.Context(), f)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  s3://%s/%s\n", a.cfg.Archive.Bucket, key)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "Event log to read (default: eventlog.path)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Output directory (default: report.output_dir)")
	cmd.Flags().BoolVar(&upload, "archive", false, "Upload the generated files to the report archive")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the reports API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not set (PIX_JWT_SECRET)")
			}
			tokens := service.NewJWTTokenService(a.cfg.JWT.Secret, a.cfg.JWT.Expiry, a.cfg.JWT.Issuer)
			token, expiresAt, err := tokens.Generate(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			a.log.Info().Str("subject", subject).Time("expires_at", expiresAt).Msg("token issued")
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Operator name embedded in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
