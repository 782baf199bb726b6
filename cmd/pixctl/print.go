package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
)

const rule = "============================================================"

func printCharge(w io.Writer, c *domain.Charge) {
	fmt.Fprintf(w, "ID:       %s\n", c.ID)
	fmt.Fprintf(w, "Status:   %s\n", c.Status)
	fmt.Fprintf(w, "Amount:   %s\n", domain.FormatBRL(c.Amount))
	if c.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:  %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if c.DevMode {
		fmt.Fprintln(w, "Dev mode: yes (use `pixctl simulate` to pay)")
	}
	if c.BRCode != "" {
		fmt.Fprintf(w, "BR Code:  %s\n", c.BRCode)
	}
}

func printAttempt(w io.Writer, s domain.MonitorSession) {
	status := string(s.Status)
	if s.LastErr != nil {
		status = "error: " + s.LastErr.Error()
	}
	fmt.Fprintf(w, "[%d/%d] %s (%d remaining)\n", s.AttemptsUsed, s.MaxAttempts, status, s.Remaining())
}

func printMonitorResult(w io.Writer, r *ports.MonitorResult) {
	fmt.Fprintf(w, "Finished: %s after %d attempts", r.State, r.Attempts)
	if r.LastStatus != "" {
		fmt.Fprintf(w, " (last status %s)", r.LastStatus)
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, s *domain.SummaryReport, top int) {
	fmt.Fprintln(w, "SUMMARY REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total transactions: %d\n", s.TotalTransactions)
	fmt.Fprintf(w, "Total paid:         %s\n", domain.FormatBRL(s.TotalAmount))

	fmt.Fprintln(w, "\nBy status:")
	for _, status := range sortedKeys(s.StatusBreakdown) {
		fmt.Fprintf(w, "  %-10s %d\n", status, s.StatusBreakdown[status])
	}

	fmt.Fprintln(w, "\nBy month:")
	for _, month := range sortedKeys(s.MonthlyBreakdown) {
		fmt.Fprintf(w, "  %s  %d\n", month, s.MonthlyBreakdown[month])
	}

	fmt.Fprintf(w, "\nTop %d customers:\n", top)
	for _, c := range s.TopCustomers(top) {
		fmt.Fprintf(w, "  %-30s %d\n", c.Name, c.Count)
	}
	fmt.Fprintln(w, rule)
}

func printProduct(w io.Writer, p *domain.ProductReport) {
	fmt.Fprintf(w, "\n%s\n", strings.ToUpper(p.Product))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Price:            %s\n", domain.FormatBRL(p.Price))
	fmt.Fprintf(w, "Attempts:         %d\n", p.TotalSubscriptions)
	fmt.Fprintf(w, "Confirmed:        %d\n", p.ConfirmedSubscriptions)
	fmt.Fprintf(w, "Revenue:          %s\n", domain.FormatBRL(p.Revenue))
	fmt.Fprintf(w, "Conversion rate:  %.1f%%\n", p.ConversionRate)
	fmt.Fprintf(w, "Unique customers: %d\n", len(p.CustomerAnalysis))
	fmt.Fprintln(w, rule)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
