package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/buyawarranty/warranty-quote/internal/model"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
	"github.com/buyawarranty/warranty-quote/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect finalized checkout pricing",
	Long:  "Commands for listing, viewing, and summarizing warranty selection audit records.",
}

// -- audit list --

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		reg, _ := cmd.Flags().GetString("reg")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.AuditFilter{
			SyncStatus:   model.SyncStatus(status),
			Registration: model.VehicleData{RegNumber: reg}.NormalizedReg(),
			Limit:        limit,
		}
		if filter.SyncStatus != "" && !filter.SyncStatus.Valid() {
			return eris.Errorf("unknown sync status %q", status)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := st.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audit list")
		}

		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No audit records found.")
			return nil
		}

		formatAuditList(os.Stdout, recs)
		return nil
	},
}

// -- audit show --

var auditShowCmd = &cobra.Command{
	Use:   "show <audit-id>",
	Short: "Show full details of an audit record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetAudit(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "audit show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// -- audit stats --

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate checkout statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.AuditFilter{}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}
		filter.Limit = 10000 // high limit for stats

		recs, err := st.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audit stats")
		}

		formatAuditStats(os.Stdout, computeAuditStats(recs))
		return nil
	},
}

func init() {
	auditListCmd.Flags().String("status", "", "filter by sync status (pending, synced, failed)")
	auditListCmd.Flags().String("reg", "", "filter by vehicle registration")
	auditListCmd.Flags().Int("limit", 50, "max number of records to display")

	auditStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditStatsCmd)
	rootCmd.AddCommand(auditCmd)
}

// auditStats holds aggregate statistics computed from a set of audit records.
type auditStats struct {
	Total      int
	Pending    int
	Synced     int
	Failed     int
	Mismatches int
	Fallbacks  int
	Revenue    int
	ByPeriod   map[int]int
}

// computeAuditStats computes aggregate statistics from audit records.
func computeAuditStats(recs []model.AuditRecord) auditStats {
	s := auditStats{Total: len(recs), ByPeriod: map[int]int{}}
	for _, r := range recs {
		switch r.SyncStatus {
		case model.SyncStatusPending:
			s.Pending++
		case model.SyncStatusSynced:
			s.Synced++
		case model.SyncStatusFailed:
			s.Failed++
		}
		if r.PriceMismatch {
			s.Mismatches++
		}
		if r.FallbackPrice {
			s.Fallbacks++
		}
		s.Revenue += r.TotalPrice
		s.ByPeriod[r.PeriodMonths]++
	}
	return s
}

// formatAuditList writes a tabular list of audit records to w.
func formatAuditList(out io.Writer, recs []model.AuditRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREG\tPLAN\tPERIOD\tTOTAL\tMONTHLY\tSYNC\tFLAGS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---\t----\t------\t-----\t-------\t----\t-----\t-------")

	for _, r := range recs {
		flags := ""
		if r.PriceMismatch {
			flags += "M"
		}
		if r.FallbackPrice {
			flags += "F"
		}

		plan := r.PlanName
		if plan == "" {
			plan = r.PlanID
		}
		plan = truncateText(plan, 20)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%dm\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Registration,
			plan,
			r.PeriodMonths,
			pricing.FormatGBP(r.TotalPrice),
			pricing.FormatGBP(r.MonthlyPrice),
			r.SyncStatus,
			flags,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateText shortens s to at most limit runes, marking the cut with "...".
func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// formatAuditStats writes aggregate stats to w.
func formatAuditStats(out io.Writer, s auditStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total checkouts:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Pending sync:\t%d\n", s.Pending)
	_, _ = fmt.Fprintf(w, "Synced:\t%d\n", s.Synced)
	_, _ = fmt.Fprintf(w, "Failed sync:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Price mismatches:\t%d\n", s.Mismatches)
	_, _ = fmt.Fprintf(w, "Fallback prices:\t%d\n", s.Fallbacks)
	_, _ = fmt.Fprintf(w, "Revenue:\t%s\n", pricing.FormatGBP(s.Revenue))
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg total:\t%s\n", pricing.FormatGBP(s.Revenue/s.Total))
	}

	periods := make([]int, 0, len(s.ByPeriod))
	for p := range s.ByPeriod {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	for _, p := range periods {
		_, _ = fmt.Fprintf(w, "  %d months:\t%d\n", p, s.ByPeriod[p])
	}
	_ = w.Flush()
}
