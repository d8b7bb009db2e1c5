package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/DHCross/WovenWebApp-sub001/internal/api"
	"github.com/DHCross/WovenWebApp-sub001/internal/config"
)

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a transit window for a subject",
	Long: `Fetch per-day transit aspects for a subject over a date window.

Examples:
  woven fetch --name "Dan" --date 1973-07-24T14:30 --lat 40.0167 --lon -75.3 \
    --tz America/New_York --start 2025-06-01 --end 2025-06-07
  woven fetch --name "Dan" --date 1973-07-24 --city "Bryn Mawr" --nation US \
    --start 2025-06-01 --end 2025-06-07 --compress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		date, _ := cmd.Flags().GetString("date")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		tz, _ := cmd.Flags().GetString("tz")
		city, _ := cmd.Flags().GetString("city")
		nation, _ := cmd.Flags().GetString("nation")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		step, _ := cmd.Flags().GetString("step")
		compress, _ := cmd.Flags().GetBool("compress")
		wheel, _ := cmd.Flags().GetBool("wheel")
		asJSON, _ := cmd.Flags().GetBool("json")

		if name == "" || date == "" {
			return fmt.Errorf("--name and --date are required")
		}
		if start == "" || end == "" {
			return fmt.Errorf("--start and --end are required")
		}

		birth, err := parseBirthDate(date)
		if err != nil {
			return err
		}

		sub := api.SubjectPayload{
			Name:     name,
			Year:     birth.Year(),
			Month:    int(birth.Month()),
			Day:      birth.Day(),
			Hour:     birth.Hour(),
			Minute:   birth.Minute(),
			Timezone: tz,
			City:     city,
			Nation:   nation,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			sub.Latitude = &lat
			sub.Longitude = &lon
		}

		req := api.TransitsRequest{
			Subject:      sub,
			StartDate:    start,
			EndDate:      end,
			Step:         step,
			CaptureWheel: wheel,
			Compress:     compress,
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Fetching window %s..%s for %s", start, end, name)
		resp, err := client.post(cmd.Context(), "/transits", req)
		if err != nil {
			return err
		}

		var result api.TransitsResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printFetchSummary(client.baseURL, result)
		return nil
	},
}

// parseBirthDate accepts a date with or without a time-of-day component.
func parseBirthDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --date %q: use YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}

func printFetchSummary(baseURL string, result api.TransitsResponse) {
	dates := make([]string, 0, len(result.ProvenanceByDate))
	for d := range result.ProvenanceByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	total := 0
	failed := 0
	for _, d := range dates {
		prov := result.ProvenanceByDate[d]
		total += prov.AspectCount
		if prov.AspectCount == 0 {
			failed++
			printWarning("%s: no aspects (strategy %s, %d attempts)", d, prov.Strategy, prov.Attempts)
			continue
		}
		fmt.Printf("  %s  %3d aspects  (%s, attempt %d)\n", d, prov.AspectCount, prov.Strategy, prov.Attempts)
	}

	printSuccess("%d aspects across %d dates (%d failed)", total, len(dates), failed)
	if result.WindowID != "" {
		printStatus("Window", "%s", result.WindowID)
	}
	for _, asset := range result.ChartAssets {
		if asset.External {
			printStatus("Chart", "%s", asset.URL)
		} else {
			printStatus("Chart", "%s/chart/%s (expires %s)", baseURL, asset.ID, asset.ExpiresAt.Format(time.RFC3339))
		}
	}
	if result.Compressed != nil {
		printStatus("Compressed", "%d patterns, %d days", len(result.Compressed.Codebook.Patterns), len(result.Compressed.Days))
	}
}

func init() {
	fetchCmd.Flags().String("name", "", "subject name")
	fetchCmd.Flags().String("date", "", "birth date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	fetchCmd.Flags().Float64("lat", 0, "birth latitude")
	fetchCmd.Flags().Float64("lon", 0, "birth longitude")
	fetchCmd.Flags().String("tz", "", "birth timezone (IANA name)")
	fetchCmd.Flags().String("city", "", "birth city")
	fetchCmd.Flags().String("nation", "", "birth country (name or ISO code)")
	fetchCmd.Flags().String("start", "", "window start date (YYYY-MM-DD)")
	fetchCmd.Flags().String("end", "", "window end date (YYYY-MM-DD, inclusive)")
	fetchCmd.Flags().String("step", "", "sampling step as a duration (default 24h)")
	fetchCmd.Flags().Bool("compress", false, "include the compressed window encoding")
	fetchCmd.Flags().Bool("wheel", false, "capture one rendered chart wheel")
	fetchCmd.Flags().Bool("json", false, "print the full response as JSON")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
