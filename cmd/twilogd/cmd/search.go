package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/daemon"
	"github.com/twilog/twilogd/internal/output"
)

type searchWireSettings struct {
	UserFilter struct {
		Includes []string `json:"includes,omitempty"`
		Excludes []string `json:"excludes,omitempty"`
	} `json:"user_filter"`
	DateFilter struct {
		From string `json:"from,omitempty"`
		To   string `json:"to,omitempty"`
	} `json:"date_filter"`
	TopK int `json:"top_k"`
}

func newSearchCmd() *cobra.Command {
	var topK int
	var mode string
	var weights []float64
	var includeUsers []string
	var excludeUsers []string
	var dateFrom, dateTo string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a semantic search against the daemon",
		Long: `Embed the query, run it against the vector store selected by
--mode, apply any author/date filters, and print the ranked, deduplicated
results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], topK, mode, weights, includeUsers, excludeUsers, dateFrom, dateTo, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 10, "Number of results to return")
	cmd.Flags().StringVar(&mode, "mode", "content", "Vector space to search: content, reasoning, summary, or average")
	cmd.Flags().Float64SliceVar(&weights, "weights", nil, "Fusion weights for --mode average (defaults to 1,1,1)")
	cmd.Flags().StringSliceVar(&includeUsers, "user", nil, "Restrict results to these authors")
	cmd.Flags().StringSliceVar(&excludeUsers, "exclude-user", nil, "Exclude these authors")
	cmd.Flags().StringVar(&dateFrom, "from", "", "Earliest post timestamp (YYYY-MM-DD HH:MM:SS)")
	cmd.Flags().StringVar(&dateTo, "to", "", "Latest post timestamp (YYYY-MM-DD HH:MM:SS)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, topK int, mode string, weights []float64, includeUsers, excludeUsers []string, dateFrom, dateTo string, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadDaemonConfig("", "", "")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	client := daemon.NewClient(cfg)
	if !client.IsRunning() {
		return fmt.Errorf("daemon is not running; run 'twilogd start' first")
	}

	settings := searchWireSettings{TopK: topK}
	settings.UserFilter.Includes = includeUsers
	settings.UserFilter.Excludes = excludeUsers
	settings.DateFilter.From = dateFrom
	settings.DateFilter.To = dateTo

	rawSettings, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	result, err := client.SearchSimilar(cmd.Context(), query, rawSettings, mode, weights)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	isTTY := false
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if jsonOutput || !isTTY {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(json.RawMessage(result))
	}

	var hits []struct {
		Rank  int             `json:"rank"`
		Score float64         `json:"score"`
		Post  json.RawMessage `json:"post"`
	}
	if err := json.Unmarshal(result, &hits); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}

	if len(hits) == 0 {
		out.Status("", "No results")
		return nil
	}

	for _, h := range hits {
		var post map[string]any
		_ = json.Unmarshal(h.Post, &post)
		content, _ := post["content"].(string)
		user, _ := post["user"].(string)
		out.Status("", fmt.Sprintf("%2d. [%.4f] @%s: %s", h.Rank, h.Score, user, strings.TrimSpace(content)))
	}

	return nil
}
