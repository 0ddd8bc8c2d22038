package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plazadev/plaza/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a city's assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		city, _ := cmd.Flags().GetString("city")
		if city == "" {
			return fmt.Errorf("--city is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"query":     query,
			"city_slug": city,
			"user_id":   "cli",
		}
		resp, err := client.post(cmd.Context(), "/v1/query", req)
		if err != nil {
			return err
		}

		var result struct {
			Success        bool    `json:"success"`
			Response       string  `json:"response"`
			StrategyUsed   string  `json:"strategy_used"`
			ModelUsed      string  `json:"model_used"`
			FallbackUsed   bool    `json:"fallback_used"`
			ProcessingTime float64 `json:"processing_time_seconds"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		fmt.Fprintln(os.Stderr)
		printStatus("Strategy", "%s", result.StrategyUsed)
		printStatus("Model", "%s", result.ModelUsed)
		if result.FallbackUsed {
			printStatus("Fallback", "yes")
		}
		printStatus("Time", "%.2fs", result.ProcessingTime)
		return nil
	},
}

func init() {
	askCmd.Flags().String("city", "", "city slug to query")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest content into a city's knowledge library",
	Long: `Ingest content into a city's knowledge library.

Examples:
  plaza ingest --city villarreal --text "La piscina abre de 9 a 21" --title "Horario piscina"
  plaza ingest --city villarreal --url https://www.villarreal.es/agenda
  plaza ingest --city villarreal --file ./ordenanza.pdf --title "Ordenanza de ruidos"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		text, _ := cmd.Flags().GetString("text")
		url, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")

		if city == "" {
			return fmt.Errorf("--city is required")
		}
		if text == "" && url == "" && file == "" {
			return fmt.Errorf("one of --text, --url, or --file is required")
		}

		req := map[string]any{
			"city_slug": city,
		}
		if title != "" {
			req["title"] = title
		}

		switch {
		case text != "":
			req["type"] = "text"
			req["content"] = text
		case url != "":
			req["type"] = "url"
			req["url"] = url
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["type"] = "file"
			req["content"] = base64.StdEncoding.EncodeToString(data)
			if title == "" {
				req["title"] = file
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/admin/sources", req)
		if err != nil {
			return err
		}

		var result struct {
			ID     string `json:"id"`
			Chunks int    `json:"chunks"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Ingested source %s (%d chunks, embeddings pending)", result.ID, result.Chunks)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("city", "", "city slug the source belongs to")
	ingestCmd.Flags().String("text", "", "text content to ingest")
	ingestCmd.Flags().String("url", "", "URL to fetch and ingest")
	ingestCmd.Flags().String("file", "", "file path to ingest (text, HTML or PDF)")
	ingestCmd.Flags().String("title", "", "title for the source")
}

// --- sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage knowledge sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a city's knowledge sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		if city == "" {
			return fmt.Errorf("--city is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/admin/sources?city_slug="+city)
		if err != nil {
			return err
		}

		var sources []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Kind      string `json:"kind"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &sources); err != nil {
			return err
		}

		if len(sources) == 0 {
			fmt.Println("No sources found.")
			return nil
		}

		for _, s := range sources {
			title := s.Title
			if len(title) > 60 {
				title = title[:60] + "..."
			}
			fmt.Printf("%s  %-6s  %s  %s\n",
				colorize(colorCyan, s.ID[:8]),
				s.Kind,
				s.CreatedAt,
				title,
			)
		}
		return nil
	},
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a knowledge source and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/admin/sources/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted source %s", args[0])
		return nil
	},
}

func init() {
	sourcesListCmd.Flags().String("city", "", "city slug to list sources for")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesDeleteCmd)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a city's knowledge library stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		city, _ := cmd.Flags().GetString("city")
		if city == "" {
			return fmt.Errorf("--city is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/admin/stats?city_slug="+city)
		if err != nil {
			return err
		}

		var stats struct {
			Sources        int `json:"sources"`
			Chunks         int `json:"chunks"`
			EmbeddedChunks int `json:"embedded_chunks"`
		}
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Sources", "%d", stats.Sources)
		printStatus("Chunks", "%d", stats.Chunks)
		printStatus("Embedded", "%d", stats.EmbeddedChunks)
		if pending := stats.Chunks - stats.EmbeddedChunks; pending > 0 {
			printStatus("Pending", "%d", pending)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("city", "", "city slug to show stats for")
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
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
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

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List valid configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}
