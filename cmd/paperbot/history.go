// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperbot/internal/history"
	"github.com/pdiddy/paperbot/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export the per-chat activity store",
	Long: `History reads the activity store the running bot writes: one
append-only log per chat plus a bookkeeping row. With --export the chat's
full record is written as YAML to stdout; otherwise entries are listed one
per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetInt64("chat")
		if chatID == 0 {
			return fmt.Errorf("--chat is required")
		}
		tag, _ := cmd.Flags().GetString("tag")
		export, _ := cmd.Flags().GetBool("export")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir == "" {
			dataDir = viper.GetString("history.data_dir")
		}

		store, err := history.NewStore(types.HistoryConfig{DataDir: dataDir})
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		ctx := context.Background()
		if export {
			return store.ExportYAML(ctx, chatID, os.Stdout)
		}

		entries, err := store.List(ctx, chatID, tag)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-18s %s", e.Timestamp.Format("2006-01-02 15:04"), e.Action, e.Topic)
			if e.Rating > 0 {
				fmt.Printf(" (%d/5)", e.Rating)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int64("chat", 0, "chat ID to inspect")
	historyCmd.Flags().String("tag", "", "filter entries by tag")
	historyCmd.Flags().String("data-dir", "", "history data directory (default from config)")
	historyCmd.Flags().Bool("export", false, "export the chat record as YAML to stdout")

	rootCmd.AddCommand(historyCmd)
}
