package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalstack/vitals-engine/internal/archive"
	"github.com/vitalstack/vitals-engine/internal/patterns"
	"github.com/vitalstack/vitals-engine/internal/utils"
)

var (
	mineDB    string
	mineSince string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine recurring issue patterns from the session archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMine(cmd)
	},
}

func init() {
	mineCmd.Flags().StringVar(&mineDB, "db", "vitals.db", "path to the session archive")
	mineCmd.Flags().StringVar(&mineSince, "since", "", "only mine sessions recorded after this RFC3339 time")
}

func runMine(cmd *cobra.Command) error {
	since, err := parseSince(mineSince)
	if err != nil {
		return err
	}

	store, err := archive.Open(mineDB, nil)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	sessions, err := store.ListSessions(ctx, "", "", since, 0)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No archived sessions to mine.")
		return nil
	}

	issues, err := store.ListIssues(ctx, since)
	if err != nil {
		return err
	}

	miner := patterns.NewMiner(utils.NewLogger("info", false), store)
	mined, err := miner.Mine(ctx, issues, len(sessions))
	if err != nil {
		return err
	}

	fmt.Printf("Mined %d pattern(s) from %d session(s) at %s.\n",
		len(mined), len(sessions), time.Now().Format(time.RFC3339))
	printPatternTable(mined)
	return nil
}
