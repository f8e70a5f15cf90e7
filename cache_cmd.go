package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the synthesis cache",
	Long: paragraph(
		fmt.Sprintf("\nThe cache keeps every synthesized clip so repeating a narration is %s. These commands show what it holds and throw entries out.", keyword("instant")),
	),
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and hit counts",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Remove cached narrations",
	Example: paragraph("tts-local cache clear\ntts-local cache clear --older-than 72h"),
	Args:    cobra.NoArgs,
	RunE:    runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	cacheClearCmd.Flags().Duration("older-than", 0, "only remove entries older than this age")
}

func runCacheStats(*cobra.Command, []string) error {
	store, err := newCacheManager()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	st := store.Stats()
	fmt.Println("Location ", st.Dir)
	fmt.Printf("Entries   %d on disk, %d in memory\n", st.DiskItems, st.MemoryItems)
	fmt.Printf("Size      %s of %s\n",
		humanize.IBytes(uint64(st.DiskBytes)),        //nolint:gosec
		humanize.IBytes(uint64(cacheMaxMB)<<20))      //nolint:gosec
	fmt.Printf("Hits      %d (%d misses, %.0f%% hit rate this run)\n",
		st.Hits, st.Misses, st.HitRate*100)
	if !cacheEnabled {
		fmt.Println("\nThe cache is disabled in the config; synthesis is not using it.")
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	store, err := newCacheManager()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if olderThan > 0 {
		n := store.RemoveOlderThan(olderThan)
		fmt.Printf("Removed %d cached narrations older than %s.\n", n, olderThan)
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("unable to clear cache: %w", err)
	}
	fmt.Println("Cache cleared.")
	return nil
}
