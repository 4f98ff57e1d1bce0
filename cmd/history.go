package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var (
	historyFavorites bool
	historyMode      string
	historyLimit     int
	historyJSON      bool
	clearKeepFavs    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage search history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.SearchFilter{
			FavoritesOnly: historyFavorites,
			Mode:          model.SearchMode(historyMode),
			Limit:         historyLimit,
		}
		records, err := st.ListSearches(ctx, filter)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tMODE\tRESULTS\tFAV\tWHEN")
		for _, r := range records {
			fav := ""
			if r.IsFavorite {
				fav = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.Query, r.Mode, r.ResultsCount, fav, r.Timestamp.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a past search and its saved results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetSearch(ctx, args[0])
		if err != nil {
			return err
		}
		records, err := st.GetResults(ctx, args[0])
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Search  *model.SearchRecord    `json:"search"`
				Results []model.BusinessRecord `json:"results"`
			}{rec, records})
		}

		fmt.Printf("%s  %q  (%s, %d results)\n\n", rec.ID, rec.Query, rec.Mode, rec.ResultsCount)
		printRecords(records)
		return nil
	},
}

var historyFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle the favorite flag on a search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		fav, err := st.ToggleFavorite(ctx, args[0])
		if err != nil {
			return err
		}
		if fav {
			fmt.Printf("%s is now a favorite\n", args[0])
		} else {
			fmt.Printf("%s is no longer a favorite\n", args[0])
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a search and its saved results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteSearch(ctx, args[0]); err != nil {
			return eris.Wrap(err, "delete search")
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear search history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ClearHistory(ctx, clearKeepFavs)
		if err != nil {
			return eris.Wrap(err, "clear history")
		}
		fmt.Printf("removed %d entries\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().BoolVar(&historyFavorites, "favorites", false, "only list favorites")
	historyListCmd.Flags().StringVar(&historyMode, "mode", "", "filter by mode: direct or file")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum entries to list")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")
	historyClearCmd.Flags().BoolVar(&clearKeepFavs, "keep-favorites", false, "keep favorited searches")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyFavoriteCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
