package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parkfind/parkfind/internal/history"
)

var historyPages int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past carpark searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var cards []history.Card
		for i := 0; i < historyPages; i++ {
			var err error
			cards, err = current.history.LoadMore(cmd.Context())
			if err != nil {
				// no history is an empty state, not a failure
				if errors.Is(err, history.ErrNotFound{}) {
					fmt.Fprintln(out, current.history.EmptyMessage())
					return nil
				}
				return err
			}
		}
		if len(cards) == 0 {
			fmt.Fprintln(out, current.history.EmptyMessage())
			return nil
		}
		renderHistoryCards(out, cards)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyPages, "pages", 1, "number of pages to load")
}
