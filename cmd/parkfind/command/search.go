package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parkfind/parkfind/internal/carpark"
	"github.com/parkfind/parkfind/internal/history"
)

var searchVehicle string

var searchCmd = &cobra.Command{
	Use:   "search <destination...>",
	Short: "Search carparks near a destination and render them",
	Long: `Runs one search-to-render cycle: validates the destination, asks the
backend for carparks, caches the result in the session, then renders the
carpark cards and places map markers, like following the search redirect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		destination := strings.Join(args, " ")
		if _, err := current.search.Search(cmd.Context(), destination, searchVehicle); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Search successful!")
		renderCarparkView(cmd, current.carpark)
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <text...>",
	Short: "Show destination autocomplete suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		suggestions := current.search.Autocomplete(cmd.Context(), input)
		if len(suggestions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No suggestions.")
			return nil
		}
		for i, s := range suggestions {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, s.Label())
		}
		return nil
	},
}

// renderCarparkView loads the cached result and renders cards, the empty
// state, and the marker batch outcome.
func renderCarparkView(cmd *cobra.Command, flow *carpark.Flow) {
	out := cmd.OutOrStdout()

	cards := flow.Load()
	if flow.State() == carpark.StateEmpty {
		fmt.Fprintln(out, carpark.NoCarparksMessage)
		return
	}
	for _, card := range cards {
		renderCard(out, card)
	}

	flow.PlaceMarkers(cmd.Context())
	m := flow.Map()
	fmt.Fprintf(out, "\nMap centered on %s with %d carpark markers:\n",
		m.Center(), m.MarkerCount())
	for _, mk := range m.CarparkMarkers() {
		fmt.Fprintf(out, "  [%s] %s\n", mk.CarparkID, mk.Position)
	}
}

func renderCard(out io.Writer, card carpark.Card) {
	fmt.Fprintf(out, "%s\n", card.ID)
	fmt.Fprintf(out, "  %s\n", card.Address)
	fmt.Fprintf(out, "  Available Lots: %d\n", card.LotsAvailable)
	fmt.Fprintf(out, "  X: %s  Y: %s\n", card.XCoord, card.YCoord)
	fmt.Fprintf(out, "  Type: %s  System: %s\n", card.Type, card.ParkingSystem)
	fmt.Fprintf(out, "  Short Term: %s  Free Parking: %s  Night Parking: %s\n",
		card.ShortTermParking, card.FreeParking, card.NightParking)
	fmt.Fprintf(out, "  Decks: %s  Gantry Height: %s  Basement: %s\n",
		card.Decks, card.GantryHeight, card.Basement)
}

func renderHistoryCards(out io.Writer, cards []history.Card) {
	for _, card := range cards {
		fmt.Fprintf(out, "%s\n  %s\n  %s\n", card.CarparkID, card.Address, card.Date)
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchVehicle, "vehicle", "",
		"vehicle type (Car/Van, Motorcycle, Heavy)")
}
