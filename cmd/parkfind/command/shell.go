package command

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parkfind/parkfind/internal/history"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/search"
)

const shellHelp = `Commands:
  login <username> <password>
  register <username> <email> <password> <confirm>
  reset-password <email> <username> <password>
  logout
  whoami
  vehicle <Car/Van|Motorcycle|Heavy>
  suggest <text>           address autocomplete (3+ characters)
  select <n>               pick suggestion n as the destination
  search [text]            search carparks (selected or free-text destination)
  carparks                 render the cached result and place markers
  route <carpark-id>       route from your location to a carpark
  history                  load one more page of past searches
  quit`

// shellState is the transient input state of one interactive session:
// the last suggestion list and the destination/vehicle fields.
type shellState struct {
	suggestions []model.Destination
	destination string
	vehicle     string
}

// runShell is one interactive session over the flows. Session state lives
// for exactly as long as the shell.
func runShell(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "parkfind interactive session. Type 'help' for commands.")

	ident := a.auth.Identity(cmd.Context())
	if !ident.Anonymous() {
		fmt.Fprintf(out, "Logged in as %s.\n", ident.Username)
	}

	state := &shellState{}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name, args := fields[0], fields[1:]
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := a.dispatch(cmd, state, name, args); err != nil {
			fmt.Fprintln(out, err.Error())
		}
	}
}

func (a *app) dispatch(cmd *cobra.Command, state *shellState, name string, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch name {
	case "help":
		fmt.Fprintln(out, shellHelp)

	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <username> <password>")
		}
		ident, err := a.auth.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Login successful. Welcome, %s.\n", ident.Username)

	case "register":
		if len(args) != 4 {
			return errors.New("usage: register <username> <email> <password> <confirm>")
		}
		ident, err := a.auth.Register(ctx, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Registration successful (user %d).\n", ident.UserID)

	case "reset-password":
		if len(args) != 3 {
			return errors.New("usage: reset-password <email> <username> <password>")
		}
		if err := a.auth.ResetPassword(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintln(out, "Password reset successfully!")

	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logout successful")

	case "whoami":
		ident := a.auth.Identity(ctx)
		if ident.Anonymous() {
			fmt.Fprintln(out, "Not logged in.")
		} else {
			fmt.Fprintf(out, "%s (user %d)\n", ident.Username, ident.UserID)
		}

	case "vehicle":
		if len(args) == 0 {
			return errors.New("usage: vehicle <Car/Van|Motorcycle|Heavy>")
		}
		state.vehicle = strings.Join(args, " ")
		fmt.Fprintf(out, "Vehicle set to %s.\n", state.vehicle)

	case "suggest":
		input := strings.Join(args, " ")
		state.suggestions = a.search.Autocomplete(ctx, input)
		if len(state.suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions.")
			break
		}
		for i, s := range state.suggestions {
			fmt.Fprintf(out, "%2d. %s\n", i+1, s.Label())
		}

	case "select":
		if len(args) != 1 {
			return errors.New("usage: select <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(state.suggestions) {
			return errors.New("no such suggestion")
		}
		sel, err := search.Select(state.suggestions[n-1])
		if err != nil {
			return err
		}
		state.destination = sel.Value
		state.suggestions = nil
		fmt.Fprintf(out, "Destination: %s\n", sel.Label)

	case "search":
		destination := state.destination
		if len(args) > 0 {
			destination = strings.Join(args, " ")
		}
		if _, err := a.search.Search(ctx, destination, state.vehicle); err != nil {
			return err
		}
		fmt.Fprintln(out, "Search successful!")
		// a successful search navigates straight to the carpark view
		renderCarparkView(cmd, a.carpark)

	case "carparks":
		renderCarparkView(cmd, a.carpark)

	case "route":
		if len(args) != 1 {
			return errors.New("usage: route <carpark-id>")
		}
		route, err := a.carpark.ShowRoute(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "You are here: %s\n", route.From)
		fmt.Fprintf(out, "Route to %s: %.0f m", args[0], route.DistanceMeters)
		if route.DurationSeconds > 0 {
			fmt.Fprintf(out, ", about %.0f min", route.DurationSeconds/60)
		}
		fmt.Fprintln(out)

	case "history":
		cards, err := a.history.LoadMore(ctx)
		if err != nil {
			if errors.Is(err, history.ErrNotFound{}) {
				fmt.Fprintln(out, a.history.EmptyMessage())
				return nil
			}
			return err
		}
		if len(cards) == 0 {
			fmt.Fprintln(out, a.history.EmptyMessage())
			return nil
		}
		renderHistoryCards(out, cards)

	default:
		return fmt.Errorf("unknown command %q; type 'help'", name)
	}
	return nil
}
