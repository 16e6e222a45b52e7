package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/ledger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <position>",
	Short: "Delete an entry from local storage",
	Long: `Delete the entry shown as <position> by 'tpt list'. Only the local copy is
changed; rows already appended to the remote store are kept.

Every command loads from the remote first, so the entry reappears while the
remote holds rows. Deletion sticks only when no remote is configured or the
remote is empty or unreachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

// parsePosition converts the 1-based number printed by list to an index.
func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: want a number from 'tpt list'", arg)
	}
	return n - 1, nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	position, err := parsePosition(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	entries := s.repo.Entries()
	if position >= len(entries) {
		return fmt.Errorf("%w: %s (have %d)", ledger.ErrPositionOutOfRange, args[0], len(entries))
	}
	e := entries[position]

	if !deleteYes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete entry %s: %s, %s h, pay %s?",
				args[0], render.Date(e.Date), render.Hours(e.Hours), render.Money(e.Pay))).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	removed, err := s.repo.DeleteEntry(cmd.Context(), position)
	switch {
	case errors.Is(err, ledger.ErrPositionOutOfRange):
		return err
	case err != nil:
		return failure(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s).\n", render.Date(removed.Date), render.Money(removed.Pay))
	return nil
}
