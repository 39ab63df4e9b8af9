package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"textscan/internal/database"
	"textscan/internal/profile"
)

func newLeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leader",
		Short: "Grant or revoke the leader role",
		Long: `Set the leader flag on a registered profile.

The flag is only stored on the profile. Leader-only endpoints still require
the token's leader claim and an allow-listed email.

Example:
  $ textscan leader grant 6Yb2cQk1aUe4
  granted leader role to 6Yb2cQk1aUe4`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "grant <uid>",
			Short: "Mark a profile as leader",
			Args:  cobra.ExactArgs(1),
			RunE:  setLeader(true),
		},
		&cobra.Command{
			Use:   "revoke <uid>",
			Short: "Clear the leader flag on a profile",
			Args:  cobra.ExactArgs(1),
			RunE:  setLeader(false),
		},
	)

	return cmd
}

func setLeader(isLeader bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		return withDatabase(func(cmd *cobra.Command, db *database.DB) error {
			manager := profile.NewManager(profile.NewDatastore(db.DB, db.Dialect))
			if err := manager.SetLeader(cmd.Context(), uid, isLeader); err != nil {
				if errors.Is(err, profile.ErrNotFound) {
					return fmt.Errorf("no profile registered for uid %q", uid)
				}
				return err
			}

			if isLeader {
				fmt.Fprintf(cmd.OutOrStdout(), "granted leader role to %s\n", uid)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "revoked leader role from %s\n", uid)
			}
			return nil
		})(cmd, args)
	}
}
