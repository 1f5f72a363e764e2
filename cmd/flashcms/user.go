package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/goflash/flashcms/config"
	"github.com/goflash/flashcms/credential"
)

func newUserCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts in the users file",
	}
	cmd.AddCommand(newUserAddCmd(root), newUserRemoveCmd(root), newUserListCmd(root))
	return cmd
}

func usersStore(cfg *config.Config) *credential.Store {
	return credential.NewStore(cfg.UsersFile, credential.WithCost(cfg.Security.BcryptCost))
}

func newUserAddCmd(root *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Long: `Create an account. The password is taken from --password, prompted for
when stdin is a terminal, or read from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			username := args[0]
			if !cmd.Flags().Changed("password") {
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}

			switch err := usersStore(cfg).Add(username, password); {
			case errors.Is(err, credential.ErrUserExists):
				return fmt.Errorf("user %q already exists", username)
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", username, cfg.UsersFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for the new account")
	return cmd
}

func newUserRemoveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Delete an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := usersStore(cfg).Remove(args[0]); err != nil {
				if errors.Is(err, credential.ErrUserNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[0], cfg.UsersFile)
			return nil
		},
	}
}

func newUserListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print every username",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			names, err := usersStore(cfg).Usernames()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

// readPassword prompts twice on a terminal and otherwise reads one line.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		first, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Confirm password: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
