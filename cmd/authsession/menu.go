package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/authsession/menu"
)

func newMenuCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		active string
	)
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the navigation menu visible to the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := bootSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			entries := menu.Default()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if entries, err = menu.LoadYAML(f); err != nil {
					return err
				}
			}
			preds := menu.DefaultPredicates()
			if err := menu.Validate(entries, s.client.PermissionEngine().Registry(), preds); err != nil {
				return err
			}

			visible := preds.Filter(entries, s.client.Snapshot())
			var activeKey string
			if active != "" {
				if e, ok := menu.Active(visible, active); ok {
					activeKey = e.Key
				}
			}
			printMenu(cmd.OutOrStdout(), visible, activeKey, 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "menu YAML (default: built-in menu)")
	cmd.Flags().StringVar(&active, "active", "", "mark the entry matching this path")
	return cmd
}

func printMenu(w io.Writer, entries []menu.Entry, activeKey string, depth int) {
	for _, e := range entries {
		marker := " "
		if e.Key == activeKey {
			marker = "*"
		}
		line := strings.Repeat("  ", depth) + marker + " " + e.Label
		if e.Href != "" {
			line += "  " + e.Href
		}
		fmt.Fprintln(w, line)
		printMenu(w, e.Children, activeKey, depth+1)
	}
}
