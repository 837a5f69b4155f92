package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crystal-mush/omega/pkg/archive"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List, verify and extract run bundles written with --archive",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <dir>",
		Short: "List bundles, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundles, err := archive.List(args[0])
			if err != nil {
				return reportError(cmd, err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-45s %-20s %-14s %8s %10s\n", "File", "Timestamp", "Mode", "Objects", "Bytes")
			for _, b := range bundles {
				fmt.Fprintf(w, "%-45s %-20s %-14s %8d %10d\n", b.Filename, b.Timestamp, b.Mode, b.Objects, b.Size)
			}
			fmt.Fprintf(w, "\n%d bundles\n", len(bundles))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <bundle>",
		Short: "Check every file of a bundle against its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := archive.Verify(args[0])
			if err != nil {
				return reportError(cmd, err)
			}
			w := cmd.OutOrStdout()
			names := make([]string, 0, len(m.Files))
			for name := range m.Files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				e := m.Files[name]
				fmt.Fprintf(w, "ok  %-8s %-40s %s\n", e.Type, name, e.SHA256[:12])
			}
			fmt.Fprintf(w, "\n%s run of %s, %d objects\n", m.Mode, m.Timestamp, m.Objects)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "extract <bundle> <dir>",
		Short: "Verify a bundle and unpack it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := archive.Extract(args[0], args[1])
			if err != nil {
				return reportError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s\n", len(m.Files), args[1])
			return nil
		},
	})
	return cmd
}
