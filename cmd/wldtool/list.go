package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var details, indexed bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List worlds in the world folders",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if indexed {
				idx, err := a.openIndex()
				if err != nil {
					return err
				}
				defer idx.Close()
				rows, err := idx.Worlds(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range rows {
					fmt.Fprintf(out, "%-24s v%d %4d chests  indexed %s\n",
						r.Name, r.Version, r.Chests, humanize.Time(r.IndexedAt))
				}
				return nil
			}

			entries, err := a.lib.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No worlds found in %v\n", a.lib.Dirs())
				return nil
			}
			for _, e := range entries {
				name := e.Name
				if e.Backup {
					name += " (backup)"
				}
				fmt.Fprintf(out, "%-24s %8s  %s", name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime))
				if details {
					w, err := a.lib.Open(e.Path, nil)
					if err != nil {
						fmt.Fprintf(out, "  error: %v", err)
					} else {
						fmt.Fprintf(out, "  %q v%d %dx%d", w.Name(), w.Version, w.Width(), w.Height())
					}
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&details, "details", "l", false, "Decode each world to show its name and size")
	cmd.Flags().BoolVar(&indexed, "indexed", false, "List worlds in the chest index instead")
	return cmd
}
