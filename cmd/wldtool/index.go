package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Faultbox/terrafirma/internal/index"
	"github.com/Faultbox/terrafirma/internal/logger"
)

func (a *app) openIndex() (*index.Index, error) {
	return index.Open(a.cfg.Index.Path, logger.Named("index"))
}

func (a *app) indexCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "index [world...]",
		Short: "Add worlds to the chest index",
		Long: `Decode worlds and store their chest contents in the SQLite index used
by find. With no arguments every world in the world folders is indexed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			paths := args
			if len(paths) == 0 {
				entries, err := a.lib.List()
				if err != nil {
					return err
				}
				for _, e := range entries {
					if !e.Backup {
						paths = append(paths, e.Path)
					}
				}
			}

			failed := 0
			for _, arg := range paths {
				path, err := a.lib.Resolve(arg)
				if err != nil {
					return err
				}
				if remove {
					if err := idx.Remove(ctx, path); err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %s\n", path)
					continue
				}

				w, err := a.lib.Open(path, nil)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s: %v\n", path, err)
					failed++
					continue
				}
				if err := idx.IndexWorld(ctx, path, w); err != nil {
					return err
				}
				fmt.Fprintf(out, "Indexed %s: %s chests\n", w.Name(), humanize.Comma(int64(len(w.Chests))))
			}
			if failed > 0 {
				return fmt.Errorf("%d world(s) could not be indexed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the worlds from the index instead")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var world string
	cmd := &cobra.Command{
		Use:   "find <item>",
		Short: "Find chests holding an item",
		Long: `Search chest contents for items whose name contains the query.

By default the chest index is searched across all indexed worlds; with
--world a single world is decoded and searched directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if world != "" {
				w, _, err := a.openWorld(cmd, world)
				if err != nil {
					return err
				}
				for _, group := range w.ChestsByItem(args[0]) {
					for _, c := range group.Chests {
						fmt.Fprintf(out, "%s\t%s\t%s\n", group.Item, w.Name(), chestLabel(c))
					}
				}
				return nil
			}

			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			hits, err := idx.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, h := range hits {
				item := h.Item
				if h.Prefix != "" {
					item = h.Prefix + " " + item
				}
				fmt.Fprintf(out, "%s x%d\t%s\t(%d, %d) %s\n", item, h.Stack, h.World, h.X, h.Y, h.Chest)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No matches")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&world, "world", "w", "", "Search one world instead of the index")
	return cmd
}
