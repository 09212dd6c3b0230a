package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <world>",
		Short: "Show world summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, path, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "World:    %s\n", w.Name())
			if st, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "File:     %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))
			}
			fmt.Fprintf(out, "Version:  %d (revision %d)\n", w.Version, w.Revision)
			fmt.Fprintf(out, "Size:     %s x %s tiles\n",
				humanize.Comma(int64(w.Width())), humanize.Comma(int64(w.Height())))
			if id, err := w.Header.GUID(); err == nil {
				fmt.Fprintf(out, "GUID:     %s\n", id)
			}
			fmt.Fprintf(out, "Levels:   ground %d, rock %d, hell %d\n", w.Depth.Ground, w.Depth.Rock, w.Depth.Hell)
			fmt.Fprintf(out, "Hardmode: %s\n", yesNo(w.Header.Is("hardMode")))
			fmt.Fprintf(out, "Chests:   %d\n", len(w.Chests))
			fmt.Fprintf(out, "Signs:    %d\n", len(w.Signs))
			fmt.Fprintf(out, "NPCs:     %d\n", len(w.NPCs))
			fmt.Fprintf(out, "Entities: %d\n", w.Entities.Len())
			fmt.Fprintf(out, "Kills:    %d kinds\n", len(w.Bestiary.Kills))
			return nil
		},
	}
}

func (a *app) headerCmd() *cobra.Command {
	var dump bool
	var keys []string
	cmd := &cobra.Command{
		Use:   "header <world>",
		Short: "Print header fields",
		Long: `Print the decoded header fields in file order.

Use --key to print selected fields only; fields the world's version does
not store are reported as missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if dump {
				spew.Fdump(out, w.Header)
				return nil
			}
			if len(keys) == 0 {
				keys = w.Header.Keys()
			}
			for _, k := range keys {
				v, err := w.Header.Get(k)
				if err != nil {
					fmt.Fprintf(out, "%-28s (missing)\n", k)
					continue
				}
				fmt.Fprintf(out, "%-28s %s\n", k, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the raw header structure")
	cmd.Flags().StringSliceVarP(&keys, "key", "k", nil, "Print only these fields")
	return cmd
}

func itemLabel(it wld.ChestItem) string {
	name := it.Label()
	if it.Prefix != "" {
		name = it.Prefix + " " + name
	}
	if it.Stack > 1 {
		name = fmt.Sprintf("%s x%d", name, it.Stack)
	}
	return name
}

func chestLabel(c *wld.Chest) string {
	return fmt.Sprintf("(%d, %d) %q", c.X, c.Y, c.Label())
}

func (a *app) chestsCmd() *cobra.Command {
	var item string
	var byItem bool
	cmd := &cobra.Command{
		Use:   "chests <world>",
		Short: "List chests and their contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if byItem || item != "" {
				for _, group := range w.ChestsByItem(item) {
					fmt.Fprintf(out, "%s (%d)\n", group.Item, len(group.Chests))
					for _, c := range group.Chests {
						fmt.Fprintf(out, "  %s\n", chestLabel(c))
					}
				}
				return nil
			}

			for i := range w.Chests {
				c := &w.Chests[i]
				fmt.Fprintf(out, "%s %d/%d\n", chestLabel(c), len(c.Items), c.Capacity)
				for _, it := range c.Items {
					fmt.Fprintf(out, "  %2d %s\n", it.Slot, itemLabel(it))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&item, "item", "i", "", "Group by item, keeping names containing this text")
	cmd.Flags().BoolVar(&byItem, "by-item", false, "Group chests by the items they hold")
	return cmd
}

func (a *app) signsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signs <world>",
		Short: "List signs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			for _, s := range w.Signs {
				text := strings.ReplaceAll(s.Text, "\n", " / ")
				fmt.Fprintf(cmd.OutOrStdout(), "(%d, %d) %s\n", s.X, s.Y, text)
			}
			return nil
		},
	}
}

func (a *app) npcsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "npcs <world>",
		Short: "List town NPCs and pets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range w.NPCs {
				title := n.Title
				if title == "" {
					title = fmt.Sprintf("npc #%d", n.Sprite)
				}
				var notes []string
				if n.Pet {
					notes = append(notes, "pet")
				}
				if n.Homeless && !n.Pet {
					notes = append(notes, "homeless")
				} else if !n.Pet {
					notes = append(notes, fmt.Sprintf("home %d,%d", n.HomeX, n.HomeY))
				}
				if n.Shimmered {
					notes = append(notes, "shimmered")
				}
				name := n.Name
				if name == "" {
					name = title
				}
				fmt.Fprintf(out, "%-16s %-14s (%.0f, %.0f) %s\n", title, name, n.X/16, n.Y/16, strings.Join(notes, ", "))
			}
			return nil
		},
	}
}

func (a *app) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities <world>",
		Short: "List tile entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			e := &w.Entities
			name := func(id int32) string {
				if n := a.info.ItemName(id); n != "" {
					return n
				}
				return fmt.Sprintf("#%d", id)
			}

			for _, d := range e.Dummies {
				fmt.Fprintf(out, "dummy        (%d, %d) npc %d\n", d.X, d.Y, d.NPC)
			}
			for _, f := range e.ItemFrames {
				fmt.Fprintf(out, "item frame   (%d, %d) %s x%d\n", f.X, f.Y, name(int32(f.Item)), f.Stack)
			}
			for _, s := range e.LogicSensors {
				fmt.Fprintf(out, "sensor       (%d, %d) kind %d on=%s\n", s.X, s.Y, s.Kind, yesNo(s.On))
			}
			for _, d := range e.Dolls {
				var worn []string
				for _, id := range d.Armor {
					if id != 0 {
						worn = append(worn, name(int32(id)))
					}
				}
				fmt.Fprintf(out, "display doll (%d, %d) %s\n", d.X, d.Y, strings.Join(worn, ", "))
			}
			for _, r := range e.WeaponsRacks {
				fmt.Fprintf(out, "weapons rack (%d, %d) %s\n", r.X, r.Y, name(int32(r.Item)))
			}
			for _, r := range e.HatRacks {
				var hats []string
				for _, id := range r.Hats {
					if id != 0 {
						hats = append(hats, name(int32(id)))
					}
				}
				fmt.Fprintf(out, "hat rack     (%d, %d) %s\n", r.X, r.Y, strings.Join(hats, ", "))
			}
			for _, p := range e.FoodPlatters {
				fmt.Fprintf(out, "food platter (%d, %d) %s\n", p.X, p.Y, name(int32(p.Item)))
			}
			return nil
		},
	}
}

func (a *app) bestiaryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "bestiary <world>",
		Short: "Show bestiary kills and unlocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.openWorld(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			kills := w.Bestiary.KillsSorted()
			if limit > 0 && len(kills) > limit {
				kills = kills[:limit]
			}
			fmt.Fprintf(out, "Kills (%d kinds):\n", len(w.Bestiary.Kills))
			for _, k := range kills {
				fmt.Fprintf(out, "  %-24s %s\n", k.NPC, humanize.Comma(int64(k.Count)))
			}
			fmt.Fprintf(out, "Seen:   %d\n", len(w.Bestiary.Seen))
			fmt.Fprintf(out, "Chats:  %d\n", len(w.Bestiary.Chats))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most N kill entries (0 = all)")
	return cmd
}
