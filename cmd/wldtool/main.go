// wldtool is a CLI utility for inspecting Terraria world files.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/terrafirma/internal/config"
	"github.com/Faultbox/terrafirma/internal/library"
	"github.com/Faultbox/terrafirma/internal/loader"
	"github.com/Faultbox/terrafirma/internal/logger"
	"github.com/Faultbox/terrafirma/pkg/wld"
	"github.com/Faultbox/terrafirma/pkg/worldinfo"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every command needs once flags are parsed.
type app struct {
	flags    *config.Flags
	progress bool

	cfg  *config.Config
	log  *zap.Logger
	info *worldinfo.Info
	dec  *wld.Decoder
	lib  *library.Library
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "wldtool",
		Short: "Inspect Terraria world files",
		Long: `wldtool decodes Terraria world saves (.wld) and prints what they hold:
header fields, chests, signs, town NPCs, tile entities and the bestiary.

Worlds can be named by path or by name; names are looked up in the
configured world folders. Gzip and zstd compressed backups are read
transparently.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return a.close() },
	}
	a.flags = config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVarP(&a.progress, "progress", "p", false, "Print load progress to stderr")

	root.AddCommand(
		a.infoCmd(),
		a.headerCmd(),
		a.chestsCmd(),
		a.signsCmd(),
		a.npcsCmd(),
		a.entitiesCmd(),
		a.bestiaryCmd(),
		a.minimapCmd(),
		a.indexCmd(),
		a.findCmd(),
		a.listCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		return err
	}
	a.log = logger.Log

	if cfg.Data.RegistryDir != "" {
		a.info, err = worldinfo.Load(os.DirFS(cfg.Data.RegistryDir))
	} else {
		a.info, err = worldinfo.Default()
	}
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	a.dec, err = wld.NewDecoder(a.info, cfg.DecoderOptions(), logger.Named("decoder"))
	if err != nil {
		return err
	}

	a.lib, err = library.New(cfg.Library.WorldDirs, a.dec, library.Options{
		CacheMaxMB: cfg.Library.CacheMaxMB,
		CacheTTL:   cfg.Library.CacheTTL,
	}, logger.Named("library"))
	return err
}

func (a *app) close() error {
	if a.lib != nil {
		a.lib.Close()
	}
	logger.Sync()
	return nil
}

// openWorld resolves arg and decodes it on the background loader, echoing
// progress when requested.
func (a *app) openWorld(cmd *cobra.Command, arg string) (*wld.World, string, error) {
	path, err := a.lib.Resolve(arg)
	if err != nil {
		return nil, "", err
	}

	l := loader.New(a.dec, logger.Named("loader"))
	if err := l.Load(path); err != nil {
		return nil, "", err
	}

	ctx := cmd.Context()
	if a.progress {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		last := ""
		for st := l.Status(); st.Loading; st = l.Status() {
			if st.Message != last {
				fmt.Fprintln(cmd.ErrOrStderr(), st.Message)
				last = st.Message
			}
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-ticker.C:
			}
		}
	}

	w, err := l.Wait(ctx)
	if err != nil {
		return nil, "", err
	}
	if a.progress {
		fmt.Fprintf(cmd.ErrOrStderr(), "Loaded in %v\n", l.Elapsed().Round(time.Millisecond))
	}
	return w, path, nil
}
