package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

type watchFlags struct {
	buildFlags
}

func watchCmd() *cobra.Command {
	flags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <file.edb>",
		Short: "Re-check and rebuild on every save of the schema/query file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runWatch(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to emdbc.toml")
	cmd.Flags().StringVar(&flags.pkg, "package", "", "output package name (overrides config)")
	cmd.Flags().StringVarP(&flags.target, "target", "o", "", "output directory (overrides config)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "parallel file-generation workers (overrides config)")
	return cmd
}

// runWatch watches path's containing directory rather than path itself:
// most editors save by rename-into-place, which fsnotify sees as the
// watched path disappearing, not as a Write event on it.
func runWatch(path string, flags *watchFlags) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("emdbc: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("emdbc: watch %q: %w", dir, err)
	}

	runOnce := func() {
		if err := runCheck(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if err := runBuild(path, &flags.buildFlags); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	runOnce()
	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("emdbc: %w", err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			evAbs, err := filepath.Abs(ev.Name)
			if err != nil || evAbs != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "emdbc: watch error:", err)
		}
	}
}
