package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"mountctl/internal/config"
	"mountctl/internal/log"
	"mountctl/internal/mount"
	"mountctl/internal/state"
	"mountctl/internal/validation"
	"mountctl/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:  "mountctl",
		Usage: "Converge a mount point against the mount table and the running system",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Path to the mount point, e.g. /mnt/files",
			},
			&cli.StringFlag{
				Name:  "src",
				Usage: "Device or source to be mounted",
			},
			&cli.StringFlag{
				Name:    "fstype",
				Aliases: []string{"t"},
				Usage:   "Filesystem type",
			},
			&cli.StringFlag{
				Name:    "opts",
				Aliases: []string{"o"},
				Usage:   "Mount options (see fstab(8))",
			},
			&cli.StringFlag{
				Name:  "dump",
				Usage: "Dump frequency field (see fstab(8))",
			},
			&cli.StringFlag{
				Name:  "passno",
				Usage: "Fsck pass number field (see fstab(8))",
			},
			&cli.StringFlag{
				Name:    "state",
				Aliases: []string{"s"},
				Usage:   "Target state: present, absent, mounted or unmounted",
			},
			&cli.StringFlag{
				Name:    "fstab",
				Aliases: []string{"f"},
				Usage:   "Mount table file to edit instead of " + config.DefaultFstabPath,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"V"},
				Usage:   "Print version information",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Handle version flag
	if cmd.Bool("version") {
		fmt.Println(version.String())
		return nil
	}

	// Setup logging
	log.Setup(cmd.Bool("verbose"))

	// Load config file
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Merge CLI flags (CLI takes precedence)
	cfg.Merge(cmd.String("fstab"))

	// Apply defaults
	cfg.ApplyDefaults()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	req := state.Request{
		Name:   cmd.String("name"),
		Src:    cmd.String("src"),
		FSType: cmd.String("fstype"),
		Opts:   cmd.String("opts"),
		Dump:   cmd.String("dump"),
		Passno: cmd.String("passno"),
		State:  state.State(cmd.String("state")),
		Fstab:  cfg.Fstab,
	}

	// Reject bad input before anything is touched
	if err := validateRequest(req); err != nil {
		return err
	}

	log.Debug("converging mount point",
		"name", req.Name,
		"state", string(req.State),
		"fstab", req.Fstab,
	)

	mounter := mount.NewExecMounter(cfg.MountBin, cfg.UmountBin)
	machine := state.NewMachine(mounter, mounter)

	res, err := machine.Apply(req)
	if err != nil {
		return err
	}

	fmt.Printf("changed=%t name=%s src=%s fstype=%s opts=%s dump=%s passno=%s\n",
		res.Changed, res.Entry.Target, res.Entry.Source, res.Entry.FSType,
		res.Entry.Options, res.Entry.DumpFreq, res.Entry.PassNo)
	return nil
}

func validateRequest(req state.Request) error {
	if err := validation.ValidateRequired("state", string(req.State)); err != nil {
		return err
	}
	if err := validation.ValidateState(string(req.State)); err != nil {
		return err
	}
	if err := validation.ValidateTarget(req.Name); err != nil {
		return err
	}
	if err := validation.ValidateRequired("src", req.Src); err != nil {
		return err
	}
	if err := validation.ValidateRequired("fstype", req.FSType); err != nil {
		return err
	}
	return validation.ValidateOptions(req.Opts)
}
