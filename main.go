package main

// mushroom - operator tool to train and test mushroom detector
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// version of the code
var version string

// helper function to return version string of the tool
func info() string {
	goVersion := runtime.Version()
	tstamp := time.Now().Format("2006-02-01")
	return fmt.Sprintf("mushroom git=%s go=%s date=%s", version, goVersion, tstamp)
}

// helper function to build root command with all sub-commands
func rootCommand(out io.Writer) *cobra.Command {
	var configFile string
	var verbose int
	var showVersion bool
	root := &cobra.Command{
		Use:           "mushroom",
		Short:         "Train and test chanterelle, death-cap and field-mushroom detector",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := parseConfig(configFile); err != nil {
				return NewError(InvalidInput, "unable to parse config "+configFile, err)
			}
			if cmd.Flags().Changed("verbose") {
				Config.Verbose = verbose
			}
			if err := setupLogger(Config.Verbose, Config.LogFile); err != nil {
				return err
			}
			if Config.Verbose > 0 {
				log.Printf("%+v\n", Config)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(out, info())
				return nil
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
	root.PersistentFlags().IntVar(&verbose, "verbose", 0, "verbosity level")
	root.Flags().BoolVar(&showVersion, "version", false, "print version information")

	// global flags passed to child processes started by setup
	selfArgs := func() []string {
		var args []string
		if configFile != "" {
			args = append(args, "--config", configFile)
		}
		if verbose > 0 {
			args = append(args, "--verbose", strconv.Itoa(verbose))
		}
		return args
	}
	root.AddCommand(
		checkCommand(out),
		setupCommand(out, selfArgs),
		trainCommand(out),
		testCommand(out),
		historyCommand(out),
	)
	return root
}

// CheckCommand returns command which verifies environment before training
func checkCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify python, GPU, dependencies, dataset and disk space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewValidator(ExecRunner{}, out).Run(cmd.Context())
		},
	}
}

// SetupCommand returns command which installs dependencies
func setupCommand(out io.Writer, selfArgs func() []string) *cobra.Command {
	var opts SetupOptions
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install dependencies, verify environment and optionally train or test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := os.Executable()
			if err != nil {
				return NewError(PrerequisiteMissing, "unable to locate mushroom executable", err)
			}
			return NewSetup(ExecRunner{}, out, self, selfArgs()).Run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Choice, "choice", ChoiceSetup,
		"next step: 1 - train now, 2 - setup only, 3 - quick test of existing model")
	cmd.Flags().BoolVarP(&opts.Confirm, "yes", "y", false, "confirm training start")
	return cmd
}

// TrainCommand returns command which trains the detector
func trainCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the detector with profile tuned for 6GB VRAM GPU",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, titleStyle.Render("🍄 Mushroom Detection Model Training"))
			fmt.Fprintln(out, "🎯 Dataset: "+DatasetClasses[0]+", "+DatasetClasses[1]+", "+DatasetClasses[2])
			fmt.Fprintln(out, "🖥️  Optimized for 6GB VRAM GPUs")
			fmt.Fprintln(out, separator(50))
			result, err := NewTrainer(ExecRunner{}, out).Run(cmd.Context())
			if result != nil {
				fmt.Fprintln(out, passStyle.Render("\n🎉 Training succeeded!"))
				fmt.Fprintln(out, "📝 To test the model run:")
				fmt.Fprintln(out, "   mushroom test")
			} else {
				fmt.Fprintln(out, failStyle.Render("\n❌ Training failed!"))
				fmt.Fprintln(out, "💡 Check GPU memory and reduce parameters")
			}
			return err
		},
	}
}

// TestCommand returns command which runs inference of trained model
func testCommand(out io.Writer) *cobra.Command {
	var mode, image string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run trained model on test images or on a given image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, titleStyle.Render("🍄 Mushroom Detection Model Test"))
			fmt.Fprintln(out, separator(40))
			m, err := testMode(mode)
			if err != nil {
				fmt.Fprintln(out, failStyle.Render("❌ Invalid option!"))
				return err
			}
			tester := NewTester(ExecRunner{}, out)
			if m == ModeSingle {
				return tester.RunSingle(cmd.Context(), image)
			}
			return tester.RunAuto(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", ModeAuto, "test mode: 1 or auto - sample test images, 2 or single - given image")
	cmd.Flags().StringVar(&image, "image", "", "image to analyze in single mode")
	return cmd
}

// HistoryCommand returns command which lists or removes recorded training runs
func historyCommand(out io.Writer) *cobra.Command {
	var model, remove string
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List training runs recorded in MetaData database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md := NewMetaData()
			if md == nil {
				fmt.Fprintln(out, "No MetaData database configured, set db_uri in configuration")
				return nil
			}
			if remove != "" {
				if err := md.Remove(remove); err != nil {
					return err
				}
				fmt.Fprintf(out, "🗑️  Removed training run %s\n", remove)
				return nil
			}
			return md.PrintHistory(out, model, limit, asJSON)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "training run name")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of most recent runs to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full records in JSON")
	cmd.Flags().StringVar(&remove, "remove", "", "remove training run with given run id")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCommand(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
	}
	os.Exit(ExitCode(err))
}
