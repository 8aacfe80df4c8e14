package main

import (
	"fmt"
	"os"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/engine"
	"github.com/clrlite/clrlite/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var searchDir string
	var verifySignatures bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run <file.exe> [args...]",
		Short: "Load and interpret a .NET PE+CLI assembly's entry point",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := zap.NewNop().Sugar()
			if verbose {
				z, _ := zap.NewDevelopment()
				logger = z.Sugar()
			}

			path := args[0]
			progArgs := args[1:]

			// A bare Loader (no resolver yet) is enough to parse the main file;
			// the engine builds its own Loader, wired to its own resolver, for
			// the AssemblyRef walk that happens inside Start.
			main, err := loader.New(nil, loader.Options{SearchDir: searchDir, VerifySignatures: verifySignatures, Logger: logger}).LoadFile(path)
			if err != nil {
				fmt.Printf("Error while loading %s: %s\n", path, err)
				os.Exit(1)
			}

			e := engine.New(main, engine.Options{
				SearchDir:        searchDir,
				VerifySignatures: verifySignatures,
				Logger:           logger,
			})

			if err := e.Start(progArgs); err != nil {
				if clrErr, ok := err.(*clrerror.Error); ok {
					fmt.Println(clrErr.Banner(path))
				} else {
					fmt.Println(err)
				}
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&searchDir, "search-dir", "", "directory to search for referenced assemblies")
	cmd.Flags().BoolVar(&verifySignatures, "verify-signatures", false, "log Authenticode signature status for every loaded assembly")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	return cmd
}
