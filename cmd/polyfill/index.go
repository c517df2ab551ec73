package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tunnelvisionlabs/language-types/internal/refindex"
)

var (
	indexUnit string
	indexOut  string
)

func init() {
	indexCmd.Flags().StringVar(&indexUnit, "unit", "", "name of the unit that exports the symbols")
	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "index file to write")
	_ = indexCmd.MarkFlagRequired("unit")
	_ = indexCmd.MarkFlagRequired("out")
}

var indexCmd = &cobra.Command{
	Use:   "index --unit NAME --out FILE <symbols.txt>",
	Short: "Build a binary export index for a referenced unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return fmt.Errorf("failed to get quiet flag: %w", err)
		}
		x, err := buildIndexFile(indexUnit, args[0], indexOut)
		if err != nil {
			return err
		}
		if !quiet {
			internal := 0
			for _, s := range x.Symbols {
				if s.Internal {
					internal++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d symbols (%d internal) for %s -> %s\n", x.Count, internal, x.Unit, indexOut)
		}
		return nil
	},
}

func buildIndexFile(unit, src, dst string) (*refindex.Index, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	x, err := refindex.Build(unit, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if err := refindex.Write(dst, x); err != nil {
		return nil, err
	}
	return x, nil
}
