package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tunnelvisionlabs/language-types/internal/registry"
)

var listFormat string

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "pretty", "output format (pretty|json)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the polyfills in the template registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(listFormat) {
		case "pretty":
			renderRegistry(cmd.OutOrStdout(), registry.Default())
			return nil
		case "json":
			return renderRegistryJSON(cmd.OutOrStdout(), registry.Default())
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", listFormat)
		}
	},
}

type templatePayload struct {
	Key          string   `json:"key"`
	Artifact     string   `json:"artifact"`
	Prerequisite string   `json:"prerequisite,omitempty"`
	Variants     []string `json:"variants"`
}

type registryPayload struct {
	Version   uint32            `json:"version"`
	Polyfills []templatePayload `json:"polyfills"`
}

func registryRows(reg *registry.Registry) []templatePayload {
	keys := reg.Keys()
	out := make([]templatePayload, 0, len(keys))
	for _, k := range keys {
		tpl, _ := reg.Lookup(k)
		p := templatePayload{Key: k.String(), Artifact: tpl.Artifact, Variants: tpl.Variants()}
		if tpl.HasPrerequisite() {
			p.Prerequisite = tpl.Prerequisite.String()
		}
		out = append(out, p)
	}
	return out
}

func renderRegistry(w io.Writer, reg *registry.Registry) {
	fmt.Fprintf(w, "registry v%d: %d polyfills\n\n", reg.Version(), reg.Len())
	var rows [][]string
	for _, p := range registryRows(reg) {
		prereq := p.Prerequisite
		if prereq == "" {
			prereq = "-"
		}
		rows = append(rows, []string{p.Key, p.Artifact, prereq, strings.Join(p.Variants, ",")})
	}
	renderTable(w, []string{"KEY", "ARTIFACT", "PREREQUISITE", "VARIANTS"}, rows, nil)
}

func renderRegistryJSON(w io.Writer, reg *registry.Registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(registryPayload{Version: reg.Version(), Polyfills: registryRows(reg)})
}
