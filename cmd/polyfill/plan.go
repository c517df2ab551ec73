package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tunnelvisionlabs/language-types/internal/decision"
	"github.com/tunnelvisionlabs/language-types/internal/gen"
	"github.com/tunnelvisionlabs/language-types/internal/registry"
)

var (
	planFlags  generatorFlags
	planFormat string
)

func init() {
	planFlags.register(planCmd)
	planCmd.Flags().StringVar(&planFormat, "format", "pretty", "output format (pretty|json)")
}

var planCmd = &cobra.Command{
	Use:   "plan <compilation.toml>",
	Short: "Show what gen would do for a compilation without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(planFormat)
		if format != "pretty" && format != "json" {
			return fmt.Errorf("unsupported format %q (must be pretty or json)", planFormat)
		}
		cfg, err := configForCommand(cmd)
		if err != nil {
			return err
		}
		opts, err := generatorOptions(cmd, cfg, &planFlags)
		if err != nil {
			return err
		}
		comps, err := loadCompilations(args)
		if err != nil {
			return err
		}
		g, err := gen.New(registry.Default(), opts)
		if err != nil {
			return err
		}
		res, err := g.Plan(cmd.Context(), comps[0])
		if err != nil {
			return err
		}
		if format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(planPayload(res))
		}
		renderPlanTable(cmd.OutOrStdout(), res)
		return nil
	},
}

type stepPayload struct {
	Key      string `json:"key"`
	State    string `json:"state"`
	Decision string `json:"decision"`
	Variant  string `json:"variant"`
	Artifact string `json:"artifact,omitempty"`
}

func planPayload(res *gen.Result) []stepPayload {
	out := make([]stepPayload, len(res.Plan))
	for i, s := range res.Plan {
		out[i] = stepPayload{
			Key:      s.Key.String(),
			State:    s.State.String(),
			Decision: s.Decision.String(),
			Variant:  s.Variant,
			Artifact: s.Artifact,
		}
	}
	return out
}

var decisionStyles = map[string]lipgloss.Style{
	decision.EmitDefinition.String(): lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	decision.EmitForward.String():    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	decision.Suppress.String():       lipgloss.NewStyle().Faint(true),
}

func renderPlanTable(w io.Writer, res *gen.Result) {
	fmt.Fprintf(w, "%s  %s\n\n", res.Unit, res.Fingerprint.Short())
	rows := make([][]string, len(res.Plan))
	for i, s := range res.Plan {
		artifact := s.Artifact
		if artifact == "" {
			artifact = "-"
		}
		rows[i] = []string{s.Key.String(), s.State.String(), s.Decision.String(), s.Variant, artifact}
	}
	renderTable(w, []string{"KEY", "STATE", "DECISION", "VARIANT", "ARTIFACT"}, rows, func(col int, cell string) *lipgloss.Style {
		if col != 2 {
			return nil
		}
		if st, ok := decisionStyles[cell]; ok {
			return &st
		}
		return nil
	})
	fmt.Fprintf(w, "\n%d defined, %d forwarded, %d suppressed\n",
		res.Count(decision.EmitDefinition), res.Count(decision.EmitForward), res.Count(decision.Suppress))
}
