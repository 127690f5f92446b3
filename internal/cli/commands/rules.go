package commands

import (
	"fmt"
	"strings"

	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
	"github.com/spf13/cobra"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules [kind]",
		Short: "List the rule catalog of each layer kind",
		Long: `List the required fields, expected field types and record rules applied
to each layer kind. Pass a kind name to show a single catalog.`,
		Example: `  gdbcheck rules
  gdbcheck rules ROAD -o markdown`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var names []string
			for _, k := range core.LayerKinds() {
				names = append(names, k.String())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runRules,
	}
}

func runRules(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	catalogs := rules.All()
	if len(args) == 1 {
		kind, ok := core.ParseLayerKind(args[0])
		if !ok {
			return fmt.Errorf("unknown layer kind %q", args[0])
		}
		cat, _ := rules.ForKind(kind)
		catalogs = []*rules.Catalog{cat}
	}
	out := buildRulesOutput(catalogs)

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	for i, cat := range out.Catalogs {
		if i > 0 {
			r.Println()
		}
		r.Header(1, cat.Kind)
		r.Printf("Layers matching %s\n", cat.Pattern)
		r.Printf("Required: %s\n", strings.Join(cat.Required, ", "))
		if cat.Overlap != "" {
			r.Printf("Duplicated polygons: %s\n", cat.Overlap)
		}
		r.Println()
		rows := make([][]any, 0, len(cat.Rules))
		for _, rule := range cat.Rules {
			rows = append(rows, []any{rule.ID, rule.Kind, rule.Check, rule.Summary})
		}
		r.Table([]string{"ID", "Kind", "Check", "Rule"}, rows)
	}
	return nil
}

func buildRulesOutput(catalogs []*rules.Catalog) output.RulesOutput {
	out := output.RulesOutput{Catalogs: make([]output.CatalogInfo, 0, len(catalogs))}
	for _, cat := range catalogs {
		info := output.CatalogInfo{
			Kind:     cat.Kind.String(),
			Pattern:  cat.Kind.Pattern(),
			Required: cat.Required,
			Overlap:  cat.OverlapGroup,
		}
		for _, ft := range cat.Types {
			info.Types = append(info.Types, output.FieldTypeInfo{Field: ft.Name, Expected: ft.Expected.String()})
		}
		for _, rule := range cat.RecordRules() {
			info.Rules = append(info.Rules, output.RuleInfo{
				ID:      rule.ID,
				Kind:    rule.Kind.String(),
				Check:   string(rule.Check),
				Summary: rule.Summary(),
			})
		}
		out.Catalogs = append(out.Catalogs, info)
	}
	return out
}
