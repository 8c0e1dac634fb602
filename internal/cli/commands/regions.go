package commands

import (
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/regionmap/internal/cli/output"
	"github.com/leapstack-labs/regionmap/internal/ui/features/common"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/spf13/cobra"
)

const triggerList = "list"

// RegionsOptions holds options for the regions command.
type RegionsOptions struct {
	WithData bool
	Band     string
}

// NewRegionsCommand creates the regions command.
func NewRegionsCommand() *cobra.Command {
	opts := &RegionsOptions{}
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List regions with their value and band",
		Long: `Build the region table and list every region with its value, colour band
and the three ratios the value is the minimum of.`,
		Example: `  # List all regions
  regionmap regions

  # Only the regions in the red band
  regionmap regions --band red

  # Regions with a value, as JSON
  regionmap regions --with-data -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegions(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.WithData, "with-data", false, "Only list regions that carry a value")
	cmd.Flags().StringVar(&opts.Band, "band", "", "Only list regions in a band: red, yellow, green, none")
	_ = cmd.RegisterFlagCompletionFunc("band", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"red", "yellow", "green", "none"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// regionSummary is the JSON shape of a listed region.
type regionSummary struct {
	Name           string   `json:"name"`
	HasData        bool     `json:"has_data"`
	Value          *float64 `json:"value"`
	Band           string   `json:"band"`
	Staffing       *float64 `json:"staffing"`
	CashUse        *float64 `json:"cash_use"`
	Serviceability *float64 `json:"serviceability"`
}

func newRegionSummary(reg core.Region) regionSummary {
	s := regionSummary{
		Name:    reg.Name,
		HasData: reg.HasData(),
		Value:   reg.Value(),
		Band:    string(common.BandFor(reg.Value())),
	}
	if org := reg.Organization; org != nil {
		s.Staffing = org.Metrics.Staffing
		s.CashUse = org.Metrics.CashUse
		s.Serviceability = org.Metrics.Serviceability
	}
	return s
}

func runRegions(cmd *cobra.Command, opts *RegionsOptions) error {
	if opts.Band != "" && !slices.Contains([]string{"red", "yellow", "green", "none"}, opts.Band) {
		return fmt.Errorf("invalid band %q: want red, yellow, green or none", opts.Band)
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	res, err := cc.Runner(nil, nil).Run(cmd.Context(), triggerList)
	if err != nil {
		return err
	}

	regions := make([]regionSummary, 0, res.Table.Len())
	for _, reg := range res.Table.Regions() {
		s := newRegionSummary(reg)
		if opts.WithData && !s.HasData {
			continue
		}
		if opts.Band != "" && s.Band != opts.Band {
			continue
		}
		regions = append(regions, s)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(regions)
	}

	r.Header(1, fmt.Sprintf("Regions (%d of %d, %d with data)", len(regions), res.Table.Len(), res.Table.WithData()))
	rows := make([][]string, 0, len(regions))
	for _, s := range regions {
		rows = append(rows, []string{
			s.Name,
			common.Percent(s.Value),
			bandLabel(r, common.Band(s.Band)),
			common.Percent(s.Staffing),
			common.Percent(s.CashUse),
			common.Percent(s.Serviceability),
		})
	}
	r.Table([]string{"Region", "Value", "Band", "Staffing", "Cash use", "Serviceability"}, rows)
	return nil
}

// NewRegionCommand creates the region command.
func NewRegionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "region <name>",
		Short: "Show one region in detail",
		Long: `Show the organization record, derived ratios, analytic record, source
file and feature properties of one region. The name must match exactly.`,
		Example: `  regionmap region Adygeya
  regionmap region "Altai Republic" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runRegion,
	}
}

// regionDetail is the JSON shape of one region.
type regionDetail struct {
	regionSummary
	City       string         `json:"city,omitempty"`
	Source     sourceInfo     `json:"source"`
	Analytic   *analyticInfo  `json:"analytic,omitempty"`
	Properties map[string]any `json:"properties"`
}

type analyticInfo struct {
	RegionName       string  `json:"region_name"`
	Value            float64 `json:"value"`
	PercentChange    float64 `json:"percent_change"`
	BudgetMillions   float64 `json:"budget_millions"`
	PopulationChange float64 `json:"population_change"`
	Details          string  `json:"details"`
}

func runRegion(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	res, err := cc.Runner(nil, nil).Run(cmd.Context(), triggerList)
	if err != nil {
		return err
	}

	reg, ok := res.Table.Lookup(args[0])
	if !ok {
		return fmt.Errorf("region %q not found", args[0])
	}

	detail := regionDetail{
		regionSummary: newRegionSummary(reg),
		Source: sourceInfo{
			Path:   reg.Source.Path,
			Kind:   string(reg.Source.Kind),
			Size:   reg.Source.Size,
			SHA256: reg.Source.SHA256,
		},
		Properties: reg.Properties,
	}
	if reg.Organization != nil {
		detail.City = reg.Organization.City
	}
	if a := reg.Analytic; a != nil {
		detail.Analytic = &analyticInfo{
			RegionName:       a.RegionName,
			Value:            a.Value,
			PercentChange:    a.PercentChange,
			BudgetMillions:   a.BudgetMillions,
			PopulationChange: a.PopulationChange,
			Details:          a.Details,
		}
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(detail)
	}

	r.Header(1, "Region: "+detail.Name)
	if detail.City != "" {
		r.KeyValue("City", detail.City)
	}
	r.KeyValue("Value", common.Percent(detail.Value)+" "+bandLabel(r, common.Band(detail.Band)))
	r.KeyValue("Staffing", common.Percent(detail.Staffing))
	r.KeyValue("Cash use", common.Percent(detail.CashUse))
	r.KeyValue("Equipment serviceability", common.Percent(detail.Serviceability))
	r.KeyValue("Source", fmt.Sprintf("%s (%s)", detail.Source.Path, shortHash(detail.Source.SHA256)))

	if a := detail.Analytic; a != nil {
		r.Println("")
		r.Header(2, "Analytics")
		r.KeyValue("Region name", a.RegionName)
		r.KeyValue("Value", fmt.Sprintf("%g", a.Value))
		r.KeyValue("Percent change", fmt.Sprintf("%g", a.PercentChange))
		r.KeyValue("Budget, millions", fmt.Sprintf("%g", a.BudgetMillions))
		r.KeyValue("Population change", fmt.Sprintf("%g", a.PopulationChange))
		if a.Details != "" {
			r.KeyValue("Details", a.Details)
		}
	}

	if len(detail.Properties) > 0 {
		r.Println("")
		r.Header(2, "Properties")
		rows := make([][]string, 0, len(detail.Properties))
		for _, k := range slices.Sorted(maps.Keys(detail.Properties)) {
			rows = append(rows, []string{k, fmt.Sprintf("%v", detail.Properties[k])})
		}
		r.Table([]string{"Property", "Value"}, rows)
	}
	return nil
}

// bandLabel names a band, coloured like the map when the renderer styles text.
func bandLabel(r *output.Renderer, b common.Band) string {
	styles := r.Styles()
	switch b {
	case common.BandRed:
		return styles.Error.Render(string(b))
	case common.BandYellow:
		return styles.Warning.Render(string(b))
	case common.BandGreen:
		return styles.Success.Render(string(b))
	default:
		return styles.Muted.Render(string(b))
	}
}
