package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrenrich/internal/feature"
	"github.com/sells-group/addrenrich/internal/postfile"
)

// inspectReport summarizes a registry file without calling the geocoder.
type inspectReport struct {
	Source    string             `yaml:"source"`
	Rows      rowCounts          `yaml:"rows"`
	Addresses int                `yaml:"addresses"`
	Join      postfile.JoinStats `yaml:"join"`
	Output    string             `yaml:"output"`
}

type rowCounts struct {
	Localities          int `yaml:"localities"`
	Streets             int `yaml:"streets"`
	HouseNumbers        int `yaml:"house_numbers"`
	Ignored             int `yaml:"ignored"`
	SkippedHouseNumbers int `yaml:"skipped_house_numbers"`
}

func newInspectReport(reg *registry, outDir string) inspectReport {
	return inspectReport{
		Source: reg.Name,
		Rows: rowCounts{
			Localities:          len(reg.Projections.Localities),
			Streets:             len(reg.Projections.Streets),
			HouseNumbers:        len(reg.Projections.Numbers),
			Ignored:             reg.Projections.Ignored,
			SkippedHouseNumbers: reg.Projections.SkippedNumbers,
		},
		Addresses: len(reg.Addresses),
		Join:      reg.Join,
		Output:    feature.OutputPath(reg.Name, outDir),
	}
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [source]",
	Short: "Classify and join a registry file and print a YAML report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zap.L().With(zap.String("command", "inspect"))

		reg, err := loadRegistry(cmd.Context(), sourceArg(args), log)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(newInspectReport(reg, cfg.Output.Dir)); err != nil {
			return eris.Wrap(err, "inspect: encode report")
		}
		return eris.Wrap(enc.Close(), "inspect: flush report")
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
