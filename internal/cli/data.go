package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Print site data with theme data merged in",
	Long: `Resolve the configured theme, download it if it is remote, and print
the site data namespace after theme data has been merged into it.

Site values win over theme values. Top-level lists are concatenated with
theme items first.

Examples:
  remotetheme data
  remotetheme data --source ./site
  remotetheme data --format json`,
	Args: cobra.NoArgs,
	RunE: runData,
}

// Data command flags
var dataFormat string

func init() {
	dataCmd.Flags().StringVarP(&dataFormat, FlagFormat, "f", FormatYAML, DescFormat)
}

func runData(cmd *cobra.Command, args []string) error {
	if err := ValidateFormat(dataFormat); err != nil {
		return err
	}

	s, err := loadSite(cmd.Flags().Changed(FlagSource))
	if err != nil {
		return err
	}

	if err := newPipeline().Run(cmd.Context(), s); err != nil {
		printErrorMsg(fmt.Sprintf("Theme processing failed: %v", err))
		return err
	}

	out, err := renderData(s.Data, dataFormat)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// renderData encodes data in the given format. Map keys are sorted by both
// encoders.
func renderData(data map[string]any, format string) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode data as JSON: %w", err)
		}
		return append(out, '\n'), nil
	default:
		out, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode data as YAML: %w", err)
		}
		return out, nil
	}
}
