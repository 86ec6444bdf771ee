package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	successStyle = color.New(color.FgGreen)
	failureStyle = color.New(color.FgRed, color.Bold)
	pendingStyle = color.New(color.FgYellow)
)

// Output formats.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// render writes v to the standard output of the command in the given format.
func render(cmd *cobra.Command, format string, v any) error {
	var (
		b   []byte
		err error
	)
	switch format {
	case formatJSON:
		b, err = json.MarshalIndent(v, "", "  ")
	case formatYAML:
		b, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("unable to marshal output: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return err
}
