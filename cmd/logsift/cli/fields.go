package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"logsift/internal/record"
	"logsift/internal/strategy"
)

type fieldView struct {
	Name      string   `json:"name" msgpack:"name"`
	Type      string   `json:"type" msgpack:"type"`
	Operators []string `json:"operators" msgpack:"operators"`
}

func newFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the filterable fields and operators of a record kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := kindFromCmd(cmd)
			if err != nil {
				return err
			}
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}

			var views []fieldView
			switch kind {
			case record.KindIIS:
				views = describeFields(strategy.NewIISRegistry())
			case record.KindRabbit:
				views = describeFields(strategy.NewRabbitRegistry())
			default:
				views = describeFields(strategy.NewLogRegistry())
			}

			if p.structured() {
				return p.encode(views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Name, v.Type, strings.Join(v.Operators, ", ")})
			}
			p.table([]string{"FIELD", "TYPE", "OPERATORS"}, rows)
			return nil
		},
	}
	cmd.Flags().StringP("kind", "k", "log", "record kind: log, iis, or rabbit")
	return cmd
}

func describeFields[R any](reg *strategy.Registry[R]) []fieldView {
	var out []fieldView
	for _, name := range reg.Fields() {
		typ, _ := reg.FieldType(name)
		out = append(out, fieldView{Name: name, Type: typ.String(), Operators: reg.Operators(name)})
	}
	return out
}
