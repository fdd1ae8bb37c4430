package cli

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"logsift/internal/lookup"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Inspect and try the IIS enrichment tables",
	}
	cmd.AddCommand(newLookupInfoCmd(), newLookupIPCmd(), newLookupUACmd())
	return cmd
}

// geoIPPathFromCmd returns args[0] if given, else the home database.
func geoIPPathFromCmd(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	hd, err := homeFromCmd(cmd)
	if err != nil {
		return "", err
	}
	return hd.GeoIPPath(), nil
}

func newLookupInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [MMDB]",
		Short: "Describe a GeoIP database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}
			path, err := geoIPPathFromCmd(cmd, args)
			if err != nil {
				return err
			}
			info, err := lookup.Inspect(path)
			if err != nil {
				return err
			}
			if p.structured() {
				return p.encode(info)
			}
			p.kv([][2]string{
				{"Path", path},
				{"Type", info.DatabaseType},
				{"Built", info.BuildTime.Format(time.RFC3339)},
				{"Nodes", fmt.Sprint(info.NodeCount)},
			})
			return nil
		},
	}
}

func newLookupIPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ip ADDRESS",
		Short: "Look up the country and city of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbFlag, _ := cmd.Flags().GetString("db")
			var dbArgs []string
			if dbFlag != "" {
				dbArgs = []string{dbFlag}
			}
			path, err := geoIPPathFromCmd(cmd, dbArgs)
			if err != nil {
				return err
			}
			geo := lookup.NewGeoIP(nil)
			defer geo.Close()
			if _, err := geo.Load(path); err != nil {
				return err
			}
			return printLookup(cmd, geo, args[0])
		},
	}
	cmd.Flags().String("db", "", "GeoIP database (default: <home>/lookups database)")
	return cmd
}

func newLookupUACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ua USER-AGENT",
		Short: "Parse a user agent the way IIS records are enriched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLookup(cmd, lookup.NewUserAgent(), args[0])
		},
	}
}

func printLookup(cmd *cobra.Command, table lookup.LookupTable, value string) error {
	p, err := printerFromCmd(cmd)
	if err != nil {
		return err
	}
	res := table.Lookup(cmd.Context(), value)
	if res == nil {
		return fmt.Errorf("no result for %q", value)
	}
	if p.structured() {
		return p.encode(res)
	}
	var pairs [][2]string
	for _, k := range slices.Sorted(maps.Keys(res)) {
		pairs = append(pairs, [2]string{k, res[k]})
	}
	p.kv(pairs)
	return nil
}
