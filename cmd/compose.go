// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sailor-analytics/sailor/assetcentral"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/iot"
	"github.com/sailor-analytics/sailor/pai"
)

// fieldTables names every field table a composed query can be previewed
// against.
var fieldTables = map[string]filter.FieldMap{
	"equipment":     assetcentral.EquipmentFields,
	"locations":     assetcentral.LocationFields,
	"models":        assetcentral.ModelFields,
	"notifications": assetcentral.NotificationFields,
	"alerts":        pai.AlertFields,
	"devices":       iot.DeviceFields,
	"sensor-types":  iot.SensorTypeFields,
	"capabilities":  iot.CapabilityFields,
}

// newComposeCommand previews the wire queries a filter request turns into,
// without talking to any service.
func newComposeCommand(stdout io.Writer) *cobra.Command {
	var (
		flags  filterFlags
		table  string
		budget int
	)
	c := &cobra.Command{
		Use:   "compose",
		Short: "Show the wire queries a filter request turns into.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, ok := fieldTables[table]
			if !ok {
				names := make([]string, 0, len(fieldTables))
				for name := range fieldTables {
					names = append(names, name)
				}
				sort.Strings(names)
				return errors.Errorf("unknown field table %q, expected one of: %s",
					table, strings.Join(names, ", "))
			}

			filters, extended, err := flags.parse()
			if err != nil {
				return err
			}
			terms, unknown, err := filter.Normalize(filters, extended, fields)
			if err != nil {
				return err
			}
			for _, name := range unknown {
				fmt.Fprintf(stdout, "# unknown field passed through: %s\n", name)
			}

			unbreakable, breakable := filter.Classify(terms)
			queries, err := filter.Compose(unbreakable, breakable, budget)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				fmt.Fprintln(stdout, "# empty filter, everything matches")
				return nil
			}
			for _, q := range queries {
				fmt.Fprintln(stdout, q)
			}
			return nil
		},
	}
	flags.register(c)
	c.Flags().StringVarP(&table, "table", "t", "equipment", "Field table to resolve names against.")
	c.Flags().IntVarP(&budget, "budget", "b", 0,
		fmt.Sprintf("Maximum rendered query length, 0 for the default of %d.", filter.DefaultMaxQueryLength))
	return c
}
