// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package cmd assembles the sailorctl command tree.
package cmd

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/logger"
)

// NewRootCommand builds the sailorctl root command and all subcommands.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	rc := &cobra.Command{
		Use:   "sailorctl",
		Short: "sailorctl queries SAP asset management services with the common filter language.",
		Long: `sailorctl queries SAP asset management services with the common filter language.

Credentials come from the SAILOR_CONFIG_JSON environment variable, the file
named by SAILOR_CONFIG_PATH, a config.yaml in the working directory, or the
--config flag.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			config.Set(cfg)
			return nil
		},
	}
	rc.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")

	log := func() logger.Logger {
		if verbose {
			return logger.NewVerboseLogger(stderr)
		}
		return logger.NewStandardLogger(stderr)
	}

	rc.AddCommand(newComposeCommand(stdout))
	rc.AddCommand(newEquipmentCommand(stdout, log))
	rc.AddCommand(newLocationsCommand(stdout, log))
	rc.AddCommand(newModelsCommand(stdout, log))
	rc.AddCommand(newNotificationsCommand(stdout, log))
	rc.AddCommand(newAlertsCommand(stdout, log))
	rc.AddCommand(newDevicesCommand(stdout, log))
	rc.AddCommand(newSensorTypesCommand(stdout, log))
	rc.AddCommand(newScenariosCommand(stdout, log))
	rc.AddCommand(newInspectionLogsCommand(stdout, log))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// filterFlags is the pair of repeatable flags every finder command takes.
type filterFlags struct {
	filters  []string
	extended []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil,
		"Equality filter as name=value; repeat a name to build an OR group.")
	cmd.Flags().StringArrayVarP(&f.extended, "where", "w", nil,
		`Extended filter like "installation_date >= '2020-01-01'".`)
}

// parse converts the flag values into the filter request shape: a
// comma-separated value or a repeated name accumulates into a list of
// alternatives.
func (f *filterFlags) parse() (map[string]interface{}, []string, error) {
	filters := map[string]interface{}{}
	for _, kv := range f.filters {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, nil, errors.Errorf("filter %q is not of the form name=value", kv)
		}
		name = strings.TrimSpace(name)
		values := strings.Split(value, ",")
		switch existing := filters[name].(type) {
		case nil:
			if len(values) > 1 {
				filters[name] = values
			} else {
				filters[name] = value
			}
		case []string:
			filters[name] = append(existing, values...)
		case string:
			filters[name] = append([]string{existing}, values...)
		}
	}
	return filters, f.extended, nil
}
