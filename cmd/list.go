// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sailor-analytics/sailor/assetcentral"
	"github.com/sailor-analytics/sailor/dmc"
	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/iot"
	"github.com/sailor-analytics/sailor/logger"
	"github.com/sailor-analytics/sailor/pai"
)

func newEquipmentCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "equipment",
		Short: "List AssetCentral equipment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := assetQuery(flags)
			if err != nil {
				return err
			}
			client, err := assetcentral.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindEquipment(cmd.Context(), q)
			if err != nil {
				return err
			}
			header, rows := assetcentral.EquipmentRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	return c
}

func newLocationsCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "locations",
		Short: "List AssetCentral locations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := assetQuery(flags)
			if err != nil {
				return err
			}
			client, err := assetcentral.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindLocations(cmd.Context(), q)
			if err != nil {
				return err
			}
			header, rows := assetcentral.LocationRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	return c
}

func newModelsCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "models",
		Short: "List AssetCentral models.",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := assetQuery(flags)
			if err != nil {
				return err
			}
			client, err := assetcentral.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindModels(cmd.Context(), q)
			if err != nil {
				return err
			}
			header, rows := assetcentral.ModelRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	return c
}

func newNotificationsCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "notifications",
		Short: "List AssetCentral notifications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := assetQuery(flags)
			if err != nil {
				return err
			}
			client, err := assetcentral.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindNotifications(cmd.Context(), q)
			if err != nil {
				return err
			}
			header, rows := assetcentral.NotificationRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	c.AddCommand(newNotificationsCreateCommand(stdout, log))
	return c
}

func newNotificationsCreateCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var values filterFlags
	c := &cobra.Command{
		Use:   "create",
		Short: "Create an AssetCentral notification.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, _, err := values.parse()
			if err != nil {
				return err
			}
			client, err := assetcentral.Open(log())
			if err != nil {
				return err
			}
			created, err := client.CreateNotification(cmd.Context(), fields)
			if err != nil {
				return err
			}
			header, rows := assetcentral.NotificationRows(
				assetcentral.NotificationSet{Elements: []assetcentral.Notification{*created}})
			return elements.WriteTable(stdout, header, rows)
		},
	}
	c.Flags().StringArrayVarP(&values.filters, "set", "s", nil, "Field to set as name=value.")
	return c
}

func newAlertsCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "alerts",
		Short: "List Predictive Asset Insights alerts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, extended, err := flags.parse()
			if err != nil {
				return err
			}
			client, err := pai.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindAlerts(cmd.Context(), pai.Query{Filters: filters, Extended: extended})
			if err != nil {
				return err
			}
			header, rows := pai.AlertRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	return c
}

func newDevicesCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "devices",
		Short: "List IoT devices.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, extended, err := flags.parse()
			if err != nil {
				return err
			}
			client, err := iot.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindDevices(cmd.Context(), iot.Query{Filters: filters, Extended: extended})
			if err != nil {
				return err
			}
			header, rows := iot.DeviceRows(set)
			return elements.WriteTable(stdout, header, rows)
		},
	}
	flags.register(c)
	return c
}

func newSensorTypesCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "sensor-types",
		Short: "List IoT sensor types.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, extended, err := flags.parse()
			if err != nil {
				return err
			}
			client, err := iot.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindSensorTypes(cmd.Context(), iot.Query{Filters: filters, Extended: extended})
			if err != nil {
				return err
			}
			records := make([]filter.Record, len(set.Elements))
			for i, s := range set.Elements {
				records[i] = s.Raw
			}
			return writeRecordTable(stdout, records, iot.SensorTypeFields)
		},
	}
	flags.register(c)
	return c
}

func newScenariosCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "scenarios",
		Short: "List active Digital Manufacturing Cloud scenarios.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, _, err := flags.parse()
			if err != nil {
				return err
			}
			client, err := dmc.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindScenarios(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return writeRecordTable(stdout, scenarioRecords(set), dmc.ScenarioFields)
		},
	}
	flags.register(c)
	return c
}

func newInspectionLogsCommand(stdout io.Writer, log func() logger.Logger) *cobra.Command {
	var flags filterFlags
	c := &cobra.Command{
		Use:   "inspection-logs",
		Short: "List Digital Manufacturing Cloud inspection logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, _, err := flags.parse()
			if err != nil {
				return err
			}
			client, err := dmc.Open(log())
			if err != nil {
				return err
			}
			set, err := client.FindInspectionLogs(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return writeRecordTable(stdout, inspectionLogRecords(set), dmc.InspectionLogFields)
		},
	}
	flags.register(c)
	return c
}

func assetQuery(flags filterFlags) (assetcentral.Query, error) {
	filters, extended, err := flags.parse()
	if err != nil {
		return assetcentral.Query{}, err
	}
	return assetcentral.Query{Filters: filters, Extended: extended}, nil
}

func writeRecordTable(w io.Writer, records []filter.Record, fields filter.FieldMap) error {
	header, rows := elements.TableRows(records, fields)
	return elements.WriteTable(w, header, rows)
}

func scenarioRecords(set dmc.ScenarioSet) []filter.Record {
	records := make([]filter.Record, len(set.Elements))
	for i, s := range set.Elements {
		records[i] = s.Raw
	}
	return records
}

func inspectionLogRecords(set dmc.InspectionLogSet) []filter.Record {
	records := make([]filter.Record, len(set.Elements))
	for i, l := range set.Elements {
		records[i] = l.Raw
	}
	return records
}
