package app

import (
	"fmt"
	"io"
	"strconv"

	"fota-manager/backend/initialize"

	"github.com/spf13/cobra"
)

type DeviceAddOptions struct {
	IPAddress string
	Version   string
}

func AddDeviceAddFlags(cmd *cobra.Command, o *DeviceAddOptions) {
	cmd.Flags().StringVar(&o.IPAddress, "ip", o.IPAddress, "IP address of the device")
	cmd.Flags().StringVar(&o.Version, "version", o.Version, "Firmware version installed on the device")
}

// NewCmdDevices groups the device ledger commands.
func NewCmdDevices(out io.Writer, g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Short:   "List, add or update devices in a target type ledger",
		Aliases: []string{"device", "dev"},
	}
	cmd.AddCommand(newCmdDevicesList(out, g))
	cmd.AddCommand(newCmdDevicesAdd(out, g))
	cmd.AddCommand(newCmdDevicesUpdate(out, g))
	return cmd
}

func newCmdDevicesList(out io.Writer, g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list TARGET",
		Short: "Print the device ledger of a target type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				records, err := app.Devices.List(args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					sl := r.SlNoRaw
					if r.SlNo > 0 {
						sl = strconv.Itoa(r.SlNo)
					}
					rows = append(rows, []string{sl, r.AddedOn, r.VCUSerial, r.IPAddress, r.LastFirmwareVersion, r.LastUpdateOn, string(r.UpdateStatus)})
				}
				printTable(out, "no devices", []string{"SL NO", "ADDED ON", "VCU SERIAL", "IP", "VERSION", "LAST UPDATE", "STATUS"}, rows)
				return nil
			})
		},
	}
}

func newCmdDevicesAdd(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := &DeviceAddOptions{}
	cmd := &cobra.Command{
		Use:   "add TARGET SERIAL",
		Short: "Append a device to the ledger of a target type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				rec, err := app.Devices.AddDevice(args[0], args[1], o.IPAddress, o.Version)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "added %s to %s as Sl No %d\n", rec.VCUSerial, args[0], rec.SlNo)
				return nil
			})
		},
	}
	AddDeviceAddFlags(cmd, o)
	return cmd
}

func newCmdDevicesUpdate(out io.Writer, g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update TARGET SERIAL VERSION",
		Short: "Record a firmware version for a device without a transfer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				matched, err := app.Devices.UpdateDevice(args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if !matched {
					fmt.Fprintf(out, "no device %s in %s, ledger unchanged\n", args[1], args[0])
					return nil
				}
				fmt.Fprintf(out, "updated %s to %s\n", args[1], args[2])
				return nil
			})
		},
	}
}
