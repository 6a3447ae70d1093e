package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fota-manager/backend/initialize"

	"github.com/spf13/cobra"
)

// NewCmdVersions groups the firmware version commands.
func NewCmdVersions(out io.Writer, g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "versions",
		Short:   "List or add firmware versions of a target type",
		Aliases: []string{"version"},
	}
	cmd.AddCommand(newCmdVersionsList(out, g))
	cmd.AddCommand(newCmdVersionsAdd(out, g))
	return cmd
}

func newCmdVersionsList(out io.Writer, g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list TARGET",
		Short: "List stored firmware versions, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				versions, err := app.Inventory.ListFirmwareVersions(args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(versions))
				for _, v := range versions {
					bin, err := app.Inventory.BinaryInfo(args[0], v)
					if err != nil {
						rows = append(rows, []string{v, "-", "-"})
						continue
					}
					rows = append(rows, []string{v, bin.FileName, fmt.Sprintf("%d", bin.Size)})
				}
				printTable(out, "no firmware versions", []string{"VERSION", "BINARY", "SIZE"}, rows)
				return nil
			})
		},
	}
}

func newCmdVersionsAdd(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := &UploadOptions{}
	cmd := &cobra.Command{
		Use:   "add TARGET VERSION",
		Short: "Store a firmware binary as a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				f, err := os.Open(o.FilePath)
				if err != nil {
					return err
				}
				defer f.Close()
				bin, err := app.Inventory.AddFirmwareVersion(args[0], args[1], filepath.Base(o.FilePath), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "added %s %s (%s, %d bytes)\n", bin.TargetType, bin.Version, bin.FileName, bin.Size)
				return nil
			})
		},
	}
	AddUploadFlags(cmd, o, false)
	return cmd
}
