package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"fota-manager/backend/initialize"

	"github.com/spf13/cobra"
)

type UploadOptions struct {
	Version  string
	FilePath string
}

func AddUploadFlags(cmd *cobra.Command, o *UploadOptions, withVersion bool) {
	if withVersion {
		cmd.Flags().StringVar(&o.Version, "version", o.Version, "Firmware version of the binary")
		_ = cmd.MarkFlagRequired("version")
	}
	cmd.Flags().StringVarP(&o.FilePath, "file", "f", o.FilePath, "Path to the firmware binary")
	_ = cmd.MarkFlagRequired("file")
}

// NewCmdTargets groups the target type commands.
func NewCmdTargets(out io.Writer, g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "targets",
		Short:   "List or create target types",
		Aliases: []string{"target"},
	}
	cmd.AddCommand(newCmdTargetsList(out, g))
	cmd.AddCommand(newCmdTargetsCreate(out, g))
	return cmd
}

func newCmdTargetsList(out io.Writer, g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List target types with their version count and newest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				names, err := app.Inventory.ListTargetTypes()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(names))
				for _, n := range names {
					versions, err := app.Inventory.ListFirmwareVersions(n)
					if err != nil {
						return err
					}
					latest := "-"
					if len(versions) > 0 {
						latest = versions[len(versions)-1]
					}
					rows = append(rows, []string{n, strconv.Itoa(len(versions)), latest})
				}
				printTable(out, "no target types", []string{"TARGET TYPE", "VERSIONS", "LATEST"}, rows)
				return nil
			})
		},
	}
}

func newCmdTargetsCreate(out io.Writer, g *GlobalOptions) *cobra.Command {
	o := &UploadOptions{}
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a target type with its first firmware version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(app *initialize.App) error {
				f, err := os.Open(o.FilePath)
				if err != nil {
					return err
				}
				defer f.Close()
				bin, err := app.Inventory.CreateTargetType(args[0], o.Version, filepath.Base(o.FilePath), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "created %s %s (%s, %d bytes, sha256 %s)\n", bin.TargetType, bin.Version, bin.FileName, bin.Size, bin.SHA256)
				return nil
			})
		},
	}
	AddUploadFlags(cmd, o, true)
	return cmd
}
