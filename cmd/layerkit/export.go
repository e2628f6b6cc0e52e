package main

import (
	"errors"
	"os"
	"strings"

	"github.com/containerlabs/layerkit/pkg/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportStoreDir string
	exportLocal    bool
	exportPlatform string
)

func newExportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "export <ref> <dest>",
		Short: "Materialize an image's layers into a directory or tar file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("export requires an image ref and a destination")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error { return runExport(args[0], args[1]) },
	}
	c.Flags().BoolVar(&exportLocal, "local", false, "read from the local content store instead of the registry")
	c.Flags().StringVar(&exportStoreDir, "store", defaultStoreDir(), "local content store path")
	c.Flags().StringVar(&exportPlatform, "platform", "", "platform to select when the ref is an image index, e.g. linux/amd64")
	return c
}

func runExport(refStr string, dest string) error {
	img, err := resolveImage(refStr, exportLocal, exportStoreDir, exportPlatform)
	if err != nil {
		return err
	}
	if strings.HasSuffix(dest, ".tar") {
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		zap.L().Info("exporting to tar", zap.String("ref", refStr), zap.String("dest", dest))
		return export.Tar(img, f)
	}
	zap.L().Info("exporting to directory", zap.String("ref", refStr), zap.String("dest", dest))
	return export.Dir(img, dest)
}
