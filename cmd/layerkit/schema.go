package main

import (
	"encoding/json"
	"fmt"
	"os"

	schemav1 "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the layerkit.yaml JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := jsonschema.Reflect(&schemav1.BuildConfig{})
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
}
