/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndegiovanni/hywire/pkg/protocol"
)

// schemasCmd represents the schemas command
var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the registered message schemas",
	Run: func(cmd *cobra.Command, args []string) {
		registry := protocol.NewRegistry()
		for _, s := range registry.Schemas() {
			fmt.Printf("%3d %s\n", s.ID(), s.Name())
			for i := 0; i < s.NumFields(); i++ {
				f := s.Field(i)
				nullable := ""
				if f.Nullable {
					nullable = " (nullable)"
				}
				fmt.Printf("      %-16s %s%s\n", f.Name, f.Kind, nullable)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}
