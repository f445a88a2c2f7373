/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndegiovanni/hywire/pkg/capture"
	"github.com/ndegiovanni/hywire/pkg/protocol"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <capture-dir>",
	Short: "Replay and decode a packet capture store",
	Long: `Walk a capture store in capture order, validating and decoding every
entry against the protocol registry.

Example:
  hywire replay ./data/capture`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := capture.Open(args[0])
		if err != nil {
			fmt.Printf("Error opening capture store: %v\n", err)
			return
		}
		defer store.Close()

		registry := protocol.NewRegistry()
		count := 0
		err = store.Replay(func(entry *capture.Entry) error {
			count++
			buf := wire.Wrap(entry.Payload)
			res := registry.Validate(buf)
			if !res.OK {
				fmt.Printf("%s  id=%d  INVALID: %v\n", entry.ID, entry.MessageID, res.Err)
				return nil
			}
			rec, err := registry.Decode(buf)
			if err != nil {
				fmt.Printf("%s  id=%d  decode error: %v\n", entry.ID, entry.MessageID, err)
				return nil
			}
			fmt.Printf("%s  %s  %v\n", entry.ID, rec.Schema().Name(), rec.Fields())
			return nil
		})
		if err != nil {
			fmt.Printf("Error replaying: %v\n", err)
			return
		}
		fmt.Printf("%d entries\n", count)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
