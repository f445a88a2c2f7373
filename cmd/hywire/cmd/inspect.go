/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ndegiovanni/hywire/pkg/codec"
	"github.com/ndegiovanni/hywire/pkg/config"
	"github.com/ndegiovanni/hywire/pkg/protocol"
	"github.com/ndegiovanni/hywire/pkg/stream"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Validate and decode a packet file",
	Long: `Validate and decode one encoded message against the protocol registry.

The file holds raw message bytes, or hex text with --hex. With --frames the
file is read as a stream of length-prefixed frames instead of a single
message; the frame size bound comes from the config file's framing section.

Example:
  hywire inspect handshake.bin
  hywire inspect --hex dump.txt
  hywire inspect --frames session.stream`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			return
		}
		if isHex, _ := cmd.Flags().GetBool("hex"); isHex {
			cleaned := strings.Map(func(r rune) rune {
				if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
					return -1
				}
				return r
			}, string(data))
			data, err = hex.DecodeString(cleaned)
			if err != nil {
				fmt.Printf("Error decoding hex: %v\n", err)
				return
			}
		}

		registry := protocol.NewRegistry()

		if frames, _ := cmd.Flags().GetBool("frames"); frames {
			path, _ := cmd.Flags().GetString("config")
			limit, err := frameLimitFromConfig(path)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				return
			}
			count, err := dumpFrames(os.Stdout, registry, bytes.NewReader(data), limit)
			if err != nil {
				fmt.Printf("Error after %d frames: %v\n", count, err)
				return
			}
			fmt.Printf("%d frames\n", count)
			return
		}

		buf := wire.Wrap(data)

		res := registry.Validate(buf)
		if !res.OK {
			switch {
			case res.Truncated():
				fmt.Printf("Truncated: %v\n", res.Err)
			default:
				fmt.Printf("Malformed: %v\n", res.Err)
			}
			return
		}
		fmt.Printf("Structurally valid: %d bytes\n", res.BytesConsumed)

		rec, err := registry.Decode(buf)
		if err != nil {
			fmt.Printf("Error decoding: %v\n", err)
			return
		}
		fmt.Printf("Message: %s (id %d)\n", rec.Schema().Name(), rec.Schema().ID())
		for name, value := range rec.Fields() {
			fmt.Printf("  %s = %v\n", name, value)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("hex", false, "Treat the file as hex text")
	inspectCmd.Flags().Bool("frames", false, "Treat the file as a stream of length-prefixed frames")
}

// frameLimitFromConfig resolves the frame size bound for stream inspection.
// Without a config file the framing default applies.
func frameLimitFromConfig(path string) (int, error) {
	if path == "" {
		return config.DefaultConfig().Framing.MaxFrameSize, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return 0, err
	}
	if cfg.Framing.MaxFrameSize <= 0 {
		return config.DefaultConfig().Framing.MaxFrameSize, nil
	}
	return cfg.Framing.MaxFrameSize, nil
}

// dumpFrames prints every frame in r and returns the number of frames read
// before EOF or the first error.
func dumpFrames(out io.Writer, registry *codec.Registry, r io.Reader, maxFrame int) (int, error) {
	fr := stream.NewFrameReader(r, registry, stream.WithMaxFrameSize(maxFrame))
	count := 0
	for {
		rec, err := fr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
		fmt.Fprintf(out, "%s (id %d) %v\n", rec.Schema().Name(), rec.Schema().ID(), rec.Fields())
	}
}
