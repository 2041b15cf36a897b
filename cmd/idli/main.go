// Command idli is the toolchain for the idli 16-bit predicated CPU: an
// assembler, a disassembler, and an instruction-level simulator.
package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theultimat/idli/pkg/asm"
	"github.com/theultimat/idli/pkg/disasm"
	"github.com/theultimat/idli/pkg/sim"
	"github.com/theultimat/idli/pkg/uartfile"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "idli",
		Short: "Assembler, disassembler, and simulator for the idli CPU",
	}

	rootCmd.AddCommand(newAsmCmd(), newDisasmCmd(), newSimCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAsmCmd() *cobra.Command {
	var output string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "asm [input.s]",
		Short: "Assemble a source file into an idli binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := asm.Options{Verbose: verbose, Log: cmd.ErrOrStderr()}
			bin, err := asm.Assemble(args[0], opts)
			if err != nil {
				return fmt.Errorf("assemble %s: %w", args[0], err)
			}

			if output == "" {
				output = args[0] + ".bin"
			}
			if err := os.WriteFile(output, bin, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(bin), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output binary path (default: <input>.bin)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose assembly trace")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "disasm [input.bin]",
		Short: "Disassemble an idli binary into an assembly listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			lines, err := disasm.Disassemble(data, verbose)
			if err != nil {
				return fmt.Errorf("disassemble %s: %w", args[0], err)
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Disassemble every word without folding repeated runs")
	return cmd
}

func newSimCmd() *cobra.Command {
	var uartIn string
	var uartOut string
	var timeout int
	var trace bool

	cmd := &cobra.Command{
		Use:   "sim [input.bin]",
		Short: "Run an idli binary to completion under the simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			var inBytes, expectedOut []byte
			if uartIn != "" {
				inBytes, err = uartfile.Load(uartIn)
				if err != nil {
					return err
				}
			}
			if uartOut != "" {
				expectedOut, err = uartfile.Load(uartOut)
				if err != nil {
					return err
				}
			}

			cb := newCLICallback(inBytes)

			s, err := sim.New(program, cb)
			if err != nil {
				return fmt.Errorf("sim %s: %w", args[0], err)
			}
			if trace {
				s.Trace = cmd.ErrOrStderr()
			}

			// Run until we see the "END" marker followed by a 2-byte exit
			// code, or exhaust the tick budget. Grounded on sim.py's
			// __main__ driver.
			endMarker := []byte("END")
			finished := false
			ticks := 0

			for ticks < timeout {
				if err := s.Tick(); err != nil {
					return fmt.Errorf("sim %s: %w", args[0], err)
				}
				ticks++
				if len(cb.uartOut) >= 5 && bytes.Equal(cb.uartOut[len(cb.uartOut)-5:len(cb.uartOut)-2], endMarker) {
					finished = true
					break
				}
			}
			if !finished {
				return fmt.Errorf("sim %s: exceeded timeout of %d ticks", args[0], timeout)
			}

			tail := cb.uartOut[len(cb.uartOut)-2:]
			exitCode := int16(binary.LittleEndian.Uint16(tail))
			actualOut := cb.uartOut[:len(cb.uartOut)-5]

			if uartOut != "" && !bytes.Equal(expectedOut, actualOut) {
				return fmt.Errorf("sim %s: UART output differed from expected\n  expected: % x\n  actual:   % x",
					args[0], expectedOut, actualOut)
			}
			if exitCode != 0 {
				return fmt.Errorf("sim %s: test exited with code %d", args[0], exitCode)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "PASS (%d ticks)\n", ticks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&uartIn, "uart-in", "i", "", "UART input vector file")
	cmd.Flags().StringVarP(&uartOut, "uart-out", "o", "", "UART expected output vector file")
	cmd.Flags().IntVar(&timeout, "timeout", 1_000_000, "Maximum number of ticks before giving up")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print a trace line for every tick")
	return cmd
}

// cliCallback feeds UART input bytes in and accumulates UART output bytes,
// the same shape as sim.py's standalone __main__ Callback.
type cliCallback struct {
	sim.NullCallback
	uartIn  []byte
	uartOut []byte
}

func newCLICallback(uartIn []byte) *cliCallback {
	return &cliCallback{uartIn: uartIn}
}

func (cb *cliCallback) ReadUART(width int) (int16, error) {
	if len(cb.uartIn) < width {
		return 0, fmt.Errorf("uart: input exhausted (wanted %d bytes, have %d)", width, len(cb.uartIn))
	}

	var value int16
	if width == 1 {
		value = int16(int8(cb.uartIn[0]))
	} else {
		value = int16(binary.LittleEndian.Uint16(cb.uartIn[:2]))
	}
	cb.uartIn = cb.uartIn[width:]
	return value, nil
}

func (cb *cliCallback) WriteUART(value uint16, width int) {
	cb.uartOut = append(cb.uartOut, byte(value))
	if width > 1 {
		cb.uartOut = append(cb.uartOut, byte(value>>8))
	}
}
