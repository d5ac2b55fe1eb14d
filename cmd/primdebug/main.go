// Command primdebug loads a persisted memory image and drives the
// interactive debugger shell (C8) against it over stdin/stdout
// (spec.md §4.8, §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prim/cpu"
	"prim/debugger"
	"prim/dict"
	"prim/persist"
)

func main() {
	var input, uartFile string

	rootCmd := &cobra.Command{
		Use:   "primdebug",
		Short: "Interactively debug a persisted Prim memory image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(input, uartFile)
		},
	}
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "input document path")
	rootCmd.Flags().StringVarP(&uartFile, "uart", "u", "", "file of bytes to preload into the UART receive queue")
	rootCmd.MarkFlagRequired("input")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputPath, uartPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := persist.Load(in)
	if err != nil {
		return fmt.Errorf("primdebug: %w", err)
	}

	mem := cpu.NewMemory()
	doc.LoadMemory(mem)
	c := cpu.NewCPU(mem)
	d := dict.New(mem)

	dbg := debugger.New(c, d)

	if uartPath != "" {
		data, err := os.ReadFile(uartPath)
		if err != nil {
			return fmt.Errorf("primdebug: %w", err)
		}
		dbg.InjectUART(data)
	}

	sh, cleanup := newShell(dbg)
	defer cleanup()
	sh.Run()
	return nil
}

// newShell puts stdin into raw mode for arrow-key stepping when it's a
// real terminal, falling back to line-oriented input (piped scripts,
// tests, non-tty stdin) when it isn't.
func newShell(dbg *debugger.Debugger) (*debugger.Shell, func()) {
	term, err := debugger.NewRawTerminal()
	if err != nil {
		return debugger.NewShell(dbg, os.Stdin, os.Stdout), func() {}
	}
	return debugger.NewShellWithTerminal(dbg, term, os.Stdout), func() { term.Restore() }
}
