// Command primtoken runs the tokenizer (C6): turning Forth-like source
// text into a persisted token stream plus its cumulative symbol table
// (spec.md §4.6, §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prim/persist"
	"prim/token"
)

func main() {
	var input, inputToml, output string

	rootCmd := &cobra.Command{
		Use:   "primtoken",
		Short: "Tokenize Prim source into a persisted token stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(input, inputToml, output)
		},
	}
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "input source file")
	rootCmd.Flags().StringVar(&inputToml, "it", "", "input document carrying a cumulative symbol table")
	rootCmd.Flags().StringVarP(&output, "output", "o", "a.tok.toml", "output document path")
	rootCmd.MarkFlagRequired("input")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputPath, inputTomlPath, outputPath string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	ns := token.NewNamespace()
	if inputTomlPath != "" {
		prior, err := loadDoc(inputTomlPath)
		if err != nil {
			return fmt.Errorf("primtoken: %w", err)
		}
		ns.LoadNames(prior.Symbols)
	} else {
		ns.SeedDefaults()
	}

	tokens, err := token.Tokenize(string(src), ns)
	if err != nil {
		return fmt.Errorf("primtoken: %w", err)
	}

	doc := &persist.Document{
		Symbols: ns.Names(),
		Type:    persist.TypeTokenizer,
		Title:   inputPath,
	}
	if inputTomlPath != "" {
		doc.InputToml = inputTomlPath
	}
	doc.SetTokens(token.Encode(tokens))

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := persist.Save(out, doc); err != nil {
		return fmt.Errorf("primtoken: %w", err)
	}
	return nil
}

func loadDoc(path string) (*persist.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return persist.Load(f)
}
