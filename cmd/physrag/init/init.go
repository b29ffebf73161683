// Package initcmder provides the init command for initializing a local
// .physrag directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/physrag/pkg/cliui"
	"github.com/papercomputeco/physrag/pkg/config"
)

const (
	dirName = ".physrag"
)

const initLongDesc string = `Initialize a new .physrag/ directory in the current working directory.

Creates a local .physrag/ directory that takes precedence over the default
~/.physrag/ directory for configuration and the default sqlite databases
(vector index and run ledger).

A config.toml with default values is written unless one already exists.
Use --preset to write one for a provider combination instead:
  ollama      local embeddings and local llama3.2 answers (default)
  openai      local embeddings, OpenAI answers (needs OPENAI_API_KEY)
  anthropic   local embeddings, Anthropic answers (needs ANTHROPIC_API_KEY)
  gemini      Gemini embeddings (needs GEMINI_API_KEY), local answers

Examples:
  physrag init
  physrag init --preset anthropic`

const initShortDesc string = "Initialize a local .physrag/ directory"

type initCommander struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return cmder.run(filepath.Join(cwd, dirName))
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		"Write a config.toml for a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml when --preset is given")

	return cmd
}

func (c *initCommander) run(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Printf("Already initialized: %s\n", dir)
	case err == nil || !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking %s: %w", dir, err)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .physrag directory: %w", err)
		}
		fmt.Printf("Initialized .physrag directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	_, statErr := os.Stat(cfger.GetTarget())
	exists := statErr == nil

	cfg := config.NewDefaultConfig()
	name := "default"
	if c.preset != "" {
		if cfg, err = config.PresetConfig(c.preset); err != nil {
			return err
		}
		name = c.preset
	}

	switch {
	case exists && c.preset == "":
		return nil
	case exists && !c.force:
		return fmt.Errorf("%s already exists; pass --force to overwrite it", cfger.GetTarget())
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s Wrote %s config to %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(name),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
