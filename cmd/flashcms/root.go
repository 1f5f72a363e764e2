package main

import (
	"github.com/spf13/cobra"

	"github.com/goflash/flashcms/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "flashcms",
		Short: "flashcms serves a directory of text and markdown documents",
		Long: `flashcms is a small content management system. Documents are plain
.txt and .md files in one directory; accounts live in a YAML file of
bcrypt hashes.

Settings come from the YAML file given with --config and from
FLASHCMS_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")

	cmd.AddCommand(newServeCmd(opts), newUserCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}
