package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rootrelay/internal/config"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	RunE:  checkConfig,
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s: OK (%d skills, store=%s, trigger=%q)\n",
		configPath, len(cfg.Skills), cfg.Store.Type, cfg.Bot.TriggerKeyword)
	return nil
}
