package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rootrelay/internal/config"
)

func init() {
	rootCmd.AddCommand(listSkillsCmd)
}

var listSkillsCmd = &cobra.Command{
	Use:   "list-skills",
	Short: "Print configured skill descriptors",
	RunE:  listSkills,
}

func listSkills(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if len(cfg.Skills) == 0 {
		fmt.Println("No skills configured.")
		return nil
	}

	fmt.Printf("%-15s %-25s %-40s %s\n", "ID", "DISPLAY NAME", "ENDPOINT", "TARGET")
	for _, sk := range cfg.Skills {
		target := ""
		if sk.ID == cfg.Bot.TargetSkill {
			target = "*"
		}
		fmt.Printf("%-15s %-25s %-40s %s\n", sk.ID, sk.DisplayName, sk.Endpoint, target)
	}
	return nil
}
