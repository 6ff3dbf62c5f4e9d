package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rootrelay/internal/config"
	"rootrelay/internal/genagent"
	"rootrelay/internal/responder"
	"rootrelay/internal/skillbot"
	"rootrelay/internal/transport"
)

var skillAddr string

func init() {
	skillCmd.Flags().StringVar(&skillAddr, "addr", "0.0.0.0:8081", "listen address for the skill bot")
	rootCmd.AddCommand(skillCmd)
}

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Start the demo skill bot hosting the structured-output agent",
	RunE:  runSkill,
}

func runSkill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging)

	// The demo bot answers from canned structured output. A production
	// skill plugs a real model client into the Generator contract.
	gen := genagent.NewStaticGenerator(
		`{"contentType":"text","content":"It is sunny and 75F. Say 'end' to return to the root bot."}`,
	)
	agent := genagent.NewAgent(gen, logger)

	bot := skillbot.New(
		agent,
		responder.NewHTTP(cfg.Bot.SkillTimeout),
		transport.NewValidator(cfg.Server.AuthToken),
		logger,
	)

	httpSrv := &http.Server{
		Addr:              skillAddr,
		Handler:           bot,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(httpSrv, logger)
}
