package cli

import (
	"os"
	"os/signal"
	"syscall"

	"compquiz/internal/app"
	"compquiz/internal/transport/console"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs a single quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		questionsPath string
		setID         string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if questionsPath != "" {
				cfg.Quiz.Questions = questionsPath
				cfg.Postgres.URL = ""
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := openQuestionBackend(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			svcCfg := serviceConfig(cfg)
			if setID == "" {
				setID = svcCfg.DefaultSet
			}
			var opts []app.ProviderOption
			if svcCfg.Shuffle {
				opts = append(opts, app.WithShuffle(nil))
			}
			if svcCfg.Limit > 0 {
				opts = append(opts, app.WithLimit(svcCfg.Limit))
			}
			provider := app.NewProvider(app.NewSetSource(backend.repository(cfg), setID), opts...)
			session := app.NewSession(uuid.NewString(), provider, app.NewClockScheduler(clockwork.NewRealClock()), svcCfg.Session)
			defer session.Close()

			return console.Run(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&questionsPath, "file", "", "question file or directory (overrides config)")
	cmd.Flags().StringVar(&setID, "set", "", "question set id")
	return cmd
}
