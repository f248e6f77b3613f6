package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jobshell/internal/config"
	"jobshell/internal/executor"
	"jobshell/internal/repl"
)

// ExitStatus carries the shell's exit status out of cobra.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		command string
	)

	root := &cobra.Command{
		Use:   "jobshell",
		Short: "Interactive shell with job control",
		Long: `jobshell runs commands in their own process groups and tracks them as jobs.

Append & to run a command in the background, press Ctrl-Z to stop the
foreground job and use jobs, fg and bg to manage them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			status, err := runShell(cmd, cfg, command, cmd.Flags().Changed("command"))
			if err != nil {
				return err
			}
			if status != 0 {
				return ExitStatus(status)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/jobshell/config.yaml)")
	root.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit")

	root.AddCommand(newConfigCmd(&cfgFile))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

func runShell(cmd *cobra.Command, cfg *config.Config, line string, single bool) (int, error) {
	logger, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return 0, err
	}
	defer closeLog()

	signals := make(chan os.Signal, 16)
	signal.Notify(signals, executor.Signals...)
	defer signal.Stop(signals)

	interactive := !single && term.IsTerminal(int(os.Stdin.Fd()))
	logger.Printf("session start: config=%q interactive=%t", cfg.ConfigPath, interactive)

	ex := executor.New(executor.Options{
		Out:          cmd.OutOrStdout(),
		Signals:      signals,
		PollInterval: cfg.PollInterval,
		JobControl:   cfg.JobControl && interactive,
		Logger:       logger,
	})
	sh := repl.New(repl.Options{
		Executor:    ex,
		Signals:     signals,
		In:          cmd.InOrStdin(),
		Out:         cmd.OutOrStdout(),
		Prompt:      cfg.Prompt,
		Color:       cfg.Color,
		Interactive: interactive,
		Logger:      logger,
	})

	var status int
	if single {
		status = sh.RunCommand(line)
	} else {
		status = sh.Run(cmd.Context())
	}
	logger.Printf("session end: status=%d", status)
	return status, nil
}

// Execute runs the CLI entrypoint. SIGINT and SIGTSTP belong to the shell's
// jobs, so only SIGTERM and SIGHUP end the session.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)

	var status ExitStatus
	switch {
	case err == nil:
	case errors.As(err, &status):
		stop()
		os.Exit(int(status))
	default:
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
