package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI is the Viper-driven command line of dayplan
type CLI struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	// session is set while the shell runs so every line shares it
	session *session

	// configErr is a config file that exists but could not be read
	configErr error
}

// NewCLI creates a CLI reading config from files and DAYPLAN_* variables
func NewCLI(in io.Reader, out, errOut io.Writer) *CLI {
	cli := &CLI{
		v:      viper.New(),
		in:     in,
		out:    out,
		errOut: errOut,
		now:    time.Now,
	}
	cli.setupViperConfig()
	return cli
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	// DAYPLAN_CONFIG points at a specific file
	if configFile := os.Getenv("DAYPLAN_CONFIG"); configFile != "" {
		cli.v.SetConfigFile(configFile)
	} else {
		cli.v.SetConfigName("dayplan")
		cli.v.SetConfigType("yaml")
		cli.v.AddConfigPath(".")
		cli.v.AddConfigPath("$HOME/.dayplan")
		cli.v.AddConfigPath("/etc/dayplan")
	}

	cli.v.AutomaticEnv()
	cli.v.SetEnvPrefix("DAYPLAN")
	// --undo-timeout -> DAYPLAN_UNDO_TIMEOUT
	cli.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setDefaults(cli.v)

	// A missing file on the search path is fine; a named file must exist
	if err := cli.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr := NewConfigError("load config", err.Error(), CommonSuggestions.CheckConfig)
			configErr.Underlying = err
			cli.configErr = configErr
		}
	}
}

// Execute runs the command line in args
func (cli *CLI) Execute(args []string) error {
	root := cli.newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func (cli *CLI) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dayplan",
		Short: "Plan your days: ordered task lists with undo",
		Long: `dayplan keeps a manually ordered list of tasks for every day.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (DAYPLAN_*)
3. Configuration file (DAYPLAN_CONFIG, ./dayplan.yaml,
   ~/.dayplan/dayplan.yaml, /etc/dayplan/dayplan.yaml)

Examples:
  dayplan add "Write report" --date tomorrow --category work
  dayplan list
  dayplan reorder 3f2a --above 9c1d
  dayplan move 3f2a 2024-03-08 --below 77ab
  dayplan shell                       # interactive, with undo`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(cli.in)
	root.SetOut(cli.out)
	root.SetErr(cli.errOut)

	cli.addGlobalFlags(root)

	root.AddCommand(
		cli.newAddCommand(),
		cli.newListCommand(),
		cli.newDoneCommand(),
		cli.newEditCommand(),
		cli.newRemoveCommand(),
		cli.newMoveCommand(),
		cli.newReorderCommand(),
		cli.newCategoryCommand(),
		cli.newFindCommand(),
		cli.newUndoCommand(),
		cli.newShellCommand(),
	)
	return root
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()

	flags.StringP("owner", "o", "", "Owner whose tasks to manage (default $USER)")
	flags.StringP("backend", "b", "", "Storage backend (json|sqlite|postgres|memory)")
	flags.StringP("db", "d", "", "Database file for the json and sqlite backends")
	flags.String("dsn", "", "Postgres connection string")
	flags.String("from", "", "First day to load (YYYY-MM-DD, today, tomorrow, yesterday)")
	flags.String("to", "", "Last day to load (default: from + days - 1)")
	flags.Int("days", 0, "Number of days to load when --to is not set")
	flags.Duration("undo-timeout", 0, "How long a delete can be undone in the shell")
	flags.Duration("sync-timeout", 0, "Upper bound for each remote call")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.Bool("log-stderr", false, "Also write logs to stderr")
	flags.String("cache", "", "Local snapshot cache (file|redis|none)")
	flags.String("cache-path", "", "Snapshot file for the file cache")
	flags.String("redis-addr", "", "Redis address for the redis cache")
	flags.Duration("debounce", 0, "Quiet period before the snapshot is saved")

	for _, name := range []string{
		"owner", "backend", "db", "dsn", "from", "to", "days", "undo-timeout", "sync-timeout",
		"log-level", "log-stderr", "cache", "cache-path", "redis-addr", "debounce",
	} {
		_ = cli.v.BindPFlag(name, flags.Lookup(name))
	}
}

// withSession runs fn on the shell's session, or on a fresh one that is
// closed afterwards
func (cli *CLI) withSession(ctx context.Context, fn func(*session) error) error {
	if cli.session != nil {
		return fn(cli.session)
	}
	if cli.configErr != nil {
		return cli.configErr
	}
	cfg, err := loadConfig(cli.v, cli.now())
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg, cli.out, cli.errOut, cli.now)
	if err != nil {
		return err
	}
	defer s.close(ctx)
	return fn(s)
}
