// REPL binary for interactively editing and running OQL pipe queries.
//
// Configuration comes from flags, OQL_* environment variables and an
// optional oql.yaml (see internal/config):
//
//	OQL_BACKEND_URL=<url>                 backend resource endpoint (enables run)
//	OQL_DATABASE_URL=<dsn>                optional, auto-connects for schema discovery
//	OQL_ENGINE=postgres|mysql|sqlite      engine of OQL_DATABASE_URL
//	OQL_SCHEMA_FILE=<path>                table definitions for completion
//
// Usage:
//
//	go run ./cmd/repl
//	go run ./cmd/repl --backend http://localhost:3000/api/plugins/quesma-oql-app/resources
//	go run ./cmd/repl -c 'set FROM apache_logs' -c 'limit 10' -c sql
package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"strings"

	"github.com/ergochat/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bawdo/oql/internal/config"
	"github.com/bawdo/oql/internal/logging"
)

const mainPrompt = "oql> "

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"engine":    "engine",
	"dsn":       "database.url",
	"database":  "database.name",
	"backend":   "backend.url",
	"timeout":   "backend.timeout",
	"start":     "range.start",
	"end":       "range.end",
	"schema":    "schema.file",
	"log-level": "log.level",
	"log-file":  "log.file",
	"autorun":   "autorun",
}

type rootOptions struct {
	configFile string
	commands   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "oql",
		Short: "Interactive shell for OQL pipe queries",
		Long: `Edit an OQL pipe query line by line, switch its stages on and off,
refine it from result values and run it through the OQL backend.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "config file (default ./oql.yaml or ~/.config/oql/oql.yaml)")
	f.StringArrayVarP(&opts.commands, "command", "c", nil, "run a shell command and exit (repeatable)")
	f.String("engine", "", "engine of --dsn (postgres, mysql, sqlite)")
	f.String("dsn", "", "database used for schema discovery")
	f.String("database", "", "database name sent with backend schema discovery")
	f.String("backend", "", "backend resource URL")
	f.Duration("timeout", 0, "backend request timeout")
	f.String("start", "", "initial $start boundary (e.g. 3d, 2024-01-02)")
	f.String("end", "", "initial $end boundary")
	f.String("schema", "", "schema file with table definitions (YAML or JSON)")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-file", "", "also append JSON logs to this file")
	f.Bool("autorun", true, "run the query after every transform")
	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions) error {
	v := viper.New()
	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			v.Set(key, fl.Value.String())
		}
	}
	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	closeLog, err := logging.Setup(os.Stderr, level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	if len(opts.commands) > 0 {
		return runBatch(cfg, opts.commands)
	}
	return runInteractive(cfg)
}

// runBatch executes commands in order and stops at the first failure.
func runBatch(cfg *config.Config, commands []string) error {
	sess := NewSession(cfg, nil)
	defer sess.close()
	if cfg.Database.URL != "" {
		if err := sess.connectWithDSN(cfg.Database.URL); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: database connect failed: %v\n", err)
		}
	}
	for _, line := range commands {
		if err := sess.Execute(line); err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
	}
	return nil
}

func runInteractive(cfg *config.Config) error {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "[Config] ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sess := NewSession(cfg, rl)
	defer sess.close()

	comp := &replCompleter{sess: sess}
	_ = rl.SetConfig(&readline.Config{
		Prompt:          mainPrompt,
		HistoryFile:     cfg.History.File,
		HistoryLimit:    cfg.History.Limit,
		AutoComplete:    comp,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	switch {
	case cfg.Database.URL != "":
		fmt.Printf("[Config] Connecting via database.url...\n")
		if err := sess.connectWithDSN(cfg.Database.URL); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: database connect failed: %v\n", err)
		}
	case cfg.Backend.URL == "" && cfg.Schema.File == "":
		loadConnection(rl, sess)
	}
	if cfg.Backend.URL != "" {
		fmt.Printf("[Config] Backend: %s\n", cfg.Backend.URL)
	} else {
		fmt.Println("[Config] No backend configured, use 'backend <url>' to run queries")
	}

	fmt.Println()
	fmt.Println("OQL shell. Type 'help' for commands, 'exit' to quit")
	fmt.Println()
	sess.cmdShow()

	rl.SetPrompt(mainPrompt)
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
	}
	fmt.Println()
	return nil
}

func loadConnection(rl *readline.Instance, sess *Session) {
	answer := prompt(rl, "Connect to a database for schema discovery? (y/N)", "")
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Println("[Config] Skipped, use 'connect <dsn>' or 'schema load <file>' later")
		return
	}

	dsn := buildDSN(rl, sess.engine)
	if dsn == "" {
		fmt.Println("[Config] No connection configured, use 'connect <dsn>' later")
		return
	}

	fmt.Printf("[Config] DSN: %s\n", sanitizeDSN(dsn))
	if err := sess.connectWithDSN(dsn); err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: connect failed: %v\n", err)
		fmt.Println("[Config] Use 'connect <dsn>' later to retry")
	}
}

// prompt prints a label with an optional default and returns the user's input
// (or the default if they press enter).
func prompt(rl *readline.Instance, label, defaultVal string) string {
	if rl == nil {
		return defaultVal
	}
	if defaultVal != "" {
		rl.SetPrompt(fmt.Sprintf("[Config]   %s [%s]: ", label, defaultVal))
	} else {
		rl.SetPrompt(fmt.Sprintf("[Config]   %s: ", label))
	}
	defer rl.SetPrompt(mainPrompt)
	line, err := rl.ReadLine()
	if err != nil {
		return defaultVal
	}
	val := strings.TrimSpace(line)
	if val == "" {
		return defaultVal
	}
	return val
}

// buildDSN runs the connection wizard for engine.
func buildDSN(rl *readline.Instance, engine string) string {
	switch engine {
	case "sqlite":
		return buildSQLiteDSN(rl)
	case "mysql":
		return buildMySQLDSN(rl)
	default:
		return buildPostgresDSN(rl)
	}
}

func buildSQLiteDSN(rl *readline.Instance) string {
	fmt.Println("[Config] SQLite connection setup:")
	return prompt(rl, "Database path", ":memory:")
}

func buildPostgresDSN(rl *readline.Instance) string {
	fmt.Println("[Config] PostgreSQL connection setup:")

	defaultUser := "postgres"
	if u, err := user.Current(); err == nil && u.Username != "" {
		defaultUser = u.Username
	}

	dbUser := prompt(rl, "User", defaultUser)
	dbPass := prompt(rl, "Password", "")
	host := prompt(rl, "Host", "localhost")
	port := prompt(rl, "Port", "5432")
	dbName := prompt(rl, "Database", dbUser)
	sslMode := prompt(rl, "SSL mode (disable/require/verify-full)", "disable")

	var userInfo *url.Userinfo
	if dbPass != "" {
		userInfo = url.UserPassword(dbUser, dbPass)
	} else {
		userInfo = url.User(dbUser)
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host + ":" + port,
		Path:     "/" + dbName,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}

func buildMySQLDSN(rl *readline.Instance) string {
	fmt.Println("[Config] MySQL connection setup:")

	dbUser := prompt(rl, "User", "root")
	dbPass := prompt(rl, "Password", "")
	host := prompt(rl, "Host", "localhost")
	port := prompt(rl, "Port", "3306")
	dbName := prompt(rl, "Database", "")

	if dbName == "" {
		return ""
	}

	// Format: user:pass@tcp(host:port)/dbname
	var auth string
	if dbPass != "" {
		auth = dbUser + ":" + dbPass
	} else {
		auth = dbUser
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s", auth, host, port, dbName)
}

func isValidEngine(engine string) bool {
	switch engine {
	case "postgres", "mysql", "sqlite":
		return true
	}
	return false
}
