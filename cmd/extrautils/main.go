package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"

	"github.com/zhufengning/extrautils/pkg/avatar"
	"github.com/zhufengning/extrautils/pkg/config"
	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/forward"
	"github.com/zhufengning/extrautils/pkg/logger"
	"github.com/zhufengning/extrautils/pkg/onebot"
	"github.com/zhufengning/extrautils/pkg/tools"
)

const (
	version = "0.1.0"
	logo    = "🧩"
)

const connectTimeout = 10 * time.Second

type options struct {
	debug      bool
	configPath string
	args       []string
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	if err := loadEnvFile(".env"); err != nil {
		fmt.Printf("Error loading .env: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]
	opts := parseOptions(os.Args[2:])

	switch command {
	case "avatar", "url":
		runOffline(command, opts)
	case "name", "selfname", "forward":
		runOnline(command, opts)
	case "shell":
		shellCmd(opts)
	case "help", "--help", "-h":
		printHelp()
	case "version", "--version", "-v":
		fmt.Printf("%s extrautils v%s\n", logo, version)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Printf("%s extrautils - OneBot v11 helper toolkit v%s\n\n", logo, version)
	fmt.Println("Usage: extrautils <command> [--debug] [--config <path>] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, line := range newRegistry(config.DefaultConfig(), nopBot{}).GetSummaries() {
		fmt.Println(line)
	}
	fmt.Printf("  %-42s %s\n", "shell", "Interactive prompt over a live connection")
	fmt.Printf("  %-42s %s\n", "version", "Show version information")
}

// parseOptions pulls the global flags out of args, leaving the command's
// own arguments in order.
func parseOptions(args []string) options {
	opts := options{configPath: config.DefaultPath()}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			opts.debug = true
		case "--config", "-c":
			if i+1 < len(args) {
				opts.configPath = args[i+1]
				i++
			}
		default:
			opts.args = append(opts.args, args[i])
		}
	}
	return opts
}

// loadEnvFile loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is ignored.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func loadConfig(opts options) *config.Config {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if opts.debug {
		logger.SetLevel(logger.DEBUG)
	}
	return cfg
}

func newFetcher(cfg *config.Config) *avatar.Fetcher {
	return &avatar.Fetcher{Host: cfg.Avatar.Host}
}

// newRegistry registers every command. bot serves the commands that talk
// to a OneBot implementation.
func newRegistry(cfg *config.Config, bot forward.API) *tools.ToolRegistry {
	fetcher := newFetcher(cfg)
	r := tools.NewToolRegistry()
	r.Register(tools.NewAvatarTool(fetcher, cfg.AvatarOutputDir()))
	r.Register(tools.NewURLTool(fetcher))
	r.Register(tools.NewNameTool(bot))
	r.Register(tools.NewSelfNameTool(bot))
	r.Register(tools.NewForwardTool(bot))
	return r
}

func runOffline(command string, opts options) {
	cfg := loadConfig(opts)
	registry := newRegistry(cfg, nopBot{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := registry.Execute(ctx, command, opts.args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

// session is a live connection to the configured bots.
type session struct {
	manager  *onebot.Manager
	bot      *onebot.Combination
	selfID   int64
	registry *tools.ToolRegistry
}

func connect(ctx context.Context, cfg *config.Config) (*session, error) {
	manager, err := onebot.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	manager.OnEvent(logEvent)

	if err := manager.StartAll(ctx); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := manager.WaitConnected(waitCtx)
	if err != nil {
		manager.StopAll(context.Background())
		return nil, err
	}

	login, err := client.GetLoginInfo(waitCtx)
	if err != nil {
		manager.StopAll(context.Background())
		return nil, fmt.Errorf("get login info: %w", err)
	}

	bot, err := manager.Combination()
	if err != nil {
		manager.StopAll(context.Background())
		return nil, err
	}

	logger.InfoCF("cli", "Connected", map[string]interface{}{
		"self_id":     login.UserID,
		"nickname":    login.Nickname,
		"combination": bot.SelfID(),
	})

	return &session{
		manager:  manager,
		bot:      bot,
		selfID:   login.UserID,
		registry: newRegistry(cfg, bot),
	}, nil
}

func (s *session) close() {
	s.manager.StopAll(context.Background())
	logger.Sync()
}

func (s *session) run(ctx context.Context, command string, args []string) (string, error) {
	return s.registry.ExecuteAs(ctx, command, args, s.selfID)
}

func runOnline(command string, opts options) {
	cfg := loadConfig(opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := connect(ctx, cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer s.close()

	result, err := s.run(ctx, command, opts.args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		s.close()
		os.Exit(1)
	}
	fmt.Println(result)
}

func logEvent(ev event.Event) {
	h := ev.Meta()
	fields := map[string]interface{}{
		"post_type": h.PostType,
		"detail":    h.DetailType,
		"self_id":   h.SelfID,
	}
	if uid, ok := event.UserIDOf(ev); ok {
		fields["user_id"] = uid
	}
	if gid, ok := event.GroupIDOf(ev); ok {
		fields["group_id"] = gid
	}
	if msg := event.MessageOf(ev); msg != nil {
		fields["text"] = msg.Message.PlainText()
	}
	logger.DebugCF("event", "Event received", fields)
}

func shellCmd(opts options) {
	cfg := loadConfig(opts)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	s, err := connect(ctx, cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer s.close()

	fmt.Printf("%s Connected as %d (type 'help', Ctrl+C to exit)\n\n", logo, s.selfID)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s > ", logo),
		HistoryFile:     filepath.Join(os.TempDir(), ".extrautils_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleShell(ctx, s, os.Stdin, os.Stdout)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !shellLine(ctx, s.registry, s.selfID, line, os.Stdout) {
			return
		}
	}
}

func simpleShell(ctx context.Context, s *session, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s > ", logo)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}
		if !shellLine(ctx, s.registry, s.selfID, line, out) {
			return
		}
	}
}

// shellLine runs one shell input line and reports whether the shell
// should keep going.
func shellLine(ctx context.Context, registry *tools.ToolRegistry, selfID int64, line string, out io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "exit", "quit":
		fmt.Fprintln(out, "Goodbye!")
		return false
	case "help":
		for _, summary := range registry.GetSummaries() {
			fmt.Fprintln(out, summary)
		}
		return true
	}

	if _, ok := registry.Get(fields[0]); !ok {
		fmt.Fprintf(out, "Unknown command: %s (try 'help')\n", fields[0])
		return true
	}

	result, err := registry.ExecuteAs(ctx, fields[0], fields[1:], selfID)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return true
	}
	fmt.Fprintln(out, result)
	return true
}
