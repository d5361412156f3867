package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"InteriorEditor/pkg/config"
	"InteriorEditor/pkg/editor"
	"InteriorEditor/pkg/generator"
	"InteriorEditor/pkg/logger"
	"InteriorEditor/pkg/tui"
	"InteriorEditor/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8"))
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the whole program. It returns the exit code so deferred cleanup
// runs before the process exits.
func run(args []string) int {
	// Flags
	fs := flag.NewFlagSet("interior", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	prompt := fs.String("prompt", "", "Generate once with this prompt and exit")
	imagePath := fs.String("image", "", "Room photo to edit (implies -mode edit)")
	modeFlag := fs.String("mode", "", "create or edit (default from config)")
	outDir := fs.String("out", "", "Save the generated image into this directory")
	wait := fs.Duration("wait", 0, "Wait up to this long for the server to come up")
	showVersion := fs.Bool("version", false, "Show version")
	showHelp := fs.Bool("help", false, "Show help")
	fs.Usage = printHelp
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showHelp {
		printHelp()
		return 0
	}

	if *showVersion {
		fmt.Printf("Interior Editor v%s\n", version)
		return 0
	}

	// Load configuration
	cfg, cfgPath, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		return 1
	}

	oneShot := *prompt != "" || *imagePath != ""

	// The TUI owns the terminal, so it always logs to a file.
	logFile := cfg.Log.File
	if logFile == "" && !oneShot {
		logFile = ".interior/interior.log"
	}
	if err := logger.Init(cfg.Log.Level, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", cfgPath), zap.String("base_url", cfg.BaseURL))

	mode, err := resolveMode(*modeFlag, cfg.DefaultMode, *imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	client, err := generator.NewClient(cfg.BaseURL, cfg.APIToken, cfg.RequestTimeout())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	session := editor.NewSession(client, editor.SessionConfig{
		TickInterval: cfg.ProgressInterval(),
		MaxStep:      cfg.Progress.MaxStep,
		ProgressCap:  cfg.Progress.Cap,
		SettleDelay:  cfg.SettleDelay(),
	})
	session.SetMode(mode)

	// Context for graceful shutdown; cancelling it aborts the request and
	// forces bubbletea to exit
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler: first SIGINT/SIGTERM cancels context, second force-exits
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		cancel()
		select {
		case <-sigCh:
			os.Exit(1)
		case <-time.After(5 * time.Second):
			os.Exit(1)
		}
	}()

	if *wait > 0 {
		if err := waitForServer(ctx, client, *wait); err != nil {
			fmt.Println(errorStyle.Render("❌ Server not reachable: " + err.Error()))
			return 1
		}
	}

	if oneShot {
		return runOnce(ctx, session, client, *prompt, *imagePath, *outDir)
	}

	printBanner()
	fmt.Println(mutedStyle.Render("🌐 Server: " + client.BaseURL()))

	saveDir := cfg.OutputDir
	if *outDir != "" {
		saveDir = *outDir
	}

	err = tui.Run(ctx, session, tui.Options{
		BaseURL:     client.BaseURL(),
		OutputDir:   saveDir,
		ConfirmQuit: cfg.UI.ConfirmQuit,
		ShowURL:     cfg.UI.ShowURL,
		AltScreen:   cfg.UI.AltScreen,
		Saver:       client,
	})

	// Reset terminal to sane state (in case bubbletea didn't restore properly)
	fmt.Print("\033[?25h")   // show cursor
	fmt.Print("\033[?1049l") // exit alt screen

	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "❌ TUI error: %v\n", err)
		return 1
	}

	fmt.Println("\n👋 Goodbye!")
	return 0
}

// resolveMode picks the editor mode: the flag wins, an image implies edit,
// otherwise the configured default applies.
func resolveMode(flagMode, configMode, image string) (editor.Mode, error) {
	if flagMode != "" {
		return editor.ParseMode(flagMode)
	}
	if image != "" {
		return editor.ModeEdit, nil
	}
	return editor.ParseMode(configMode)
}

// waitForServer pings the service root with exponential backoff.
func waitForServer(ctx context.Context, client *generator.Client, limit time.Duration) error {
	rc := utils.DefaultRetryConfig()
	rc.MaxElapsed = limit

	fmt.Println(mutedStyle.Render("⏳ Waiting for " + client.BaseURL() + " ..."))
	return utils.ExecuteWithRetryContext(ctx, func() error {
		msg, err := client.Ping(ctx)
		if err != nil {
			if !generator.IsTransient(err) {
				return utils.Permanent(err)
			}
			return err
		}
		fmt.Println(successStyle.Render("✅ " + msg))
		return nil
	}, rc, func(err error, next time.Duration) {
		logger.Debug("server not ready", zap.Error(err), zap.Duration("retry_in", next))
	})
}

// runOnce submits a single generation and prints the result. It returns the
// process exit code.
func runOnce(ctx context.Context, session *editor.Session, client *generator.Client, prompt, image, outDir string) int {
	defer session.Close()

	if prompt != "" {
		session.SetPrompt(prompt)
	}
	if image != "" {
		f, err := editor.LoadFile(image)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ " + err.Error()))
			return 1
		}
		session.SelectFile(f)
	}

	lastShown := -1
	session.OnChange(func(f editor.Form) {
		if !f.Loading {
			return
		}
		if p := int(f.Progress); p != lastShown {
			lastShown = p
			fmt.Fprintf(os.Stderr, "\r⏳ Generating... %3d%%", p)
		}
	})

	err := session.Submit(ctx)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		msg := session.Snapshot().Error
		if msg == "" || errors.Is(err, editor.ErrBusy) || errors.Is(err, editor.ErrClosed) {
			msg = err.Error()
		}
		fmt.Println(errorStyle.Render("❌ " + msg))
		return 1
	}

	imageURL := session.Snapshot().ImageURL
	fmt.Println(successStyle.Render("✅ Design ready"))
	fmt.Println(imageURL)

	if outDir != "" {
		dest, err := client.Download(ctx, imageURL, outDir)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Save failed: " + err.Error()))
			return 1
		}
		fmt.Println(mutedStyle.Render("💾 Saved to " + dest))
	}
	return 0
}

func printBanner() {
	banner := `
  ╔═══════════════════════════════════════════════════════════════╗
  ║                                                               ║
  ║            Interior Editor - AI Room Design Studio            ║
  ║                                                               ║
  ║                        Version ` + version + `                          ║
  ║                                                               ║
  ╚═══════════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func printHelp() {
	fmt.Printf("Interior Editor v%s - generate and edit room designs\n\n", version)
	fmt.Println("Usage: interior [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file")
	fmt.Println("  -prompt string")
	fmt.Println("        Generate once with this prompt and exit (no TUI)")
	fmt.Println("  -image string")
	fmt.Println("        Room photo to edit; implies -mode edit")
	fmt.Println("  -mode string")
	fmt.Println("        create or edit")
	fmt.Println("  -out string")
	fmt.Println("        Directory to save the generated image into")
	fmt.Println("  -wait duration")
	fmt.Println("        Wait for the server to answer before starting (e.g. 30s)")
	fmt.Println("  -version")
	fmt.Println("        Show version")
	fmt.Println("  -help")
	fmt.Println("        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables (also read from .env):")
	fmt.Println("  INTERIOR_BASE_URL     Generation server (default: http://localhost:8000)")
	fmt.Println("  INTERIOR_API_TOKEN    Bearer token sent with every request (optional)")
	fmt.Println("  INTERIOR_TIMEOUT      Request timeout in seconds (default: 300)")
	fmt.Println("  INTERIOR_OUTPUT_DIR   Where ctrl+s saves images")
	fmt.Println("  INTERIOR_LOG_LEVEL    DEBUG, INFO, WARN or ERROR")
	fmt.Println("  INTERIOR_LOG_FILE     Log file path; empty logs to stderr")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  interior")
	fmt.Println("  interior -prompt \"a japandi bedroom\" -out ./designs")
	fmt.Println("  interior -image room.jpg -prompt \"make it industrial\"")
}
