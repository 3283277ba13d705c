// Sigcore CLI entry point.
//
// Connects to a call-routing fabric, authenticates with a token and streams
// the public call events of the session. Lost connections are resumed with
// the persisted protocol id when the token allows reattach.
//
// It can be launched interactively (missing -url or -token are prompted for)
// or non-interactively via flags and an optional TOML file (-config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/sigcore/internal/call"
	"github.com/1ureka/sigcore/internal/client"
	"github.com/1ureka/sigcore/internal/config"
	"github.com/1ureka/sigcore/internal/media"
	"github.com/1ureka/sigcore/internal/protocol"
	"github.com/1ureka/sigcore/internal/retry"
	"github.com/1ureka/sigcore/internal/router"
	"github.com/1ureka/sigcore/internal/session"
	"github.com/1ureka/sigcore/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		util.EnableDebug()
	}
	util.SetProduction(cfg.Production)

	pterm.Info.Println(fmt.Sprintf("Sigcore v%s", version))
	pterm.Println()

	if cfg.URL == "" {
		cfg.URL = askURL()
	}
	if cfg.Token == "" {
		cfg.Token = askToken()
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	util.LogInfo("session closed")
}

// loadConfig merges defaults, the optional TOML file and flags, in that
// order.
func loadConfig() (config.Config, error) {
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	urlFlag := flag.String("url", "", "Fabric WebSocket URL")
	tokenFlag := flag.String("token", "", "Auth token (JWT or SAT)")
	profileFlag := flag.String("profile", "", "Profile id used to namespace resumption keys")
	storeFlag := flag.String("store", "", "File to persist resumption state in (default: memory)")
	noReattach := flag.Bool("no-reattach", false, "Never resume a previous session")
	production := flag.Bool("production", false, "Suppress development diagnostics")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["url"] {
		u, err := config.NormalizeURL(*urlFlag)
		if err != nil {
			return config.Config{}, err
		}
		cfg.URL = u
	}
	if set["token"] {
		cfg.Token = strings.TrimSpace(*tokenFlag)
	}
	if set["profile"] {
		cfg.ProfileID = *profileFlag
	}
	if set["store"] {
		cfg.StorePath = *storeFlag
	}
	if set["no-reattach"] {
		cfg.Reattach = !*noReattach
	}
	if set["production"] {
		cfg.Production = *production
	}
	if set["debug"] {
		cfg.Debug = *debugMode
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func run(ctx context.Context, cfg config.Config) error {
	var store session.Storage = session.NewMemoryStorage()
	if cfg.StorePath != "" {
		fs, err := session.OpenFileStorage(cfg.StorePath)
		if err != nil {
			return err
		}
		store = fs
	}

	pc, monitor, err := media.OpenPeer(cfg.ICEServers)
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	defer pc.Close()

	cl, err := client.New(client.Options{
		URL:             cfg.URL,
		Token:           cfg.Token,
		ProfileID:       cfg.ProfileID,
		DisableReattach: !cfg.Reattach,
		Storage:         store,
		Media:           monitor,
		Retry: call.RetryConfig{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			Variation:    cfg.Retry.Variation,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
	})
	if err != nil {
		return err
	}
	defer cl.Close()

	rs := cl.Resumption()
	util.LogDebug("token type %s, reattach allowed: %v", rs.TokenType(), rs.CanReattach())

	cl.Router().OnAny(printEvent)
	util.StartStatsReporter(ctx, 10*time.Second)

	for {
		res, err := connect(ctx, cl, cfg.Retry)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if res.Reattached {
			util.LogSuccess("session resumed (prior call %q)", res.PriorCallID)
			if res.ICERestart {
				util.LogWarning("media is %s, ICE must be renegotiated", monitor.State())
			}
		} else {
			util.LogSuccess("connected to %s", cfg.URL)
		}

		err = cl.Run(ctx)
		if ctx.Err() != nil {
			printMembers(cl.Router())
			return nil
		}
		if client.Terminal(err) {
			printMembers(cl.Router())
			return nil
		}
		util.LogWarning("connection lost: %v, reconnecting", err)
	}
}

// connect retries the dial and handshake with increasing backoff.
func connect(ctx context.Context, cl *client.Client, rc config.Retry) (client.Resume, error) {
	delay, err := retry.IncreasingDelay(retry.DelayConfig{
		InitialDelay: rc.InitialDelay,
		Variation:    rc.Variation,
		Limit:        rc.MaxDelay,
	})
	if err != nil {
		return client.Resume{}, err
	}
	return retry.Do(ctx, retry.Policy[client.Resume]{
		MaxRetries: rc.MaxRetries,
		Delay:      delay,
		// A rejected handshake will not succeed on retry.
		Terminal: func(err error) bool {
			var pe *protocol.ProtocolError
			return errors.As(err, &pe)
		},
	}, cl.Connect)
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func printEvent(ev router.Event) {
	member, _ := ev.Params["member"].(map[string]any)
	switch {
	case member != nil:
		util.LogInfo("%-36s member=%v name=%v", ev.Type, member["member_id"], member["name"])
	case ev.Params["call_id"] != nil:
		util.LogInfo("%-36s call=%v", ev.Type, ev.Params["call_id"])
	default:
		util.LogInfo("%s", ev.Type)
	}
}

func printMembers(r *router.Router) {
	members := r.Members()
	if len(members) == 0 {
		return
	}
	rows := pterm.TableData{{"Member", "Name", "Type", "Position", "Audio muted", "Video muted"}}
	for _, m := range members {
		rows = append(rows, []string{
			m.ID, m.Name, m.Type, m.CurrentPosition,
			fmt.Sprint(m.AudioMuted), fmt.Sprint(m.VideoMuted),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

// askURL prompts the user for a valid WebSocket URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Fabric URL (e.g. wss://relay.example.com)").
			Show()

		u, err := config.NormalizeURL(raw)
		if err == nil {
			pterm.Println()
			return u
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}

// askToken prompts for a non-empty token.
func askToken() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			WithDefaultText("Auth token").
			Show()

		if tok := strings.TrimSpace(raw); tok != "" {
			pterm.Println()
			return tok
		}

		pterm.Println()
		util.LogWarning("token must not be empty")
	}
}
