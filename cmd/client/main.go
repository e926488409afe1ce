// Command client runs the headless app core: it wires the state store, the
// KYC status poller, the redirect engine, and the deep-link resolver against
// a live backend, logging every navigation decision. Useful for exercising
// the session flow end to end without a UI.
package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"rentnest/appcore/internal/api"
	"rentnest/appcore/internal/config"
	"rentnest/appcore/internal/deeplink"
	"rentnest/appcore/internal/draft"
	"rentnest/appcore/internal/poller"
	"rentnest/appcore/internal/redirect"
	"rentnest/appcore/internal/session"
	"rentnest/appcore/internal/state"
	"rentnest/appcore/internal/storage"
	"rentnest/appcore/internal/telemetry/otel"
)

// logNavigator satisfies redirect.Navigator by logging transitions and
// tracking the current route, standing in for a real navigation container.
type logNavigator struct {
	mu      sync.Mutex
	current string
}

func (n *logNavigator) IsReady() bool { return true }

func (n *logNavigator) CurrentRouteName() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *logNavigator) Navigate(screen string, params map[string]string) {
	n.mu.Lock()
	n.current = screen
	n.mu.Unlock()
	if len(params) > 0 {
		log.Printf("navigate -> %s %v", screen, params)
		return
	}
	log.Printf("navigate -> %s", screen)
}

func (n *logNavigator) Reset(routes []string) {
	n.mu.Lock()
	if len(routes) > 0 {
		n.current = routes[len(routes)-1]
	}
	n.mu.Unlock()
	log.Printf("reset stack -> %v", routes)
}

// readCommands drives the session manager from stdin, line by line. It sends
// an interrupt on "quit" or EOF so the main goroutine shuts down cleanly.
func readCommands(ctx context.Context, m *session.Manager, client *api.Client, drafts *draft.Store, links chan<- string, quit chan<- os.Signal) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "register":
			if len(args) != 1 {
				log.Println("usage: register <email>")
				continue
			}
			if err := client.Register(ctx, args[0]); err != nil {
				log.Printf("register: %v", err)
				continue
			}
			log.Printf("registered %s; check the OTP channel and run: verify %s <code>", args[0], args[0])
		case "verify":
			if len(args) != 2 {
				log.Println("usage: verify <email> <code>")
				continue
			}
			if err := m.VerifyOTP(ctx, args[0], args[1]); err != nil {
				log.Printf("verify: %v", err)
				continue
			}
			log.Println("logged in; status polling started")
		case "submit":
			if len(args) != 2 {
				log.Println("usage: submit <aadhaar> <pan>")
				continue
			}
			d := draft.Draft{Mode: draft.ModeManual, Aadhaar: draft.CleanAadhaar(args[0]), PAN: draft.CleanPAN(args[1])}
			drafts.Schedule(d)
			rej, err := m.SubmitDraft(ctx, d)
			if err != nil {
				log.Printf("submit: %v", err)
				continue
			}
			if rej != nil {
				log.Printf("submission rejected: %s %v", rej.Message, rej.FieldErrors)
				continue
			}
			log.Println("submitted; status is now PENDING")
		case "link":
			if len(args) != 1 {
				log.Println("usage: link <url>")
				continue
			}
			links <- args[0]
		case "logout":
			if err := m.Logout(ctx); err != nil {
				log.Printf("logout: %v", err)
				continue
			}
			log.Println("logged out")
		case "quit":
			quit <- os.Interrupt
			return
		default:
			log.Printf("unknown command %q", cmd)
		}
	}
	quit <- os.Interrupt
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "rentnest-appcore", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	kv, err := storage.OpenSQLite(cfg.DraftDBPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer kv.Close()

	store := state.NewStore()
	client := api.NewClient(cfg.APIBaseURL)
	client.HTTPClient.Timeout = cfg.RequestTimeout()
	drafts := draft.NewStore(kv, cfg.Debounce())
	loop := poller.New(store, client.FetchKycStatus, cfg.PollEvery())

	nav := &logNavigator{}
	engine := redirect.New(nav, func(title, message string) {
		log.Printf("notification: %s: %s", title, message)
	})
	detach := engine.Attach(store)
	defer detach()

	manager := session.NewManager(store, client, loop, drafts)

	linkCtx, cancelLinks := context.WithCancel(ctx)
	defer cancelLinks()
	links := make(chan string)
	resolver := deeplink.NewResolver(nav)
	go resolver.Listen(linkCtx, cfg.InitialURL, links)

	// Resume a persisted session probe: an existing cookie session means the
	// poller can start without a fresh login.
	if err := client.ProbeSession(ctx); err == nil {
		store.SetAuth(state.AuthPatch{})
		loop.Start()
		log.Printf("existing session found; status polling started")
	} else {
		log.Printf("no existing session: %v", err)
	}

	log.Printf("app core running against %s (poll %s)", cfg.APIBaseURL, cfg.PollEvery())
	log.Println("commands: register <email> | verify <email> <code> | submit <aadhaar> <pan> | link <url> | logout | quit")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go readCommands(ctx, manager, client, drafts, links, quit)
	<-quit

	log.Println("shutting down...")
	loop.Stop()
	cancelLinks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("stopped")
}
