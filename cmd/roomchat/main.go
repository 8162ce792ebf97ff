// Command roomchat is the terminal client: a chat widget for one room on
// one server, with history paging, polling and send-with-verification.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roomchat/roomchat/pkg/client"
	"github.com/roomchat/roomchat/pkg/client/ui"
)

var version = "dev"

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	room := flag.String("room", "lobby", "Room to join")
	stateDir := flag.String("state", defaultStateDir(), "State directory")
	verifyToken := flag.String("verify", "", "Deliver a verification token to a running client and exit")
	debugLog := flag.String("debug", "", "Write debug logs to this file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("roomchat %s\n", version)
		return
	}

	// The verification link flow ends here: the token from the email is
	// dropped into the state directory, where the running client's
	// watcher picks it up and replays the pending send.
	if *verifyToken != "" {
		if err := client.WriteVerifySignal(*stateDir, *verifyToken); err != nil {
			log.Fatalf("Failed to write verification signal: %v", err)
		}
		fmt.Println("Verification delivered. The pending message will be sent automatically.")
		return
	}

	logger := log.New(io.Discard, "", 0)
	if *debugLog != "" {
		f, err := os.OpenFile(*debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open debug log: %v", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	}

	state, err := client.OpenState(filepath.Join(*stateDir, "state.db"))
	if err != nil {
		log.Fatalf("Failed to open state: %v", err)
	}
	defer state.Close()

	deviceID, err := state.DeviceID()
	if err != nil {
		log.Fatalf("Failed to resolve device id: %v", err)
	}

	transport := client.NewTransport(*serverURL, *room)
	msgView := ui.NewMessageView(80, 24)

	engine := client.NewSyncEngine(transport, msgView)
	engine.SetLogger(logger)

	watcher, err := client.NewVerifyWatcher(state.Dir())
	if err != nil {
		log.Fatalf("Failed to start verification watcher: %v", err)
	}
	defer watcher.Close()
	watcher.SetLogger(logger)

	actions := client.NewActions(transport, state, msgView, watcher)
	defer actions.Close()
	actions.SetLogger(logger)

	poller := client.NewPoller(engine, transport, deviceID)
	poller.SetLogger(logger)

	model := ui.NewModel(engine, actions, state, msgView, *room, *serverURL, version, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Bridge the background goroutines into the bubbletea loop.
	poller.OnNewMessages = func() {
		program.Send(ui.RefreshMsg{})
	}
	actions.OnVerificationRequired = func(token string) {
		logger.Printf("verification required, token %s", token)
	}
	actions.OnSendComplete = func(status client.SendStatus, err error) {
		program.Send(ui.VerifiedSendMsg{Status: status, Err: err})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	if _, err := program.Run(); err != nil {
		log.Fatalf("Client error: %v", err)
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roomchat"
	}
	return filepath.Join(home, ".roomchat")
}
