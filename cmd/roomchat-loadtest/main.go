// Command roomchat-loadtest drives a roomchat server with synthetic
// clients: each worker posts lorem-ipsum messages and polls for new ones,
// reporting throughput and error counts once per second.
//
// Run the target server with ROOMCHAT_VERIFICATION_REQUIRED=false, or
// every send will stop at the verification challenge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/roomchat/roomchat/pkg/api"
	"github.com/roomchat/roomchat/pkg/client"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur."

var loremWords = strings.Fields(loremIpsum)

type stats struct {
	sent       atomic.Int64
	sendErrs   atomic.Int64
	polled     atomic.Int64
	pollErrs   atomic.Int64
	challenged atomic.Int64
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	room := flag.String("room", "loadtest", "Room to post into")
	workers := flag.Int("workers", 10, "Concurrent synthetic clients")
	sendInterval := flag.Duration("send-interval", 2*time.Second, "Delay between sends per worker")
	pollInterval := flag.Duration("poll-interval", 3*time.Second, "Delay between polls per worker")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	log.Printf("Starting %d workers against %s room %q", *workers, *serverURL, *room)

	var s stats
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, id, *serverURL, *room, *sendInterval, *pollInterval, &s)
		}(i)
	}

	go report(ctx, &s)

	wg.Wait()
	fmt.Printf("\nTotals: sent=%d send_errors=%d challenged=%d polled=%d poll_errors=%d\n",
		s.sent.Load(), s.sendErrs.Load(), s.challenged.Load(), s.polled.Load(), s.pollErrs.Load())
	if s.challenged.Load() > 0 {
		fmt.Fprintln(os.Stderr, "sends were challenged: disable verification on the target server")
	}
}

func runWorker(ctx context.Context, id int, serverURL, room string, sendEvery, pollEvery time.Duration, s *stats) {
	transport := client.NewTransport(serverURL, room)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	nickname := fmt.Sprintf("%s%d", loremWords[rng.Intn(len(loremWords))], id)
	email := fmt.Sprintf("%s@loadtest.invalid", nickname)
	deviceID := fmt.Sprintf("loadtest-%d-%d", os.Getpid(), id)

	var sinceID int64

	sendTicker := time.NewTicker(jitter(rng, sendEvery))
	defer sendTicker.Stop()
	pollTicker := time.NewTicker(jitter(rng, pollEvery))
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-sendTicker.C:
			resp, err := transport.PostMessage(ctx, api.SendRequest{
				Nickname: nickname,
				Email:    email,
				Content:  randomSentence(rng),
				DeviceID: deviceID,
			})
			switch {
			case err != nil:
				s.sendErrs.Add(1)
			case resp.Token != "":
				s.challenged.Add(1)
			case resp.Success:
				s.sent.Add(1)
			default:
				s.sendErrs.Add(1)
			}

		case <-pollTicker.C:
			hist, err := transport.FetchSince(ctx, sinceID)
			if err != nil {
				s.pollErrs.Add(1)
				continue
			}
			s.polled.Add(int64(len(hist.Messages)))
			for _, m := range hist.Messages {
				if m.ID > sinceID {
					sinceID = m.ID
				}
			}
		}
	}
}

func report(ctx context.Context, s *stats) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastSent, lastPolled int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent := s.sent.Load()
			polled := s.polled.Load()
			fmt.Printf("sent %d (+%d/s)  polled %d (+%d/s)  errors send=%d poll=%d\n",
				sent, sent-lastSent, polled, polled-lastPolled,
				s.sendErrs.Load(), s.pollErrs.Load())
			lastSent, lastPolled = sent, polled
		}
	}
}

func randomSentence(rng *rand.Rand) string {
	n := 3 + rng.Intn(12)
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[rng.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}

// jitter spreads worker timers so they don't tick in lockstep.
func jitter(rng *rand.Rand, d time.Duration) time.Duration {
	return d + time.Duration(rng.Int63n(int64(d/4)+1))
}
