package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roomchat/roomchat/pkg/api"
)

var (
	// ErrSendInFlight indicates a send is already in progress.
	ErrSendInFlight = errors.New("a send is already in progress")
	// ErrMissingFields indicates nickname, email or content is empty.
	ErrMissingFields = errors.New("nickname, email and message are required")
	// ErrInvalidEmail indicates the email failed local validation.
	ErrInvalidEmail = errors.New("email address is not valid")
	// ErrNoIdentity indicates delete was attempted before declaring an email.
	ErrNoIdentity = errors.New("an email address must be declared before deleting")
)

// Local fast-path check only; the server remains authoritative.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether email passes the RFC-lite pattern.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// SendStatus reports how a send attempt concluded.
type SendStatus int

const (
	// SendAccepted means the server stored the message. It is not
	// inserted locally; the next poll delivers it.
	SendAccepted SendStatus = iota
	// SendRejected means the server refused the message.
	SendRejected
	// SendPendingVerification means the device must be verified
	// out-of-band; the send replays automatically once it is.
	SendPendingVerification
)

// Actions implements the user-gesture handlers: send and delete.
type Actions struct {
	transport TransportInterface
	state     StateInterface
	view      View
	verifier  VerifySignal

	// OnVerificationRequired surfaces the challenge prompt to the user.
	OnVerificationRequired func(token string)
	// OnSendComplete runs after a replayed send finishes (the original
	// caller has long since returned). Status and error mirror Send's.
	OnSendComplete func(status SendStatus, err error)

	sendInFlight atomic.Bool
	logger       *log.Logger

	replayMu     sync.Mutex
	cancelReplay func()
}

// NewActions wires the action handlers.
func NewActions(transport TransportInterface, state StateInterface, view View, verifier VerifySignal) *Actions {
	return &Actions{
		transport: transport,
		state:     state,
		view:      view,
		verifier:  verifier,
	}
}

// SetLogger sets a logger for debugging action events
func (a *Actions) SetLogger(logger *log.Logger) {
	a.logger = logger
}

func (a *Actions) logf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// Send validates and submits a message. While a send is in flight further
// sends are rejected (the disabled-button guard); the guard is released on
// every path. On a verification challenge the send is registered for a
// single automatic replay and SendPendingVerification is returned.
func (a *Actions) Send(ctx context.Context, nickname, email, content string) (SendStatus, error) {
	nickname = strings.TrimSpace(nickname)
	email = strings.TrimSpace(email)
	content = strings.TrimSpace(content)

	if nickname == "" || email == "" || content == "" {
		return SendRejected, ErrMissingFields
	}
	if !ValidEmail(email) {
		return SendRejected, ErrInvalidEmail
	}

	if !a.sendInFlight.CompareAndSwap(false, true) {
		return SendRejected, ErrSendInFlight
	}
	defer a.sendInFlight.Store(false)

	// Persist the declared identity before the network call, like the
	// widget saving the form fields.
	if err := a.state.SetNickname(nickname); err != nil {
		a.logf("failed to persist nickname: %v", err)
	}
	if err := a.state.SetEmail(email); err != nil {
		a.logf("failed to persist email: %v", err)
	}

	deviceID, err := a.state.DeviceID()
	if err != nil {
		return SendRejected, fmt.Errorf("failed to resolve device id: %w", err)
	}

	resp, err := a.transport.PostMessage(ctx, api.SendRequest{
		Nickname: nickname,
		Email:    email,
		Content:  content,
		DeviceID: deviceID,
	})
	if err != nil {
		return SendRejected, err
	}

	if resp.Success {
		// No optimistic insert: the message arrives via the next poll.
		return SendAccepted, nil
	}

	if resp.Token != "" {
		if err := a.registerReplay(resp.Token, nickname, email, content); err != nil {
			return SendRejected, err
		}
		if a.OnVerificationRequired != nil {
			a.OnVerificationRequired(resp.Token)
		}
		return SendPendingVerification, nil
	}

	if resp.Error != "" {
		return SendRejected, errors.New(resp.Error)
	}
	return SendRejected, errors.New("send failed")
}

// registerReplay arms a one-shot subscription that re-invokes Send with
// the original arguments once the verification signal for token arrives.
func (a *Actions) registerReplay(token, nickname, email, content string) error {
	cancel, err := a.verifier.Subscribe(token, func() {
		a.logf("verification signal for token %s, replaying send", token)
		status, err := a.Send(context.Background(), nickname, email, content)
		if a.OnSendComplete != nil {
			a.OnSendComplete(status, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch for verification: %w", err)
	}
	// Only one challenge can be pending; a newer one supersedes the old
	// subscription, which would replay a stale message.
	a.replayMu.Lock()
	if a.cancelReplay != nil {
		a.cancelReplay()
	}
	a.cancelReplay = cancel
	a.replayMu.Unlock()
	return nil
}

// Close releases any armed verification replay.
func (a *Actions) Close() {
	a.replayMu.Lock()
	defer a.replayMu.Unlock()
	if a.cancelReplay != nil {
		a.cancelReplay()
		a.cancelReplay = nil
	}
}

// Delete asks the server to retract one message and removes it from the
// view on success. Requires a previously declared email.
func (a *Actions) Delete(ctx context.Context, id int64) error {
	email := a.state.Email()
	if email == "" {
		return ErrNoIdentity
	}
	deviceID, err := a.state.DeviceID()
	if err != nil {
		return fmt.Errorf("failed to resolve device id: %w", err)
	}

	resp, err := a.transport.PostDelete(ctx, id, api.DeleteRequest{
		Email:    email,
		DeviceID: deviceID,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		return errors.New("delete failed")
	}

	a.view.Remove(id)
	return nil
}
