package server

import "github.com/rs/zerolog"

// Notifier delivers a verification link to the address that tried to post.
// The production deployment plugs in a real mail sender here.
type Notifier interface {
	SendVerification(email, link string) error
}

// LogNotifier writes verification links to the server log instead of
// sending mail. Useful for development and for tests.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs links.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendVerification logs the link at info level.
func (n *LogNotifier) SendVerification(email, link string) error {
	n.logger.Info().
		Str("email", email).
		Str("link", link).
		Msg("verification link issued")
	return nil
}
