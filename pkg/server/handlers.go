package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat/pkg/api"
	"github.com/roomchat/roomchat/pkg/database"
	"github.com/roomchat/roomchat/pkg/markup"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// sinceLimit caps a single since_id response. A client further behind than
// this catches up over consecutive polls.
const sinceLimit = 500

// Handler implements the HTTP endpoints.
type Handler struct {
	db       *database.DB
	cfg      TOMLConfig
	logger   zerolog.Logger
	presence *Presence
	notifier Notifier
	renderer *markup.Renderer
}

// NewHandler creates the endpoint handler.
func NewHandler(db *database.DB, cfg TOMLConfig, logger zerolog.Logger, presence *Presence, notifier Notifier) *Handler {
	return &Handler{
		db:       db,
		cfg:      cfg,
		logger:   logger,
		presence: presence,
		notifier: notifier,
		renderer: markup.NewRenderer(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toAPIMessages(messages []*database.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ToAPI())
	}
	return out
}

// Health reports liveness plus the current active client count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"active_clients": h.presence.ActiveCount(),
	})
}

// History serves GET /{room}/history. The query shape is dispatched on the
// parameters: since_id wins over before_id, which wins over page.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	q := r.URL.Query()

	total, err := h.db.CountRoom(room)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("failed to count room")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if val := q.Get("since_id"); val != "" {
		sinceID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			http.Error(w, "invalid since_id", http.StatusBadRequest)
			return
		}
		messages, err := h.db.ListSince(room, sinceID, sinceLimit)
		if err != nil {
			h.logger.Error().Err(err).Str("room", room).Msg("failed to list since")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, api.HistoryResponse{
			Messages: toAPIMessages(messages),
			HasNext:  len(messages) == sinceLimit,
			HasPrev:  sinceID > 0,
			Total:    total,
		})
		return
	}

	if val := q.Get("before_id"); val != "" {
		beforeID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			http.Error(w, "invalid before_id", http.StatusBadRequest)
			return
		}
		messages, hasNext, err := h.db.ListBefore(room, beforeID, h.cfg.Limits.PerPage)
		if err != nil {
			h.logger.Error().Err(err).Str("room", room).Msg("failed to list before")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, api.HistoryResponse{
			Messages: toAPIMessages(messages),
			HasNext:  hasNext,
			HasPrev:  true,
			Total:    total,
		})
		return
	}

	page := 1
	if val := q.Get("page"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}
	messages, hasNext, err := h.db.ListPage(room, page, h.cfg.Limits.PerPage)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("failed to list page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, api.HistoryResponse{
		Messages: toAPIMessages(messages),
		HasNext:  hasNext,
		HasPrev:  page > 1,
		Total:    total,
	})
}

// Send serves POST /{room}/send. An unknown or unverified device receives
// a verification challenge instead of a stored message.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	var req api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.SendResponse{Error: "invalid request body"})
		return
	}

	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Content = strings.TrimSpace(req.Content)

	if msg := h.validateSend(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, api.SendResponse{Error: msg})
		return
	}

	if h.cfg.Verification.Required && !h.deviceVerifiedFor(req.DeviceID, req.Email) {
		token, err := h.issueChallenge(req.DeviceID, req.Email)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to issue verification challenge")
			writeJSON(w, http.StatusInternalServerError, api.SendResponse{Error: "internal error"})
			return
		}
		writeJSON(w, api.StatusVerificationRequired, api.SendResponse{
			Error: "device verification required",
			Token: token,
		})
		return
	}

	stored, err := h.db.InsertMessage(room, req.Nickname, req.Email, req.Content)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("failed to insert message")
		writeJSON(w, http.StatusInternalServerError, api.SendResponse{Error: "internal error"})
		return
	}

	messagesPosted.WithLabelValues(room).Inc()
	wire := stored.ToAPI()
	writeJSON(w, http.StatusOK, api.SendResponse{Success: true, Message: &wire})
}

func (h *Handler) validateSend(req api.SendRequest) string {
	if req.Nickname == "" || req.Email == "" || req.Content == "" {
		return "nickname, email and content are required"
	}
	if req.DeviceID == "" {
		return "device_id is required"
	}
	if !emailPattern.MatchString(req.Email) {
		return "email address is not valid"
	}
	if len(req.Nickname) > h.cfg.Limits.MaxNicknameLength {
		return fmt.Sprintf("nickname exceeds %d characters", h.cfg.Limits.MaxNicknameLength)
	}
	if len(req.Content) > h.cfg.Limits.MaxMessageLength {
		return fmt.Sprintf("message exceeds %d bytes", h.cfg.Limits.MaxMessageLength)
	}
	return ""
}

// deviceVerifiedFor reports whether the device has completed verification
// for this email address. A verified device switching to a new email must
// verify again.
func (h *Handler) deviceVerifiedFor(deviceID, email string) bool {
	dev, err := h.db.GetDevice(deviceID)
	if err != nil {
		return false
	}
	return dev.Verified && strings.EqualFold(dev.Email, email)
}

func (h *Handler) issueChallenge(deviceID, email string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	if err := h.db.UpsertPendingDevice(deviceID, email, token); err != nil {
		return "", err
	}

	link := strings.TrimRight(h.cfg.Server.BaseURL, "/") + "/verify/" + token
	if err := h.notifier.SendVerification(email, link); err != nil {
		h.logger.Error().Err(err).Str("email", email).Msg("failed to send verification link")
	}

	verificationsIssued.Inc()
	return token, nil
}

// Delete serves POST /{room}/delete/{id}. Only the author's email, posting
// from a verified device, may retract a message.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.DeleteResponse{Error: "invalid message id"})
		return
	}

	var req api.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.DeleteResponse{Error: "invalid request body"})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, api.DeleteResponse{Error: "email and device_id are required"})
		return
	}

	if h.cfg.Verification.Required && !h.deviceVerifiedFor(req.DeviceID, req.Email) {
		writeJSON(w, http.StatusForbidden, api.DeleteResponse{Error: "device is not verified for this email"})
		return
	}

	switch err := h.db.DeleteMessage(room, id, req.Email); {
	case errors.Is(err, database.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, api.DeleteResponse{Error: "message not found"})
	case errors.Is(err, database.ErrMessageNotOwned):
		writeJSON(w, http.StatusForbidden, api.DeleteResponse{Error: "you can only delete your own messages"})
	case err != nil:
		h.logger.Error().Err(err).Int64("id", id).Msg("failed to delete message")
		writeJSON(w, http.StatusInternalServerError, api.DeleteResponse{Error: "internal error"})
	default:
		messagesDeleted.Inc()
		writeJSON(w, http.StatusOK, api.DeleteResponse{Success: true})
	}
}

// Heartbeat serves POST /{room}/heartbeat.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req api.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.presence.Touch(req.ClientID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Verify serves GET /verify/{token}, the link delivered out-of-band. The
// token is single-use.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	dev, err := h.db.VerifyDeviceByToken(token)
	if errors.Is(err, database.ErrTokenNotFound) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<h1>Link expired</h1><p>This verification link is invalid or was already used.</p>")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to verify device")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	verificationsCompleted.Inc()
	h.logger.Info().Str("device_id", dev.DeviceID).Str("email", dev.Email).Msg("device verified")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<h1>Device verified</h1><p>%s can now post. Your pending message will be sent automatically.</p>", dev.Email)
}
