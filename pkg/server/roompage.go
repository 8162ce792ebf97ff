package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/room.html
var templateFS embed.FS

var roomTemplate = template.Must(template.ParseFS(templateFS, "templates/room.html"))

// roomPageMessage is one rendered message on the room page. HTML is the
// sanitized markdown rendering of the raw content.
type roomPageMessage struct {
	ID        int64
	Nickname  string
	Timestamp string
	HTML      template.HTML
}

type roomPageData struct {
	Room     string
	Total    int
	Active   int
	Messages []roomPageMessage
}

// roomPageDepth is how many recent messages the server-rendered page shows.
const roomPageDepth = 50

// RoomPage serves GET /{room}: a read-only server-rendered view of the
// recent history, newest at the bottom.
func (h *Handler) RoomPage(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	total, err := h.db.CountRoom(room)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("failed to count room")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	stored, _, err := h.db.ListPage(room, 1, roomPageDepth)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("failed to load room page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// ListPage returns newest first; the page reads top to bottom.
	messages := make([]roomPageMessage, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		m := stored[i].ToAPI()
		messages = append(messages, roomPageMessage{
			ID:        m.ID,
			Nickname:  m.Nickname,
			Timestamp: m.Timestamp,
			HTML:      h.renderer.Render(m.Content),
		})
	}

	data := roomPageData{
		Room:     room,
		Total:    total,
		Active:   h.presence.ActiveCount(),
		Messages: messages,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := roomTemplate.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("failed to render room page")
	}
}
