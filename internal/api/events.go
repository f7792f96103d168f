package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxline/narravox/internal/jobs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is bearer-token authenticated; browser origins are not a
	// trust boundary here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// ProgressEvent is one message on the job events stream.
type ProgressEvent struct {
	JobID             string  `json:"job_id"`
	Status            string  `json:"status"`
	Progress          float64 `json:"progress"`
	TotalSegments     int     `json:"total_segments"`
	CompletedSegments int     `json:"completed_segments"`
	Error             string  `json:"error,omitempty"`
}

// handleJobEvents handles GET /v1/jobs/{id}/events: a WebSocket stream of
// progress updates that closes after the terminal snapshot.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	updates, cancel, err := s.manager.Subscribe(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "job_id", id, "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(progressEvent(snapshot)); err != nil {
				s.logger.Debug("websocket write failed", "job_id", id, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func progressEvent(job jobs.Job) ProgressEvent {
	return ProgressEvent{
		JobID:             job.ID,
		Status:            string(job.Status),
		Progress:          job.Progress,
		TotalSegments:     job.TotalSegments,
		CompletedSegments: job.CompletedSegments,
		Error:             job.ErrorMessage,
	}
}
