package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/models"
	"gorm.io/gorm"
)

// activityEvent holds data for an artifact activity SSE event.
type activityEvent struct {
	ArtifactID uint   `json:"artifact_id"`
	Name       string `json:"name"`
	Project    string `json:"project"`
	State      string `json:"state"`
	Kind       string `json:"kind"`
}

// handleInteractStream runs a streaming interaction and forwards each text
// chunk to the client as an SSE event, followed by a final done event with
// the parsed reply.
func handleInteractStream(svc *artifact.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		message := c.Query("message")
		if message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		reply, err := svc.StreamInteract(c.Request.Context(), id, message, c.Query("model"), c.Query("requester"), func(chunk string) {
			writeSSE(c.Writer, "chunk", map[string]string{"text": chunk})
			c.Writer.Flush()
		})
		if err != nil {
			writeSSE(c.Writer, "error", map[string]string{"error": err.Error()})
			c.Writer.Flush()
			return
		}

		writeSSE(c.Writer, "done", gin.H{
			"content":    reply.Content,
			"commentary": reply.Commentary,
		})
		c.Writer.Flush()
	}
}

// handleEvents creates an SSE handler that polls for artifact activity:
// new artifacts and state changes since the connection opened.
func handleEvents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Baseline: track artifact state pointers so only changes after
		// connect produce events.
		seen := make(map[uint]uint)
		var baseline []models.Artifact
		if err := db.Find(&baseline).Error; err != nil {
			writeSSE(c.Writer, "error", map[string]string{"error": err.Error()})
			c.Writer.Flush()
			return
		}
		for _, a := range baseline {
			seen[a.ID] = a.StateID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var current []models.Artifact
				if err := db.Preload("Project").Preload("State").Find(&current).Error; err != nil {
					continue
				}
				for i := range current {
					a := &current[i]
					prev, known := seen[a.ID]
					if known && prev == a.StateID {
						continue
					}
					seen[a.ID] = a.StateID

					evt := activityEvent{ArtifactID: a.ID, Name: a.Name}
					if a.Project != nil {
						evt.Project = a.Project.Name
					}
					if a.State != nil {
						evt.State = a.State.Name
					}
					if known {
						evt.Kind = "state_change"
					} else {
						evt.Kind = "new_artifact"
					}
					writeSSE(c.Writer, "activity", evt)
					c.Writer.Flush()
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
