package debugapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type sessionSummary struct {
	SessionID  int32   `json:"sessionId"`
	State      string  `json:"state"`
	PositionNs int64   `json:"positionNs"`
	MaxWidth   int32   `json:"maxWidth"`
	MaxHeight  int32   `json:"maxHeight"`
	SourceIDs  []int32 `json:"sourceIds"`
}

func (s *Server) listSessions(c *gin.Context) {
	ids := s.pb.Sessions()
	summaries := make([]sessionSummary, 0, len(ids))
	for _, id := range ids {
		sess, ok := s.pb.Session(id)
		if !ok {
			continue
		}
		summaries = append(summaries, sessionSummary{
			SessionID:  sess.ID,
			State:      sess.State().String(),
			PositionNs: sess.GetPosition(),
			MaxWidth:   sess.VideoRequirements.MaxWidth,
			MaxHeight:  sess.VideoRequirements.MaxHeight,
			SourceIDs:  sess.SourceIDs(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

func (s *Server) sessionFromParam(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	sess, ok := s.pb.Session(int32(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return 0, false
	}
	return sess.ID, true
}

func (s *Server) getSession(c *gin.Context) {
	id, ok := s.sessionFromParam(c)
	if !ok {
		return
	}
	sess, _ := s.pb.Session(id)
	c.JSON(http.StatusOK, sessionSummary{
		SessionID:  sess.ID,
		State:      sess.State().String(),
		PositionNs: sess.GetPosition(),
		MaxWidth:   sess.VideoRequirements.MaxWidth,
		MaxHeight:  sess.VideoRequirements.MaxHeight,
		SourceIDs:  sess.SourceIDs(),
	})
}

func (s *Server) getNeedData(c *gin.Context) {
	id, ok := s.sessionFromParam(c)
	if !ok {
		return
	}
	sess, _ := s.pb.Session(id)
	c.JSON(http.StatusOK, gin.H{
		"sessionId":       sess.ID,
		"pendingRequests": sess.PendingRequestIDs(),
	})
}

type keySystemStats struct {
	KeySystem    string `json:"keySystem"`
	SessionCount int    `json:"sessionCount"`
}

func (s *Server) listKeySessions(c *gin.Context) {
	if s.cdm == nil {
		c.JSON(http.StatusOK, gin.H{"keySystems": []keySystemStats{}})
		return
	}
	stats := s.cdm.Stats()
	out := make([]keySystemStats, 0, len(stats))
	for keySystem, count := range stats {
		out = append(out, keySystemStats{KeySystem: keySystem, SessionCount: count})
	}
	c.JSON(http.StatusOK, gin.H{"keySystems": out})
}
