package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const answerDelay = 300 * time.Millisecond

type queryRequest struct {
	Data    string `json:"data"`
	Context []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"context"`
}

type queryAnswer struct {
	Answer string   `json:"answer"`
	DocIds []string `json:"doc_ids"`
	Texts  []string `json:"texts"`
	Names  []string `json:"names"`
}

// answerScript produces deterministic answers so manual sessions and demos
// behave the same every run.
type answerScript struct{}

func newAnswerScript() *answerScript {
	return &answerScript{}
}

func (a *answerScript) Answer(question string, docs []storedDocument) queryAnswer {
	answer := queryAnswer{
		DocIds: make([]string, 0, 2),
		Texts:  make([]string, 0, 2),
		Names:  make([]string, 0, 2),
	}

	if len(docs) == 0 {
		answer.Answer = "I have no documents to search yet. Upload one and ask again."
		return answer
	}

	// Cite the first document twice and the second once, mirroring real
	// retrieval output where one source dominates.
	cite := func(doc storedDocument, excerpt string) {
		answer.DocIds = append(answer.DocIds, doc.Id)
		answer.Texts = append(answer.Texts, excerpt)
		answer.Names = append(answer.Names, doc.Name)
	}
	cite(docs[0], fmt.Sprintf("Passage related to %q from %s.", question, docs[0].Name))
	cite(docs[0], fmt.Sprintf("A second passage from %s.", docs[0].Name))
	if len(docs) > 1 {
		cite(docs[1], fmt.Sprintf("Supporting passage from %s.", docs[1].Name))
	}

	answer.Answer = fmt.Sprintf("Based on %s, here is what I found about %q.",
		strings.Join(answer.Names[:1], ", "), question)
	return answer
}

// handleQuery upgrades /ws/query. The token travels as a query parameter
// because browser websockets cannot set an Authorization header.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	if c.Query("token") == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			s.log.Info("Server", "Query session started", nil)
			s.serveQuery(conn)
			s.log.Info("Server", "Query session ended", nil)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (s *Server) serveQuery(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req queryRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.log.Warn("Server", "Malformed query payload", map[string]interface{}{
				"payload": string(raw),
			})
			continue
		}

		time.Sleep(answerDelay)

		payload, _ := json.Marshal([]queryAnswer{s.script.Answer(req.Data, s.docs.List())})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
