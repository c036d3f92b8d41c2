package chat

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/justicechain/justicechain/common"
)

var manager = NewManager()

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InstallAPI registers the realtime channel handler with gin
func InstallAPI(r *gin.Engine) {
	r.GET("/ws/:caseId/:userAddress", connectHandler)
}

// connectHandler upgrades the connection, replays room history and pumps
// inbound frames until the connection drops; a dropped connection is
// simply surfaced as disconnected, with no automatic reconnect
func connectHandler(c *gin.Context) {
	caseID := c.Param("caseId")
	userAddress := c.Param("userAddress")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		common.Log.Warningf("failed to upgrade chat connection for case %s; %s", caseID, err.Error())
		return
	}

	// history replays before the connection joins the room; the connection
	// is not yet visible to broadcasts, so these writes cannot interleave
	// with another goroutine's
	for _, msg := range manager.RoomMessages(caseID) {
		if err := conn.WriteJSON(msg); err != nil {
			common.Log.Debugf("failed to replay chat history for case %s; %s", caseID, err.Error())
			break
		}
	}

	manager.Connect(conn, caseID, userAddress)

	manager.BroadcastToRoom(&Message{
		Type:        MessageTypeSystem,
		Content:     fmt.Sprintf("user %s joined the chat", userAddress),
		UserAddress: "system",
		CaseID:      caseID,
	}, caseID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var inbound struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(data, &inbound); err != nil || inbound.Content == "" {
			manager.Send(conn, &Message{
				Type:    MessageTypeError,
				Content: "invalid message format",
				CaseID:  caseID,
			})
			continue
		}

		if inbound.Type == MessageTypeHumanInput {
			handleArgument(conn, caseID, userAddress, inbound.Content)
			continue
		}

		manager.BroadcastToRoom(&Message{
			Type:        MessageTypeChat,
			Content:     inbound.Content,
			UserAddress: userAddress,
			CaseID:      caseID,
		}, caseID)
	}

	manager.Disconnect(conn, caseID)
	conn.Close()

	manager.BroadcastToRoom(&Message{
		Type:        MessageTypeSystem,
		Content:     fmt.Sprintf("user %s left the chat", userAddress),
		UserAddress: "system",
		CaseID:      caseID,
	}, caseID)
}

// handleArgument gates a human_input frame on the argument turn: an unheld
// floor is claimed by the sender, a held floor rejects other counsel, and
// an accepted argument hands the turn to the opposing counsel when one is
// connected, otherwise reopens the floor
func handleArgument(c conn, caseID, userAddress, content string) {
	if !manager.claimTurn(caseID, userAddress) {
		manager.Send(c, &Message{
			Type:    MessageTypeError,
			Content: "argument turn held by another counsel",
			CaseID:  caseID,
		})
		return
	}

	manager.BroadcastToRoom(&Message{
		Type:        MessageTypeHumanInput,
		Content:     content,
		UserAddress: userAddress,
		CaseID:      caseID,
	}, caseID)

	if next := manager.nextCounsel(caseID, userAddress); next != nil {
		manager.AdvanceTurn(caseID, *next)
		return
	}

	manager.clearTurn(caseID)
	manager.BroadcastToRoom(&Message{
		Type:        MessageTypeStateUpdate,
		Content:     "argument floor open",
		UserAddress: "system",
		CaseID:      caseID,
	}, caseID)
}
