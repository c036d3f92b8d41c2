/*
 * Copyright 2024 JusticeChain contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/justicechain/justicechain/common"
	redisutil "github.com/kthomas/go-redisutil"
)

const roomHistoryTTL = time.Hour * 24 * 30

// conn is the subset of a websocket connection the manager writes through;
// the underlying websocket permits at most one concurrent writer, so every
// write to a registered connection must hold the manager mutex
type conn interface {
	WriteJSON(v interface{}) error
}

type room struct {
	connections map[conn]string // conn -> user address
	turnHolder  *string
}

// Manager tracks per-case chat rooms; room history is persisted in redis
// and replayed to joining connections
type Manager struct {
	mutex sync.Mutex
	rooms map[string]*room
}

// NewManager initializes a chat room manager
func NewManager() *Manager {
	return &Manager{
		rooms: map[string]*room{},
	}
}

// Connect registers a connection with the given case room; once registered,
// the connection may only be written through the manager
func (m *Manager) Connect(c conn, caseID, userAddress string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rm, roomOk := m.rooms[caseID]
	if !roomOk {
		rm = &room{connections: map[conn]string{}}
		m.rooms[caseID] = rm
	}
	rm.connections[c] = userAddress

	common.Log.Debugf("connection joined case room %s; %d connected", caseID, len(rm.connections))
}

// Disconnect removes a connection from the given case room; a departing
// turn holder releases the argument floor and empty rooms are discarded
func (m *Manager) Disconnect(c conn, caseID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rm, roomOk := m.rooms[caseID]
	if !roomOk {
		return
	}

	userAddress := rm.connections[c]
	delete(rm.connections, c)

	if rm.turnHolder != nil && *rm.turnHolder == userAddress {
		rm.turnHolder = nil
	}

	if len(rm.connections) == 0 {
		delete(m.rooms, caseID)
	}
}

// Send writes a single message to one connection, serialized with room
// broadcasts so no two goroutines write the same connection concurrently
func (m *Manager) Send(c conn, msg *Message) {
	now := time.Now()
	msg.Timestamp = &now

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := c.WriteJSON(msg); err != nil {
		common.Log.Debugf("failed to deliver %s message; %s", msg.Type, err.Error())
	}
}

// BroadcastToRoom appends the message to the room history and writes it to
// every connection in the room
func (m *Manager) BroadcastToRoom(msg *Message, caseID string) {
	now := time.Now()
	msg.Timestamp = &now

	if err := m.appendHistory(caseID, msg); err != nil {
		common.Log.Warningf("failed to persist chat history for case %s; %s", caseID, err.Error())
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	rm, roomOk := m.rooms[caseID]
	if !roomOk {
		return
	}

	for c := range rm.connections {
		if err := c.WriteJSON(msg); err != nil {
			common.Log.Debugf("failed to deliver %s message to case room %s; %s", msg.Type, caseID, err.Error())
		}
	}
}

// AdvanceTurn hands the argument turn to the given user and broadcasts a
// turn_update to the room
func (m *Manager) AdvanceTurn(caseID, userAddress string) {
	m.mutex.Lock()
	rm, roomOk := m.rooms[caseID]
	if roomOk {
		rm.turnHolder = common.StringOrNil(userAddress)
	}
	m.mutex.Unlock()

	m.BroadcastToRoom(&Message{
		Type:        MessageTypeTurnUpdate,
		Content:     userAddress,
		UserAddress: "system",
		CaseID:      caseID,
	}, caseID)
}

// TurnHolder returns the address currently holding the argument turn, if any
func (m *Manager) TurnHolder(caseID string) *string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if rm, roomOk := m.rooms[caseID]; roomOk {
		return rm.turnHolder
	}
	return nil
}

// claimTurn reports whether the given counsel may take the argument floor;
// an unheld floor is claimed by the caller
func (m *Manager) claimTurn(caseID, userAddress string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rm, roomOk := m.rooms[caseID]
	if !roomOk {
		return false
	}

	if rm.turnHolder == nil {
		rm.turnHolder = common.StringOrNil(userAddress)
		return true
	}
	return *rm.turnHolder == userAddress
}

// nextCounsel resolves another connected counsel to hand the argument
// turn to, if any
func (m *Manager) nextCounsel(caseID, fromAddress string) *string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rm, roomOk := m.rooms[caseID]
	if !roomOk {
		return nil
	}

	for _, userAddress := range rm.connections {
		if userAddress != fromAddress {
			return common.StringOrNil(userAddress)
		}
	}
	return nil
}

// clearTurn releases the argument floor for the given case room
func (m *Manager) clearTurn(caseID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if rm, roomOk := m.rooms[caseID]; roomOk {
		rm.turnHolder = nil
	}
}

// RoomMessages returns the persisted message history for the given case room
func (m *Manager) RoomMessages(caseID string) []*Message {
	raw, err := redisutil.Get(historyKey(caseID))
	if err != nil || raw == nil {
		return []*Message{}
	}

	var messages []*Message
	if err := json.Unmarshal([]byte(*raw), &messages); err != nil {
		common.Log.Warningf("failed to unmarshal chat history for case %s; %s", caseID, err.Error())
		return []*Message{}
	}
	return messages
}

func (m *Manager) appendHistory(caseID string, msg *Message) error {
	key := historyKey(caseID)
	return redisutil.WithRedlock(key, func() error {
		messages := m.RoomMessages(caseID)
		messages = append(messages, msg)

		payload, err := json.Marshal(messages)
		if err != nil {
			return err
		}

		ttl := roomHistoryTTL
		return redisutil.Set(key, string(payload), &ttl)
	})
}

func historyKey(caseID string) string {
	return fmt.Sprintf("justicechain.chat.history.%s", caseID)
}
