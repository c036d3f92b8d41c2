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

package docket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/ipfs"
	dbconf "github.com/kthomas/go-db-config"
	natsutil "github.com/kthomas/go-natsutil"
	uuid "github.com/kthomas/go.uuid"
	"github.com/nats-io/nats.go"
)

const defaultNatsStream = "justicechain"

const natsCaseFinalizeSubject = "justicechain.case.finalize"
const natsCaseFinalizeCompleteSubject = "justicechain.case.finalize.complete"
const natsCaseFinalizeMaxInFlight = 32
const caseFinalizeAckWait = time.Minute * 5
const caseFinalizeMaxDeliveries = 5

var pinningClient *ipfs.Client

func init() {
	if !common.ConsumeNATSStreamingSubscriptions {
		common.Log.Debug("docket package consumer configured to skip NATS streaming subscription setup")
		return
	}

	natsutil.EstablishSharedNatsConnection(nil)
	natsutil.NatsCreateStream(defaultNatsStream, []string{
		fmt.Sprintf("%s.>", defaultNatsStream),
	})

	pinningClient = ipfs.RequireClient()

	var waitGroup sync.WaitGroup

	createNatsCaseFinalizeSubscriptions(&waitGroup)
}

func createNatsCaseFinalizeSubscriptions(wg *sync.WaitGroup) {
	for i := uint64(0); i < natsutil.GetNatsConsumerConcurrency(); i++ {
		natsutil.RequireNatsJetstreamSubscription(wg,
			caseFinalizeAckWait,
			natsCaseFinalizeSubject,
			natsCaseFinalizeSubject,
			natsCaseFinalizeSubject,
			consumeCaseFinalizeMsg,
			caseFinalizeAckWait,
			natsCaseFinalizeMaxInFlight,
			caseFinalizeMaxDeliveries,
			nil,
		)
	}
}

// consumeCaseFinalizeMsg pins the current report snapshot of a case and
// persists the resulting content address on the record; it runs after
// every lifecycle event so the report tracks the record
func consumeCaseFinalizeMsg(msg *nats.Msg) {
	defer func() {
		if r := recover(); r != nil {
			common.Log.Warningf("recovered during case report finalization; %s", r)
			msg.Nak()
		}
	}()

	common.Log.Debugf("consuming %d-byte NATS case finalize message on subject: %s", len(msg.Data), msg.Subject)

	params := map[string]interface{}{}
	err := json.Unmarshal(msg.Data, &params)
	if err != nil {
		common.Log.Warningf("failed to unmarshal case finalize message; %s", err.Error())
		msg.Nak()
		return
	}

	caseIDStr, caseIDOk := params["case_id"].(string)
	if !caseIDOk {
		common.Log.Warning("failed to unmarshal case_id during finalize message handler")
		msg.Nak()
		return
	}

	caseID, err := uuid.FromString(caseIDStr)
	if err != nil {
		common.Log.Warningf("failed to parse case id during finalize message handler; %s", err.Error())
		msg.Nak()
		return
	}

	db := dbconf.DatabaseConnection()

	kase := Find(caseID)
	if kase == nil {
		common.Log.Warningf("failed to resolve case during async report finalization; case id: %s", caseIDStr)
		msg.Nak()
		return
	}
	kase.enrich(db)

	contentAddress, err := pinningClient.PinJSON(kase)
	if err != nil {
		common.Log.Warningf("failed to pin report snapshot for case %s; %s", kase.ID, err.Error())
		msg.Nak()
		return
	}

	kase.ReportContentAddress = contentAddress
	result := db.Save(&kase)
	if errors := result.GetErrors(); len(errors) > 0 {
		common.Log.Warningf("failed to persist report content address for case %s; %s", kase.ID, errors[0].Error())
		msg.Nak()
		return
	}

	common.Log.Debugf("finalized report for case %s: %s", kase.ID, *contentAddress)
	natsutil.NatsJetstreamPublish(natsCaseFinalizeCompleteSubject, msg.Data)
	msg.Ack()
}
