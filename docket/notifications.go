package docket

import (
	"encoding/json"
	"fmt"

	"github.com/justicechain/justicechain/common"
	natsutil "github.com/kthomas/go-natsutil"
	uuid "github.com/kthomas/go.uuid"
)

const natsCaseNotificationCreated = "created"
const natsCaseNotificationEvidenceSubmitted = "evidence.submitted"
const natsCaseNotificationStatusUpdated = "status.updated"

// dispatchNotification broadcasts a case lifecycle event to qualified
// subjects and enqueues report regeneration for events that change what
// the pinned report would contain
func (c *Case) dispatchNotification(event string) {
	prefix := c.notificationsSubjectPrefix()
	if prefix == nil || event == "" {
		common.Log.Warningf("failed to dispatch event notification for case %s; nil prefix or event", c.ID.String())
		return
	}

	subject := fmt.Sprintf("%s.%s", *prefix, event)
	payload, _ := json.Marshal(map[string]interface{}{
		"case_id": c.ID.String(),
	})

	_, err := natsutil.NatsJetstreamPublish(subject, payload)
	if err != nil {
		common.Log.Warningf("failed to dispatch %s notification for case %s; %s", event, c.ID, err.Error())
	}

	if requiresFinalization(event) {
		publishFinalizationRequested(c.ID)
	}
}

// requiresFinalization reports whether the given lifecycle event changes
// the case record in a way the pinned report must track
func requiresFinalization(event string) bool {
	switch event {
	case natsCaseNotificationCreated, natsCaseNotificationEvidenceSubmitted, natsCaseNotificationStatusUpdated:
		return true
	}
	return false
}

// notificationsSubjectPrefix returns the pub/sub subject prefix for the case
func (c *Case) notificationsSubjectPrefix() *string {
	if c.UserID != nil {
		return common.StringOrNil(fmt.Sprintf("justicechain.case.notification.%s.%s", c.UserID.String(), c.ID.String()))
	}
	return common.StringOrNil(fmt.Sprintf("justicechain.case.notification.%s", c.ID.String()))
}

// publishFinalizationRequested enqueues async report regeneration for a case
func publishFinalizationRequested(caseID uuid.UUID) {
	payload, _ := json.Marshal(map[string]interface{}{
		"case_id": caseID.String(),
	})
	_, err := natsutil.NatsJetstreamPublish(natsCaseFinalizeSubject, payload)
	if err != nil {
		common.Log.Warningf("failed to enqueue report regeneration for case %s; %s", caseID, err.Error())
	}
}
