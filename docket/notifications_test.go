package docket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleEventsRegenerateReport(t *testing.T) {
	assert.True(t, requiresFinalization(natsCaseNotificationCreated))
	assert.True(t, requiresFinalization(natsCaseNotificationEvidenceSubmitted))
	assert.True(t, requiresFinalization(natsCaseNotificationStatusUpdated))
	assert.False(t, requiresFinalization(""))
	assert.False(t, requiresFinalization("unknown"))
}
