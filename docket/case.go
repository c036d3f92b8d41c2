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
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/justicechain/justicechain/common"
	dbconf "github.com/kthomas/go-db-config"
	uuid "github.com/kthomas/go.uuid"
	provide "github.com/provideplatform/provide-go/api"
)

// Case status values
const (
	CaseStatusOpen      = "Open"
	CaseStatusClosed    = "Closed"
	CaseStatusPublished = "Published"
)

// Counsel type values
const (
	CounselTypeHuman = "Human"
	CounselTypeAI    = "AI"
)

// Case mode values
const (
	CaseModeHumanHuman = "human-human"
	CaseModeHumanAI    = "human-ai"
)

// Party values for evidence routing
const (
	PartyPlaintiff = "plaintiff"
	PartyDefendant = "defendant"
)

// Case model
type Case struct {
	provide.Model

	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `sql:"not null;default:'Open'" json:"status"`
	Mode        *string `sql:"not null" json:"mode"`

	PlaintiffCounselType *string `json:"plaintiff_counsel_type"`
	PlaintiffAddress     *string `json:"plaintiff_address"`
	DefendantCounselType *string `json:"defendant_counsel_type,omitempty"`
	DefendantAddress     *string `json:"defendant_address,omitempty"`

	// hash of the confirmed ledger transaction referencing this case
	TransactionHash *string `json:"transaction_hash,omitempty"`

	// content address of the pinned case report, set asynchronously after publication
	ReportContentAddress *string `json:"report_content_address,omitempty"`

	// Associations
	UserID *uuid.UUID `sql:"type:uuid" json:"-"`

	// ephemeral evidence lists, loaded on enrichment
	PlaintiffEvidence []*Evidence `sql:"-" json:"plaintiff_evidence,omitempty"`
	DefendantEvidence []*Evidence `sql:"-" json:"defendant_evidence,omitempty"`

	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Evidence model; entries are append-ordered per party and never deduplicated
type Evidence struct {
	provide.Model

	CaseID *uuid.UUID `sql:"not null;type:uuid" json:"-"`
	Party  *string    `sql:"not null" json:"-"`

	ContentAddress   *string `sql:"not null" json:"content_address"`
	Description      *string `json:"description"`
	OriginalFileName *string `json:"original_file_name"`
}

// Find resolves a case by id
func Find(caseID uuid.UUID) *Case {
	db := dbconf.DatabaseConnection()
	c := &Case{}
	db.Where("id = ?", caseID.String()).Find(&c)
	if c == nil || c.ID == uuid.Nil {
		return nil
	}
	return c
}

// Create a case
func (c *Case) Create() bool {
	if !c.validate() {
		return false
	}

	db := dbconf.DatabaseConnection()

	if db.NewRecord(c) {
		result := db.Create(&c)
		rowsAffected := result.RowsAffected
		errors := result.GetErrors()
		if len(errors) > 0 {
			for _, err := range errors {
				c.Errors = append(c.Errors, &provide.Error{
					Message: common.StringOrNil(err.Error()),
				})
			}
		}
		if !db.NewRecord(c) {
			success := rowsAffected > 0
			if success {
				common.Log.Debugf("filed %s case: %s", *c.Mode, c.ID)
				c.dispatchNotification(natsCaseNotificationCreated)
			}
			return success
		}
	}

	return false
}

// enrich loads the per-party evidence lists in append order
func (c *Case) enrich(db *gorm.DB) {
	c.PlaintiffEvidence = make([]*Evidence, 0)
	c.DefendantEvidence = make([]*Evidence, 0)

	var evidence []*Evidence
	db.Where("case_id = ?", c.ID.String()).Order("created_at asc").Find(&evidence)

	for _, item := range evidence {
		if item.Party != nil && *item.Party == PartyDefendant {
			c.DefendantEvidence = append(c.DefendantEvidence, item)
		} else {
			c.PlaintiffEvidence = append(c.PlaintiffEvidence, item)
		}
	}
}

// appendEvidence routes the given evidence items to the correct party and
// persists them; human-ai cases route AI evidence to the defendant slot,
// human-human cases bind the defendant address on first submission and
// reject submissions from strangers
func (c *Case) appendEvidence(db *gorm.DB, counselType string, counselAddress *string, items []*Evidence) error {
	party, err := c.resolveParty(counselType, counselAddress)
	if err != nil {
		return err
	}

	if party == PartyDefendant && c.DefendantCounselType == nil {
		c.DefendantCounselType = common.StringOrNil(counselType)
		if counselType == CounselTypeHuman {
			c.DefendantAddress = counselAddress
		}
		db.Save(&c)
	}

	for _, item := range items {
		item.CaseID = &c.ID
		item.Party = common.StringOrNil(party)
		result := db.Create(&item)
		if errors := result.GetErrors(); len(errors) > 0 {
			return errors[0]
		}
	}

	c.dispatchNotification(natsCaseNotificationEvidenceSubmitted)
	return nil
}

func (c *Case) resolveParty(counselType string, counselAddress *string) (string, error) {
	if c.Mode != nil && *c.Mode == CaseModeHumanAI {
		if counselType == CounselTypeAI {
			return PartyDefendant, nil
		}
		return PartyPlaintiff, nil
	}

	if counselAddress == nil {
		return "", fmt.Errorf("counsel address required for %s cases", CaseModeHumanHuman)
	}

	if c.PlaintiffAddress != nil && *c.PlaintiffAddress == *counselAddress {
		return PartyPlaintiff, nil
	}
	if c.DefendantAddress == nil || *c.DefendantAddress == *counselAddress {
		return PartyDefendant, nil
	}

	return "", fmt.Errorf("only registered counsel can submit evidence for case %s", c.ID)
}

// updateStatus updates the case status
func (c *Case) updateStatus(db *gorm.DB, status string) error {
	c.Status = common.StringOrNil(status)
	if !db.NewRecord(&c) {
		result := db.Save(&c)
		errors := result.GetErrors()
		if len(errors) > 0 {
			for _, err := range errors {
				c.Errors = append(c.Errors, &provide.Error{
					Message: common.StringOrNil(err.Error()),
				})
			}
			return errors[0]
		}
	}

	c.dispatchNotification(natsCaseNotificationStatusUpdated)

	return nil
}

// validate the case params
func (c *Case) validate() bool {
	c.Errors = make([]*provide.Error, 0)

	if c.Title == nil {
		c.Errors = append(c.Errors, &provide.Error{
			Message: common.StringOrNil("case title required"),
		})
	}

	if c.Description == nil {
		c.Errors = append(c.Errors, &provide.Error{
			Message: common.StringOrNil("case description required"),
		})
	}

	if c.Mode == nil || (*c.Mode != CaseModeHumanHuman && *c.Mode != CaseModeHumanAI) {
		c.Errors = append(c.Errors, &provide.Error{
			Message: common.StringOrNil("case mode required"),
		})
	}

	if c.PlaintiffCounselType == nil || (*c.PlaintiffCounselType != CounselTypeHuman && *c.PlaintiffCounselType != CounselTypeAI) {
		c.Errors = append(c.Errors, &provide.Error{
			Message: common.StringOrNil("plaintiff counsel type required"),
		})
	}

	if c.Status == nil {
		c.Status = common.StringOrNil(CaseStatusOpen)
	}

	return len(c.Errors) == 0
}
