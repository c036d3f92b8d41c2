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

package workflow

import (
	"bytes"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/courterr"
	"github.com/justicechain/justicechain/docket"
	"github.com/justicechain/justicechain/ledger"
)

// evidenceTextPreviewLimit caps the number of characters of a plain-text
// evidence file merged into its description
const evidenceTextPreviewLimit = 100

// ContentStore pins case documents and JSON snapshots
type ContentStore interface {
	PinFile(fileName string, content io.Reader) (*string, error)
	PinJSON(v interface{}) (*string, error)
}

// Ledger submits escrowed case transactions and awaits their confirmation
type Ledger interface {
	SubmitTransaction(params *ledger.TransactionParams) (*ledger.TransactionHandle, error)
	WaitForConfirmation(handle *ledger.TransactionHandle) (*ledger.Receipt, error)
}

// RecordStore persists case records in the backend
type RecordStore interface {
	CreateCase(params *docket.CreateCaseParams) (*docket.Case, error)
	GetCase(caseID string) (*docket.Case, error)
	SubmitEvidence(caseID string, params *docket.SubmitEvidenceParams) (*docket.Case, error)
	UpdateCaseStatus(caseID, status string) error
}

// DocumentUpload is a file attached to a draft before submission
type DocumentUpload struct {
	FileName string
	Content  []byte
}

// CaseDraft is the in-memory form state; it has no identity until a case
// record is created and is discarded once submission succeeds
type CaseDraft struct {
	Title       string
	Description string

	// CounterpartyAddress is nil when no counterparty is named; the ledger
	// substitutes the zero-address sentinel
	CounterpartyAddress *string

	PlaintiffCounsel ledger.CounselType
	DefendantCounsel ledger.CounselType

	EscrowWei *big.Int

	Document *DocumentUpload
}

// EvidenceItem is a single evidence file with its description
type EvidenceItem struct {
	FileName    string
	Content     []byte
	Description string
}

// Controller drives the linear case submission sequence across the
// content store, the ledger and the case record store; every remote call
// is attempted at most once per user action and failures are classified,
// surfaced and never silently retried
type Controller struct {
	contentStore ContentStore
	ledger       Ledger
	records      RecordStore

	mode  string
	stage Stage

	// retained when backend persistence fails after ledger confirmation so
	// the caller can retry only the backend step
	pendingRecord *docket.CreateCaseParams
}

// NewController initializes a stage controller for the given case mode
func NewController(contentStore ContentStore, ledgerClient Ledger, records RecordStore, mode string) *Controller {
	return &Controller{
		contentStore: contentStore,
		ledger:       ledgerClient,
		records:      records,
		mode:         mode,
		stage:        StageCreate,
	}
}

// Stage returns the current submission stage
func (c *Controller) Stage() Stage {
	return c.stage
}

// Continue advances one stage; a pure transition with no remote calls
func (c *Controller) Continue() Stage {
	c.stage = c.stage.Next()
	return c.stage
}

// Back moves one stage backward without rolling back already-completed
// remote effects; a pure transition with no remote calls
func (c *Controller) Back() Stage {
	c.stage = c.stage.Previous()
	return c.stage
}

// SubmitCase sequentially pins the draft document (when present), submits
// an escrowed ledger transaction referencing the content address, and
// persists the case record with the confirmed transaction reference.
// Exactly one upload (if a file is present), one ledger transaction and
// one backend create occur per successful call, in that order; the first
// failure aborts the remainder.
func (c *Controller) SubmitCase(draft *CaseDraft) (*docket.Case, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	contentAddress := ""
	if draft.Document != nil {
		addr, err := c.contentStore.PinFile(draft.Document.FileName, bytes.NewReader(draft.Document.Content))
		if err != nil {
			common.Log.Warningf("case submission aborted; %s", err.Error())
			return nil, err
		}
		contentAddress = *addr
	}

	handle, err := c.ledger.SubmitTransaction(&ledger.TransactionParams{
		CaseTitle:           draft.Title,
		CaseDescription:     draft.Description,
		ContentAddress:      contentAddress,
		CounterpartyAddress: draft.CounterpartyAddress,
		PlaintiffCounsel:    draft.PlaintiffCounsel,
		DefendantCounsel:    draft.DefendantCounsel,
		EscrowWei:           draft.EscrowWei,
	})
	if err != nil {
		common.Log.Warningf("case submission aborted; %s", err.Error())
		return nil, err
	}

	receipt, err := c.ledger.WaitForConfirmation(handle)
	if err != nil {
		common.Log.Warningf("case submission aborted awaiting confirmation of %s; %s", handle.Hash, err.Error())
		return nil, err
	}

	params := &docket.CreateCaseParams{
		Title:                draft.Title,
		Description:          draft.Description,
		Mode:                 c.mode,
		Status:               docket.CaseStatusOpen,
		PlaintiffCounselType: counselTypeName(draft.PlaintiffCounsel),
		TransactionHash:      receipt.TxHash,
	}

	kase, err := c.records.CreateCase(params)
	if err != nil {
		// the ledger transaction is irreversible; retain the record params
		// so only the backend step is retried
		c.pendingRecord = params
		return nil, &courterr.DivergenceError{TxHash: receipt.TxHash, Err: err}
	}

	c.pendingRecord = nil
	return kase, nil
}

// RetryCasePersistence retries only the backend persistence step of a
// submission that confirmed on the ledger but failed to persist; the
// ledger step is never re-invoked
func (c *Controller) RetryCasePersistence() (*docket.Case, error) {
	if c.pendingRecord == nil {
		return nil, &courterr.ValidationError{Field: "case", Reason: "no pending case persistence to retry"}
	}

	kase, err := c.records.CreateCase(c.pendingRecord)
	if err != nil {
		return nil, &courterr.DivergenceError{TxHash: c.pendingRecord.TransactionHash, Err: err}
	}

	c.pendingRecord = nil
	return kase, nil
}

// SubmitEvidence pins each file concurrently, then submits the complete
// evidence list as one backend call; any upload failure aborts the entire
// submission and nothing is sent. The final list follows input order, not
// completion order. Plain-text files have their leading characters merged
// into the description per a fixed truncation rule.
func (c *Controller) SubmitEvidence(caseID, counselType string, counselAddress *string, items []*EvidenceItem) error {
	if caseID == "" {
		return &courterr.ValidationError{Field: "case_id", Reason: "required"}
	}
	if len(items) == 0 {
		return &courterr.ValidationError{Field: "evidence", Reason: "at least one evidence item required"}
	}

	addresses := make([]*string, len(items))
	errors := make([]error, len(items))

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addresses[i], errors[i] = c.contentStore.PinFile(items[i].FileName, bytes.NewReader(items[i].Content))
		}(i)
	}
	wg.Wait()

	for _, err := range errors {
		if err != nil {
			common.Log.Warningf("evidence submission aborted; %s", err.Error())
			return err
		}
	}

	evidence := make([]*docket.EvidenceParams, len(items))
	for i, item := range items {
		evidence[i] = &docket.EvidenceParams{
			ContentAddress:   *addresses[i],
			Description:      describeEvidence(item),
			OriginalFileName: item.FileName,
		}
	}

	_, err := c.records.SubmitEvidence(caseID, &docket.SubmitEvidenceParams{
		CounselType:    counselType,
		CounselAddress: counselAddress,
		Evidence:       evidence,
	})
	return err
}

// PublishCase assembles a snapshot of the full case, pins it as a single
// JSON object, submits an escrowed ledger transaction referencing the
// snapshot, and patches the backend status to Published. A status patch
// failure after ledger confirmation surfaces the divergence explicitly;
// the ledger state is authoritative and is never auto-healed.
func (c *Controller) PublishCase(caseID string, escrowWei *big.Int) error {
	if caseID == "" {
		return &courterr.ValidationError{Field: "case_id", Reason: "required"}
	}
	if escrowWei == nil || escrowWei.Sign() <= 0 {
		return &courterr.ValidationError{Field: "escrow_amount", Reason: "must be positive"}
	}

	kase, err := c.records.GetCase(caseID)
	if err != nil {
		return err
	}

	contentAddress, err := c.contentStore.PinJSON(snapshotOf(kase))
	if err != nil {
		common.Log.Warningf("case publication aborted; %s", err.Error())
		return err
	}

	plaintiffCounsel, defendantCounsel := c.publicationCounsel()

	handle, err := c.ledger.SubmitTransaction(&ledger.TransactionParams{
		CaseTitle:           deref(kase.Title),
		CaseDescription:     deref(kase.Description),
		ContentAddress:      *contentAddress,
		CounterpartyAddress: kase.DefendantAddress,
		PlaintiffCounsel:    plaintiffCounsel,
		DefendantCounsel:    defendantCounsel,
		EscrowWei:           escrowWei,
	})
	if err != nil {
		common.Log.Warningf("case publication aborted; %s", err.Error())
		return err
	}

	receipt, err := c.ledger.WaitForConfirmation(handle)
	if err != nil {
		common.Log.Warningf("case publication aborted awaiting confirmation of %s; %s", handle.Hash, err.Error())
		return err
	}

	if err := c.records.UpdateCaseStatus(caseID, docket.CaseStatusPublished); err != nil {
		return &courterr.DivergenceError{TxHash: receipt.TxHash, Err: err}
	}

	return nil
}

// publicationCounsel resolves the on-ledger counsel types for publication
// from the case mode
func (c *Controller) publicationCounsel() (ledger.CounselType, ledger.CounselType) {
	if c.mode == docket.CaseModeHumanAI {
		return ledger.CounselAI, ledger.CounselAI
	}
	return ledger.CounselHuman, ledger.CounselHuman
}

// describeEvidence applies the fixed plain-text truncation rule: the first
// evidenceTextPreviewLimit characters of a .txt file are prepended to the
// user-supplied description
func describeEvidence(item *EvidenceItem) string {
	if strings.HasSuffix(strings.ToLower(item.FileName), ".txt") {
		return common.TruncateString(string(item.Content), evidenceTextPreviewLimit) + item.Description
	}
	return item.Description
}

func validateDraft(draft *CaseDraft) error {
	if draft == nil {
		return &courterr.ValidationError{Field: "draft", Reason: "required"}
	}
	if strings.TrimSpace(draft.Title) == "" {
		return &courterr.ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return &courterr.ValidationError{Field: "description", Reason: "required"}
	}
	if draft.EscrowWei == nil || draft.EscrowWei.Sign() <= 0 {
		return &courterr.ValidationError{Field: "escrow_amount", Reason: "must be positive"}
	}
	return nil
}

func counselTypeName(counsel ledger.CounselType) string {
	if counsel == ledger.CounselAI {
		return docket.CounselTypeAI
	}
	return docket.CounselTypeHuman
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// caseSnapshot is the structured payload pinned on publication
type caseSnapshot struct {
	CaseID      string        `json:"case_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Mode        string        `json:"mode"`
	Plaintiff   partySnapshot `json:"plaintiff"`
	Defendant   partySnapshot `json:"defendant"`
}

type partySnapshot struct {
	CounselType *string            `json:"counsel_type,omitempty"`
	Address     *string            `json:"address,omitempty"`
	Evidence    []*docket.Evidence `json:"evidence"`
}

func snapshotOf(kase *docket.Case) *caseSnapshot {
	return &caseSnapshot{
		CaseID:      kase.ID.String(),
		Title:       deref(kase.Title),
		Description: deref(kase.Description),
		Status:      deref(kase.Status),
		Mode:        deref(kase.Mode),
		Plaintiff: partySnapshot{
			CounselType: kase.PlaintiffCounselType,
			Address:     kase.PlaintiffAddress,
			Evidence:    kase.PlaintiffEvidence,
		},
		Defendant: partySnapshot{
			CounselType: kase.DefendantCounselType,
			Address:     kase.DefendantAddress,
			Evidence:    kase.DefendantEvidence,
		},
	}
}
