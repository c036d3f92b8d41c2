package workflow

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/justicechain/justicechain/courterr"
	"github.com/justicechain/justicechain/docket"
	"github.com/justicechain/justicechain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContentStore struct {
	mutex sync.Mutex

	pinFileCalls []string
	pinJSONCalls int

	failFile map[string]error
	failJSON error
}

func (f *fakeContentStore) PinFile(fileName string, content io.Reader) (*string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.pinFileCalls = append(f.pinFileCalls, fileName)
	if err, ok := f.failFile[fileName]; ok {
		return nil, err
	}
	addr := fmt.Sprintf("https://gateway.test/Qm%s", fileName)
	return &addr, nil
}

func (f *fakeContentStore) PinJSON(v interface{}) (*string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.pinJSONCalls++
	if f.failJSON != nil {
		return nil, f.failJSON
	}
	addr := "https://gateway.test/QmSnapshot"
	return &addr, nil
}

type fakeLedger struct {
	submitCalls  int
	confirmCalls int

	lastParams *ledger.TransactionParams

	failSubmit  error
	failConfirm error
}

func (f *fakeLedger) SubmitTransaction(params *ledger.TransactionParams) (*ledger.TransactionHandle, error) {
	f.submitCalls++
	f.lastParams = params
	if f.failSubmit != nil {
		return nil, f.failSubmit
	}
	return &ledger.TransactionHandle{Hash: "0xabc123"}, nil
}

func (f *fakeLedger) WaitForConfirmation(handle *ledger.TransactionHandle) (*ledger.Receipt, error) {
	f.confirmCalls++
	if f.failConfirm != nil {
		return nil, f.failConfirm
	}
	return &ledger.Receipt{TxHash: handle.Hash, BlockNumber: 42}, nil
}

type fakeRecordStore struct {
	createCalls   int
	getCalls      int
	evidenceCalls int
	statusCalls   int

	lastCreateParams   *docket.CreateCaseParams
	lastEvidenceParams *docket.SubmitEvidenceParams
	lastStatus         string

	kase *docket.Case

	failCreate   error
	failEvidence error
	failStatus   error
}

func (f *fakeRecordStore) CreateCase(params *docket.CreateCaseParams) (*docket.Case, error) {
	f.createCalls++
	f.lastCreateParams = params
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return &docket.Case{}, nil
}

func (f *fakeRecordStore) GetCase(caseID string) (*docket.Case, error) {
	f.getCalls++
	if f.kase == nil {
		return &docket.Case{}, nil
	}
	return f.kase, nil
}

func (f *fakeRecordStore) SubmitEvidence(caseID string, params *docket.SubmitEvidenceParams) (*docket.Case, error) {
	f.evidenceCalls++
	f.lastEvidenceParams = params
	if f.failEvidence != nil {
		return nil, f.failEvidence
	}
	return &docket.Case{}, nil
}

func (f *fakeRecordStore) UpdateCaseStatus(caseID, status string) error {
	f.statusCalls++
	f.lastStatus = status
	return f.failStatus
}

func newTestController(mode string) (*Controller, *fakeContentStore, *fakeLedger, *fakeRecordStore) {
	contentStore := &fakeContentStore{failFile: map[string]error{}}
	ledgerClient := &fakeLedger{}
	records := &fakeRecordStore{}
	return NewController(contentStore, ledgerClient, records, mode), contentStore, ledgerClient, records
}

func validDraft() *CaseDraft {
	return &CaseDraft{
		Title:            "Lost deposit",
		Description:      "Landlord kept the deposit without cause",
		PlaintiffCounsel: ledger.CounselHuman,
		DefendantCounsel: ledger.CounselHuman,
		EscrowWei:        big.NewInt(1000000000000000),
		Document: &DocumentUpload{
			FileName: "lease.pdf",
			Content:  []byte("lease terms"),
		},
	}
}

func TestSubmitCaseValidationRejectsBeforeAnyRemoteCall(t *testing.T) {
	drafts := map[string]*CaseDraft{
		"missing title": {
			Description: "desc",
			EscrowWei:   big.NewInt(1),
		},
		"missing description": {
			Title:     "title",
			EscrowWei: big.NewInt(1),
		},
		"nil escrow": {
			Title:       "title",
			Description: "desc",
		},
		"zero escrow": {
			Title:       "title",
			Description: "desc",
			EscrowWei:   big.NewInt(0),
		},
		"negative escrow": {
			Title:       "title",
			Description: "desc",
			EscrowWei:   big.NewInt(-1),
		},
	}

	for name, draft := range drafts {
		t.Run(name, func(t *testing.T) {
			controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)

			_, err := controller.SubmitCase(draft)
			require.Error(t, err)

			var validationErr *courterr.ValidationError
			assert.True(t, errors.As(err, &validationErr))

			assert.Len(t, contentStore.pinFileCalls, 0)
			assert.Equal(t, 0, ledgerClient.submitCalls)
			assert.Equal(t, 0, records.createCalls)
		})
	}
}

func TestSubmitCaseHappyPathCallsEachDependencyOnce(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)

	kase, err := controller.SubmitCase(validDraft())
	require.NoError(t, err)
	require.NotNil(t, kase)

	assert.Equal(t, []string{"lease.pdf"}, contentStore.pinFileCalls)
	assert.Equal(t, 1, ledgerClient.submitCalls)
	assert.Equal(t, 1, ledgerClient.confirmCalls)
	assert.Equal(t, 1, records.createCalls)

	require.NotNil(t, records.lastCreateParams)
	assert.Equal(t, "Lost deposit", records.lastCreateParams.Title)
	assert.Equal(t, docket.CaseStatusOpen, records.lastCreateParams.Status)
	assert.Equal(t, "0xabc123", records.lastCreateParams.TransactionHash)
	assert.Equal(t, docket.CaseModeHumanHuman, records.lastCreateParams.Mode)
}

func TestSubmitCaseWithoutDocumentSkipsUpload(t *testing.T) {
	controller, contentStore, ledgerClient, _ := newTestController(docket.CaseModeHumanAI)

	draft := validDraft()
	draft.Document = nil

	_, err := controller.SubmitCase(draft)
	require.NoError(t, err)

	assert.Len(t, contentStore.pinFileCalls, 0)
	require.NotNil(t, ledgerClient.lastParams)
	assert.Equal(t, "", ledgerClient.lastParams.ContentAddress)
}

func TestSubmitCaseUploadFailureAbortsBeforeLedger(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	contentStore.failFile["lease.pdf"] = &courterr.UploadError{Err: errors.New("pin service unavailable")}

	_, err := controller.SubmitCase(validDraft())
	require.Error(t, err)

	var uploadErr *courterr.UploadError
	assert.True(t, errors.As(err, &uploadErr))

	assert.Equal(t, 0, ledgerClient.submitCalls)
	assert.Equal(t, 0, records.createCalls)
}

func TestSubmitCaseLedgerFailureAbortsBeforeBackend(t *testing.T) {
	controller, _, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	ledgerClient.failSubmit = &courterr.LedgerError{Kind: courterr.LedgerInsufficientFunds, Err: errors.New("insufficient funds for gas * price + value")}

	_, err := controller.SubmitCase(validDraft())
	require.Error(t, err)

	var ledgerErr *courterr.LedgerError
	require.True(t, errors.As(err, &ledgerErr))
	assert.Equal(t, courterr.LedgerInsufficientFunds, ledgerErr.Kind)

	assert.Equal(t, 0, ledgerClient.confirmCalls)
	assert.Equal(t, 0, records.createCalls)
}

func TestSubmitCaseBackendFailureSurfacesDivergence(t *testing.T) {
	controller, _, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	records.failCreate = &courterr.BackendError{Err: errors.New("503 service unavailable")}

	_, err := controller.SubmitCase(validDraft())
	require.Error(t, err)

	var divergenceErr *courterr.DivergenceError
	require.True(t, errors.As(err, &divergenceErr))
	assert.Equal(t, "0xabc123", divergenceErr.TxHash)

	assert.Equal(t, 1, ledgerClient.submitCalls)
	assert.Equal(t, 1, records.createCalls)
}

func TestRetryCasePersistenceOnlyRetriesBackend(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	records.failCreate = &courterr.BackendError{Err: errors.New("timeout")}

	_, err := controller.SubmitCase(validDraft())
	require.Error(t, err)

	records.failCreate = nil

	kase, err := controller.RetryCasePersistence()
	require.NoError(t, err)
	require.NotNil(t, kase)

	assert.Len(t, contentStore.pinFileCalls, 1)
	assert.Equal(t, 1, ledgerClient.submitCalls)
	assert.Equal(t, 2, records.createCalls)
	assert.Equal(t, "0xabc123", records.lastCreateParams.TransactionHash)
}

func TestRetryCasePersistenceWithoutPendingRecord(t *testing.T) {
	controller, _, _, records := newTestController(docket.CaseModeHumanHuman)

	_, err := controller.RetryCasePersistence()
	require.Error(t, err)

	var validationErr *courterr.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, 0, records.createCalls)
}

func TestSubmitEvidenceAllOrNothing(t *testing.T) {
	controller, contentStore, _, records := newTestController(docket.CaseModeHumanHuman)
	contentStore.failFile["b.pdf"] = &courterr.UploadError{Err: errors.New("pin rejected")}

	items := []*EvidenceItem{
		{FileName: "a.pdf", Content: []byte("a"), Description: "exhibit a"},
		{FileName: "b.pdf", Content: []byte("b"), Description: "exhibit b"},
		{FileName: "c.pdf", Content: []byte("c"), Description: "exhibit c"},
	}

	err := controller.SubmitEvidence("case-1", docket.CounselTypeHuman, nil, items)
	require.Error(t, err)

	var uploadErr *courterr.UploadError
	assert.True(t, errors.As(err, &uploadErr))

	assert.Len(t, contentStore.pinFileCalls, 3)
	assert.Equal(t, 0, records.evidenceCalls)
}

func TestSubmitEvidencePreservesInputOrder(t *testing.T) {
	controller, _, _, records := newTestController(docket.CaseModeHumanHuman)

	items := []*EvidenceItem{
		{FileName: "first.pdf", Content: []byte("1"), Description: "first"},
		{FileName: "second.pdf", Content: []byte("2"), Description: "second"},
		{FileName: "third.pdf", Content: []byte("3"), Description: "third"},
	}

	err := controller.SubmitEvidence("case-1", docket.CounselTypeHuman, nil, items)
	require.NoError(t, err)

	assert.Equal(t, 1, records.evidenceCalls)
	require.NotNil(t, records.lastEvidenceParams)
	require.Len(t, records.lastEvidenceParams.Evidence, 3)
	assert.Equal(t, "first.pdf", records.lastEvidenceParams.Evidence[0].OriginalFileName)
	assert.Equal(t, "second.pdf", records.lastEvidenceParams.Evidence[1].OriginalFileName)
	assert.Equal(t, "third.pdf", records.lastEvidenceParams.Evidence[2].OriginalFileName)
}

func TestSubmitEvidencePlainTextDescription(t *testing.T) {
	controller, _, _, records := newTestController(docket.CaseModeHumanHuman)

	content := strings.Repeat("x", 150)
	items := []*EvidenceItem{
		{FileName: "statement.TXT", Content: []byte(content), Description: " sworn statement"},
		{FileName: "photo.png", Content: []byte("binary"), Description: "photo of the unit"},
	}

	err := controller.SubmitEvidence("case-1", docket.CounselTypeHuman, nil, items)
	require.NoError(t, err)

	require.Len(t, records.lastEvidenceParams.Evidence, 2)
	assert.Equal(t, strings.Repeat("x", 100)+" sworn statement", records.lastEvidenceParams.Evidence[0].Description)
	assert.Equal(t, "photo of the unit", records.lastEvidenceParams.Evidence[1].Description)
}

func TestSubmitEvidenceValidation(t *testing.T) {
	controller, contentStore, _, records := newTestController(docket.CaseModeHumanHuman)

	err := controller.SubmitEvidence("", docket.CounselTypeHuman, nil, []*EvidenceItem{{FileName: "a.pdf"}})
	require.Error(t, err)

	err = controller.SubmitEvidence("case-1", docket.CounselTypeHuman, nil, nil)
	require.Error(t, err)

	assert.Len(t, contentStore.pinFileCalls, 0)
	assert.Equal(t, 0, records.evidenceCalls)
}

func TestPublishCaseHappyPath(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanAI)

	err := controller.PublishCase("case-1", big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, records.getCalls)
	assert.Equal(t, 1, contentStore.pinJSONCalls)
	assert.Equal(t, 1, ledgerClient.submitCalls)
	assert.Equal(t, 1, ledgerClient.confirmCalls)
	assert.Equal(t, 1, records.statusCalls)
	assert.Equal(t, docket.CaseStatusPublished, records.lastStatus)

	require.NotNil(t, ledgerClient.lastParams)
	assert.Equal(t, ledger.CounselAI, ledgerClient.lastParams.PlaintiffCounsel)
	assert.Equal(t, ledger.CounselAI, ledgerClient.lastParams.DefendantCounsel)
}

func TestPublishCaseValidation(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)

	require.Error(t, controller.PublishCase("", big.NewInt(1)))
	require.Error(t, controller.PublishCase("case-1", nil))
	require.Error(t, controller.PublishCase("case-1", big.NewInt(0)))

	assert.Equal(t, 0, records.getCalls)
	assert.Equal(t, 0, contentStore.pinJSONCalls)
	assert.Equal(t, 0, ledgerClient.submitCalls)
}

func TestPublishCaseStatusFailureSurfacesDivergence(t *testing.T) {
	controller, _, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	records.failStatus = &courterr.BackendError{Err: errors.New("500 internal server error")}

	err := controller.PublishCase("case-1", big.NewInt(1000))
	require.Error(t, err)

	var divergenceErr *courterr.DivergenceError
	require.True(t, errors.As(err, &divergenceErr))
	assert.Equal(t, "0xabc123", divergenceErr.TxHash)
	assert.Equal(t, 1, ledgerClient.submitCalls)
}

func TestPublishCaseLedgerFailureSkipsStatusPatch(t *testing.T) {
	controller, _, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)
	ledgerClient.failConfirm = &courterr.LedgerError{Kind: courterr.LedgerExecutionReverted, Err: errors.New("execution reverted")}

	err := controller.PublishCase("case-1", big.NewInt(1000))
	require.Error(t, err)

	var ledgerErr *courterr.LedgerError
	require.True(t, errors.As(err, &ledgerErr))
	assert.Equal(t, courterr.LedgerExecutionReverted, ledgerErr.Kind)
	assert.Equal(t, 0, records.statusCalls)
}

func TestStageNavigationMakesNoRemoteCalls(t *testing.T) {
	controller, contentStore, ledgerClient, records := newTestController(docket.CaseModeHumanHuman)

	assert.Equal(t, StageCreate, controller.Stage())
	assert.Equal(t, StageEvidence, controller.Continue())
	assert.Equal(t, StageReview, controller.Continue())
	assert.Equal(t, StageReview, controller.Continue())
	assert.Equal(t, StageEvidence, controller.Back())
	assert.Equal(t, StageCreate, controller.Back())
	assert.Equal(t, StageCreate, controller.Back())

	assert.Len(t, contentStore.pinFileCalls, 0)
	assert.Equal(t, 0, contentStore.pinJSONCalls)
	assert.Equal(t, 0, ledgerClient.submitCalls)
	assert.Equal(t, 0, records.createCalls)
	assert.Equal(t, 0, records.getCalls)
}
