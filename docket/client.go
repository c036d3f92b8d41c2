package docket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/justicechain/justicechain/auth"
	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/courterr"
)

// EvidenceParams is a single evidence entry as submitted to the record store
type EvidenceParams struct {
	ContentAddress   string `json:"content_address"`
	Description      string `json:"description"`
	OriginalFileName string `json:"original_file_name"`
}

// CreateCaseParams is the request schema for filing a case
type CreateCaseParams struct {
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Mode                 string            `json:"mode"`
	Status               string            `json:"status,omitempty"`
	PlaintiffCounselType string            `json:"plaintiff_counsel_type"`
	PlaintiffAddress     *string           `json:"plaintiff_address,omitempty"`
	TransactionHash      string            `json:"transaction_hash,omitempty"`
	Evidence             []*EvidenceParams `json:"evidence,omitempty"`
}

// SubmitEvidenceParams is the request schema for appending evidence
type SubmitEvidenceParams struct {
	CounselType    string            `json:"counsel_type"`
	CounselAddress *string           `json:"counsel_address,omitempty"`
	Evidence       []*EvidenceParams `json:"evidence"`
}

// APIClient is the case record store client consumed by the workflow
// layer; every request carries the session bearer credential and is
// attempted exactly once
type APIClient struct {
	baseURL string
	session *auth.Session

	httpClient *http.Client
}

// InitAPIClient initializes a case record store client bound to the given session
func InitAPIClient(baseURL string, session *auth.Session) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		session:    session,
		httpClient: &http.Client{},
	}
}

// RequireAPIClient initializes a case record store client from the environment
func RequireAPIClient(session *auth.Session) *APIClient {
	return InitAPIClient(common.ResolveDocketAPIURL(), session)
}

// CreateCase files a new case record
func (c *APIClient) CreateCase(params *CreateCaseParams) (*Case, error) {
	kase := &Case{}
	if err := c.send("POST", "api/v1/cases", params, kase); err != nil {
		return nil, err
	}
	return kase, nil
}

// GetCase retrieves full case details
func (c *APIClient) GetCase(caseID string) (*Case, error) {
	kase := &Case{}
	if err := c.send("GET", fmt.Sprintf("api/v1/cases/%s", caseID), nil, kase); err != nil {
		return nil, err
	}
	return kase, nil
}

// ListCases lists filed cases
func (c *APIClient) ListCases() ([]*Case, error) {
	var cases []*Case
	if err := c.send("GET", "api/v1/cases", nil, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// SubmitEvidence appends the complete evidence list to a case in one call
func (c *APIClient) SubmitEvidence(caseID string, params *SubmitEvidenceParams) (*Case, error) {
	kase := &Case{}
	if err := c.send("POST", fmt.Sprintf("api/v1/cases/%s/evidence", caseID), params, kase); err != nil {
		return nil, err
	}
	return kase, nil
}

// UpdateCaseStatus patches the case status
func (c *APIClient) UpdateCaseStatus(caseID, status string) error {
	params := map[string]interface{}{
		"status": status,
	}
	return c.send("PATCH", fmt.Sprintf("api/v1/cases/%s/status", caseID), params, nil)
}

func (c *APIClient) send(method, uri string, params, response interface{}) error {
	if !c.session.Authorized() {
		return &courterr.AuthError{Err: fmt.Errorf("no session credential")}
	}

	var body *bytes.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return &courterr.BackendError{Err: err}
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("%s/%s", c.baseURL, uri), body)
	if err != nil {
		return &courterr.BackendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.session.Token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &courterr.BackendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return &courterr.AuthError{Err: fmt.Errorf("case record store returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		return &courterr.BackendError{Err: fmt.Errorf("case record store returned status %d", resp.StatusCode)}
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return &courterr.BackendError{Err: err}
		}
	}

	return nil
}
