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

package ipfs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ipfs/go-cid"
	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/courterr"
)

// Client pins case documents and JSON snapshots to a pinning service and
// returns gateway-addressed content handles
type Client struct {
	apiURL     string
	gatewayURL string
	apiKey     string
	apiSecret  string

	httpClient *http.Client
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// InitClient initializes a pinning service client with the given configuration
func InitClient(apiURL, gatewayURL, apiKey, apiSecret string) *Client {
	return &Client{
		apiURL:     apiURL,
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{},
	}
}

// RequireClient initializes a pinning service client from the environment
func RequireClient() *Client {
	apiURL, gatewayURL, apiKey, apiSecret := common.RequireIPFSConfig()
	return InitClient(apiURL, gatewayURL, apiKey, apiSecret)
}

// PinFile pins the given file content and returns its content address
func (c *Client) PinFile(fileName string, content io.Reader) (*string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &courterr.UploadError{Err: err}
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/pinning/pinFileToIPFS", c.apiURL), body)
	if err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	hash, err := c.pin(req)
	if err != nil {
		return nil, err
	}

	common.Log.Debugf("pinned %s: %s", fileName, *hash)
	return c.contentAddress(*hash)
}

// PinJSON pins the given value as a single JSON object and returns its content address
func (c *Client) PinJSON(v interface{}) (*string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, &courterr.UploadError{Err: err}
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/pinning/pinJSONToIPFS", c.apiURL), bytes.NewReader(payload))
	if err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	hash, err := c.pin(req)
	if err != nil {
		return nil, err
	}

	common.Log.Debugf("pinned %d-byte JSON object: %s", len(payload), *hash)
	return c.contentAddress(*hash)
}

func (c *Client) pin(req *http.Request) (*string, error) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &courterr.UploadError{Err: fmt.Errorf("pinning service returned status %d", resp.StatusCode)}
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return nil, &courterr.UploadError{Err: err}
	}
	if pinned.IpfsHash == "" {
		return nil, &courterr.UploadError{Err: fmt.Errorf("pinning service returned no content hash")}
	}

	return common.StringOrNil(pinned.IpfsHash), nil
}

// contentAddress validates the returned hash parses as a CID and renders
// the gateway-addressed handle referenced by ledger transactions and
// case records
func (c *Client) contentAddress(hash string) (*string, error) {
	if _, err := cid.Decode(hash); err != nil {
		return nil, &courterr.UploadError{Err: fmt.Errorf("pinning service returned malformed content hash %s; %s", hash, err.Error())}
	}
	return common.StringOrNil(fmt.Sprintf("%s/%s", c.gatewayURL, hash)), nil
}
