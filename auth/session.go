package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/courterr"
)

// Session holds the bearer credential returned by the session token
// provider; it is passed explicitly to client constructors and cleared on
// logout rather than held in ambient global state
type Session struct {
	Token         string  `json:"-"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

// Client exchanges identity-provider tokens for sessions
type Client struct {
	apiURL string
	apiKey string

	httpClient *http.Client
}

// InitClient initializes a session token provider client
func InitClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// RequireClient initializes a session token provider client from the environment
func RequireClient() *Client {
	apiURL, apiKey := common.RequireAuthConfig()
	return InitClient(apiURL, apiKey)
}

// Authenticate exchanges the given identity-provider token for a session
// and resolves the associated wallet address
func (c *Client) Authenticate(identityToken string) (*Session, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"id_token": identityToken,
	})

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/authenticate", c.apiURL), bytes.NewReader(payload))
	if err != nil {
		return nil, &courterr.AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &courterr.AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, &courterr.AuthError{Err: fmt.Errorf("session token provider returned status %d", resp.StatusCode)}
	}

	var authenticated struct {
		Data struct {
			AuthToken string `json:"auth_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authenticated); err != nil {
		return nil, &courterr.AuthError{Err: err}
	}
	if authenticated.Data.AuthToken == "" {
		return nil, &courterr.AuthError{Err: fmt.Errorf("session token provider returned no auth token")}
	}

	session := &Session{Token: authenticated.Data.AuthToken}
	if err := c.resolveWallet(session); err != nil {
		common.Log.Warningf("failed to resolve wallet for session; %s", err.Error())
	}

	return session, nil
}

func (c *Client) resolveWallet(session *Session) error {
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/wallet", c.apiURL), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.Token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("wallet resolution returned status %d", resp.StatusCode)
	}

	var wallet struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wallet); err != nil {
		return err
	}

	session.WalletAddress = common.StringOrNil(wallet.Address)
	return nil
}

// Clear invalidates the session credential
func (s *Session) Clear() {
	s.Token = ""
	s.WalletAddress = nil
}

// Authorized returns true while the session holds a credential
func (s *Session) Authorized() bool {
	return s != nil && s.Token != ""
}
