package common

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	logger "github.com/kthomas/go-logger"
)

var (
	// Log is the configured logger
	Log *logger.Logger

	// ConsumeNATSStreamingSubscriptions flags this process as a NATS streaming consumer
	ConsumeNATSStreamingSubscriptions bool

	// DefaultCounterpartyAddress is the zero-address sentinel used when a case names no counterparty
	DefaultCounterpartyAddress = "0x0000000000000000000000000000000000000000"
)

func init() {
	godotenv.Load()

	requireLogger()

	ConsumeNATSStreamingSubscriptions = strings.ToLower(os.Getenv("CONSUME_NATS_STREAMING_SUBSCRIPTIONS")) == "true"
}

func requireLogger() {
	lvl := os.Getenv("LOG_LEVEL")
	if lvl == "" {
		lvl = "INFO"
	}

	var endpoint *string
	if os.Getenv("SYSLOG_ENDPOINT") != "" {
		endpt := os.Getenv("SYSLOG_ENDPOINT")
		endpoint = &endpt
	}

	Log = logger.NewLogger("justicechain", lvl, endpoint)
}

// RequireIPFSConfig reads the pinning service configuration from the environment
func RequireIPFSConfig() (apiURL, gatewayURL, apiKey, apiSecret string) {
	apiURL = os.Getenv("IPFS_API_URL")
	if apiURL == "" {
		apiURL = "https://api.pinata.cloud"
	}

	gatewayURL = os.Getenv("IPFS_GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "https://ipfs.io/ipfs"
	}

	apiKey = os.Getenv("IPFS_API_KEY")
	apiSecret = os.Getenv("IPFS_API_SECRET")

	PanicIfEmpty(apiKey, "IPFS_API_KEY not provided")
	PanicIfEmpty(apiSecret, "IPFS_API_SECRET not provided")

	return apiURL, gatewayURL, apiKey, apiSecret
}

// RequireLedgerConfig reads the EVM ledger configuration from the environment
func RequireLedgerConfig() (rpcURL, contractAddress, chainID string) {
	rpcURL = os.Getenv("LEDGER_RPC_URL")
	contractAddress = os.Getenv("LEDGER_CONTRACT_ADDRESS")

	chainID = os.Getenv("LEDGER_CHAIN_ID")
	if chainID == "" {
		chainID = "11155111" // sepolia
	}

	PanicIfEmpty(rpcURL, "LEDGER_RPC_URL not provided")
	PanicIfEmpty(contractAddress, "LEDGER_CONTRACT_ADDRESS not provided")

	return rpcURL, contractAddress, chainID
}

// RequireAuthConfig reads the session token provider configuration from the environment
func RequireAuthConfig() (apiURL, apiKey string) {
	apiURL = os.Getenv("AUTH_API_URL")
	apiKey = os.Getenv("AUTH_API_KEY")

	PanicIfEmpty(apiURL, "AUTH_API_URL not provided")
	PanicIfEmpty(apiKey, "AUTH_API_KEY not provided")

	return apiURL, apiKey
}

// ResolveDocketAPIURL reads the case record service base url from the environment
func ResolveDocketAPIURL() string {
	apiURL := os.Getenv("DOCKET_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return apiURL
}
