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

package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/justicechain/justicechain/common"
	"github.com/justicechain/justicechain/courterr"
)

// CounselType tags a party's counsel as human or AI
type CounselType uint8

const (
	// CounselHuman represents human counsel
	CounselHuman CounselType = iota

	// CounselAI represents AI counsel
	CounselAI
)

const createCaseGasLimit = uint64(500000)

const caseRegistryABI = `[{"inputs":[{"internalType":"string","name":"_name","type":"string"},{"internalType":"string","name":"_title","type":"string"},{"internalType":"string","name":"_description","type":"string"},{"internalType":"string","name":"_context","type":"string"},{"internalType":"address","name":"_defendant","type":"address"},{"internalType":"uint8","name":"_plaintiffLawyerType","type":"uint8"},{"internalType":"uint8","name":"_defendantLawyerType","type":"uint8"}],"name":"createCase","outputs":[],"stateMutability":"payable","type":"function"}]`

// TransactionParams describes an escrowed case transaction
type TransactionParams struct {
	CaseTitle       string
	CaseDescription string

	// ContentAddress references the pinned case document or snapshot;
	// empty when the case was filed without a document
	ContentAddress string

	// CounterpartyAddress is nil for cases without a named counterparty;
	// the zero-address sentinel is substituted on submission
	CounterpartyAddress *string

	PlaintiffCounsel CounselType
	DefendantCounsel CounselType

	EscrowWei *big.Int
}

// TransactionHandle references a submitted, not-yet-confirmed transaction
type TransactionHandle struct {
	Hash string

	tx *types.Transaction
}

// Receipt is the confirmation result for a submitted transaction
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Client submits escrowed case transactions to the case registry contract
type Client struct {
	rpc             *ethclient.Client
	contract        *bind.BoundContract
	contractAddress ethcommon.Address
	chainID         *big.Int
	signerKey       *ecdsa.PrivateKey
}

// InitClient initializes a ledger client against the given rpc endpoint and contract
func InitClient(rpcURL, contractAddress, chainID string, signerKey *ecdsa.PrivateKey) (*Client, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc endpoint %s; %s", rpcURL, err.Error())
	}

	parsedABI, err := abi.JSON(strings.NewReader(caseRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse case registry ABI; %s", err.Error())
	}

	id, ok := new(big.Int).SetString(chainID, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse chain id: %s", chainID)
	}

	address := ethcommon.HexToAddress(contractAddress)

	return &Client{
		rpc:             rpc,
		contract:        bind.NewBoundContract(address, parsedABI, rpc, rpc, rpc),
		contractAddress: address,
		chainID:         id,
		signerKey:       signerKey,
	}, nil
}

// RequireClient initializes a ledger client from the environment
func RequireClient() (*Client, error) {
	rpcURL, contractAddress, chainID := common.RequireLedgerConfig()

	rawKey := os.Getenv("LEDGER_SIGNER_PRIVATE_KEY")
	common.PanicIfEmpty(rawKey, "LEDGER_SIGNER_PRIVATE_KEY not provided")

	signerKey, err := crypto.HexToECDSA(strings.TrimPrefix(rawKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger signer private key; %s", err.Error())
	}

	return InitClient(rpcURL, contractAddress, chainID, signerKey)
}

// SubmitTransaction submits a single escrowed case transaction; it is
// attempted at most once and never retried here
func (c *Client) SubmitTransaction(params *TransactionParams) (*TransactionHandle, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.signerKey, c.chainID)
	if err != nil {
		return nil, courterr.ClassifyLedgerError(err)
	}
	opts.Value = params.EscrowWei
	opts.GasLimit = createCaseGasLimit

	counterparty := ethcommon.HexToAddress(common.DefaultCounterpartyAddress)
	if params.CounterpartyAddress != nil && *params.CounterpartyAddress != "" {
		counterparty = ethcommon.HexToAddress(*params.CounterpartyAddress)
	}

	tx, err := c.contract.Transact(
		opts,
		"createCase",
		params.CaseTitle,
		params.CaseTitle,
		params.CaseDescription,
		params.ContentAddress,
		counterparty,
		uint8(params.PlaintiffCounsel),
		uint8(params.DefendantCounsel),
	)
	if err != nil {
		common.Log.Warningf("failed to submit case transaction; %s", err.Error())
		return nil, courterr.ClassifyLedgerError(err)
	}

	common.Log.Debugf("submitted case transaction: %s", tx.Hash().Hex())
	return &TransactionHandle{
		Hash: tx.Hash().Hex(),
		tx:   tx,
	}, nil
}

// WaitForConfirmation blocks until the referenced transaction is mined and
// returns its receipt; a reverted transaction fails with the execution
// reverted kind
func (c *Client) WaitForConfirmation(handle *TransactionHandle) (*Receipt, error) {
	if handle == nil || handle.tx == nil {
		return nil, &courterr.LedgerError{Kind: courterr.LedgerOther, Err: fmt.Errorf("nil transaction handle")}
	}

	receipt, err := bind.WaitMined(context.Background(), c.rpc, handle.tx)
	if err != nil {
		common.Log.Warningf("failed to await confirmation of transaction %s; %s", handle.Hash, err.Error())
		return nil, courterr.ClassifyLedgerError(err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, &courterr.LedgerError{
			Kind: courterr.LedgerExecutionReverted,
			Err:  fmt.Errorf("transaction %s reverted in block %d", handle.Hash, receipt.BlockNumber.Uint64()),
		}
	}

	common.Log.Debugf("transaction %s confirmed in block %d", handle.Hash, receipt.BlockNumber.Uint64())
	return &Receipt{
		TxHash:      handle.Hash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}
