package onchain

// abi.go — hand-rolled ABIs for the seven protocol contract groups.
// Parsed once at init; a malformed ABI literal is a programming error,
// not a runtime condition.

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	registryABI     abi.ABI
	erc20ABI        abi.ABI
	burnDividendABI abi.ABI
	lossDividendABI abi.ABI
	nftDividendABI  abi.ABI
	nftSubABI       abi.ABI
	pairABI         abi.ABI
)

func mustABI(name, js string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(name + " abi parse: " + err.Error())
	}
	return parsed
}

func init() {
	registryABI = mustABI("registry", `[
		{"name": "token", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
		{"name": "rootInviter", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
		{"name": "inviterOf", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "address"}]},
		{"name": "burnedValueOf", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "totalBurnedValue", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "inviteeCount", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "minBurnValue", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "burn", "type": "function", "stateMutability": "nonpayable", "inputs": [{"name": "amount", "type": "uint256"}, {"name": "inviter", "type": "address"}], "outputs": []}
	]`)

	erc20ABI = mustABI("erc20", `[
		{"name": "symbol", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
		{"name": "balanceOf", "type": "function", "stateMutability": "view", "inputs": [{"name": "owner", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "allowance", "type": "function", "stateMutability": "view", "inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "approve", "type": "function", "stateMutability": "nonpayable", "inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "outputs": [{"name": "", "type": "bool"}]}
	]`)

	burnDividendABI = mustABI("burn-dividend", `[
		{"name": "getUnpaidDividendBNB", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "getUnpaidDividendToken", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "claimBNB", "type": "function", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
		{"name": "claimToken", "type": "function", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
	]`)

	lossDividendABI = mustABI("loss-dividend", `[
		{"name": "userSnapshots", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "costBasis", "type": "uint256"}, {"name": "soldValue", "type": "uint256"}, {"name": "dividendReceived", "type": "uint256"}]},
		{"name": "getCachedLoss", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "loss", "type": "uint256"}, {"name": "valid", "type": "bool"}]},
		{"name": "getUnpaidDividend", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}, {"name": "cachedLoss", "type": "uint256"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "totalDividendsAllocated", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "totalDividendsClaimed", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "pool", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
		{"name": "claim", "type": "function", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
	]`)

	nftDividendABI = mustABI("nft-dividend", `[
		{"name": "getUserInfo", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "performance", "type": "uint256"}, {"name": "nftCount", "type": "uint256"}, {"name": "totalDividends", "type": "uint256"}, {"name": "pendingDividends", "type": "uint256"}]},
		{"name": "getClaimableNFTCount", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "claim", "type": "function", "stateMutability": "nonpayable", "inputs": [], "outputs": []},
		{"name": "claimNFT", "type": "function", "stateMutability": "nonpayable", "inputs": [], "outputs": []}
	]`)

	nftSubABI = mustABI("nft-subscription", `[
		{"name": "pricePerShare", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "getTwoLevelSubscribed", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "teamSubscribed", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "uint256"}]},
		{"name": "inviterOf", "type": "function", "stateMutability": "view", "inputs": [{"name": "account", "type": "address"}], "outputs": [{"name": "", "type": "address"}]},
		{"name": "rootInviter", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
		{"name": "subscribe", "type": "function", "stateMutability": "payable", "inputs": [{"name": "shares", "type": "uint256"}, {"name": "inviter", "type": "address"}], "outputs": []}
	]`)

	pairABI = mustABI("pair", `[
		{"name": "getReserves", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "reserve0", "type": "uint112"}, {"name": "reserve1", "type": "uint112"}, {"name": "blockTimestampLast", "type": "uint32"}]},
		{"name": "token0", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]}
	]`)
}
