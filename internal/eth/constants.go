package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token addresses - Ethereum mainnet
var (
	DAIAddress      = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	MainnetWETHAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// Sepolia deployment of the stablecoin suite
var (
	SepoliaChainID     = big.NewInt(11155111)
	SepoliaMSCEngine   = common.HexToAddress("0x1d3C86EDfB5A98E4fc843BF2fA55aec1a19f73cF")
	SepoliaMSCCoin     = common.HexToAddress("0x77a161deb9EF9DC33d8774a6F607F53450979E43")
	SepoliaWETH        = common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14")
	SepoliaCirclesNFT  = common.HexToAddress("0xD9DD92e79aFE93127f720C957562E32E922f0261")
	SepoliaExplorerURL = "https://sepolia.etherscan.io"
)

// all suite tokens use 18 decimals
const TokenDecimals = 18

type TokenInfo struct {
	Address  common.Address
	Decimals int
	Symbol   string
}

// KnownTokens - lookup by symbol string, used by the transfer volume chart
var KnownTokens = map[string]TokenInfo{
	"DAI":  {DAIAddress, 18, "DAI"},
	"WETH": {MainnetWETHAddr, 18, "WETH"},
}
