package eth

// Contract ABIs. Only the entry points the services use are declared; method names and
// argument order are fixed by the deployed contracts, typos included.

const erc20Functions = `
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}`

// ERC20ABI covers MetanaStableCoin, ERC20Test and any plain token used by the charts.
const ERC20ABI = `[` + erc20Functions + `]`

const WETHABI = `[` + erc20Functions + `,
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]}
]`

const MSCEngineABI = `[
	{"type":"function","name":"depositCollateralAndMintMsc","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"},{"name":"amountMscToMint","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"reedemCollateralForMsc","stateMutability":"nonpayable","inputs":[{"name":"tokenCollateralAddress","type":"address"},{"name":"amountCollateral","type":"uint256"},{"name":"amountMscToBurn","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"liquidate","stateMutability":"nonpayable","inputs":[{"name":"collateral","type":"address"},{"name":"user","type":"address"},{"name":"debtToCover","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getUsdValue","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAccountInformation","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"totalMscMinted","type":"uint256"},{"name":"collateralValueInUsd","type":"uint256"}]},
	{"type":"function","name":"getHealthFactor","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCollateralBalanceOfUser","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"CollateralDeposited","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"token","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":true}]},
	{"type":"error","name":"MSCEngine__NeedsMoreThanZero","inputs":[]},
	{"type":"error","name":"MSCEngine__NotAllowedToken","inputs":[]},
	{"type":"error","name":"MSCEngine__TransferFailed","inputs":[]},
	{"type":"error","name":"MSCEngine__BreaksHealthFactor","inputs":[{"name":"healthFactor","type":"uint256"}]},
	{"type":"error","name":"MSCEngine__MintFailed","inputs":[]},
	{"type":"error","name":"MSCEngine__HealthFactorOk","inputs":[]},
	{"type":"error","name":"MSCEngine__HealthFactorNotImproved","inputs":[]}
]`

const CirclesERC1155ABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"tradeToken","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"desiredToken","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLastMintTimestamp","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setForgingContract","stateMutability":"nonpayable","inputs":[{"name":"forgingContract","type":"address"}],"outputs":[]},
	{"type":"event","name":"TransferSingle","anonymous":false,"inputs":[{"name":"operator","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"id","type":"uint256","indexed":false},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"error","name":"CirclesERC1155__CooldownNotElapsed","inputs":[]},
	{"type":"error","name":"CirclesERC1155__InvalidTokenForTrade","inputs":[]},
	{"type":"error","name":"CirclesERC1155__NotAMinter","inputs":[]},
	{"type":"error","name":"CirclesERC1155__NotAnAdmin","inputs":[]}
]`

const CirclesForgeABI = `[
	{"type":"function","name":"forgeToken3","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"forgeToken4","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"forgeToken5","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"forgeToken6","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"mintTokensForContract","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"error","name":"CirclesForge__InsufficientToken0","inputs":[]},
	{"type":"error","name":"CirclesForge__InsufficientToken1","inputs":[]},
	{"type":"error","name":"CirclesForge__InsufficientToken2","inputs":[]}
]`

const AdvancedNFTABI = `[
	{"type":"function","name":"mintWithMerkleProof","stateMutability":"nonpayable","inputs":[{"name":"merkleProof","type":"bytes32[]"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"commit","stateMutability":"nonpayable","inputs":[{"name":"dataHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"reveal","stateMutability":"nonpayable","inputs":[{"name":"data","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"multicall","stateMutability":"nonpayable","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[{"name":"results","type":"bytes[]"}]},
	{"type":"function","name":"startPublicSale","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"endSale","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdrawFunds","stateMutability":"nonpayable","inputs":[{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]},
	{"type":"event","name":"CommitEvent","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"dataHash","type":"bytes32","indexed":false},{"name":"blockNumber","type":"uint256","indexed":false}]},
	{"type":"event","name":"RevealEvent","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"randomNumber","type":"uint256","indexed":false}]},
	{"type":"error","name":"AdvancedNFT__InvalidMerkleProof","inputs":[]},
	{"type":"error","name":"AdvancedNFT__TokenAlreadyMinted","inputs":[]},
	{"type":"error","name":"AdvancedNFT__RevealTooEarly","inputs":[]},
	{"type":"error","name":"AdvancedNFT__RevealTooLate","inputs":[]},
	{"type":"error","name":"AdvancedNFT__InvalidReveal","inputs":[]},
	{"type":"error","name":"AdvancedNFT__NotInCorrectSaleState","inputs":[]}
]`

const CirclesNFTABI = `[
	{"type":"function","name":"mint","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setStakingContract","stateMutability":"nonpayable","inputs":[{"name":"stakingContract","type":"address"}],"outputs":[]},
	{"type":"function","name":"godModeTransfer","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const NFTStakingABI = `[
	{"type":"function","name":"stakeNFT","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"unstakeNFT","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawERC20","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`
