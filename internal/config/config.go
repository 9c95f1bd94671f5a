// Package config loads runtime settings from the environment (optionally seeded from a
// .env file) and network deployments from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/pulkyeet/dappkit/internal/eth"
)

const DefaultNetwork = "sepolia"

var ErrMissingRPCURL = errors.New("RPC_URL (or ALCHEMY_URL) not set")

type Config struct {
	RPCURL           string
	WalletRPCURL     string
	WalletPrivateKey string
	NetworkName      string
	NetworksFile     string
	LogLevel         string
	LogJSON          bool
	CacheDB          string
	RPCTimeout       time.Duration

	Network Network
}

// Contracts holds deployment addresses as hex strings; empty means not deployed.
type Contracts struct {
	MSCEngine      string `toml:"msc_engine"`
	MSCCoin        string `toml:"msc_coin"`
	WETH           string `toml:"weth"`
	CirclesERC1155 string `toml:"circles_erc1155"`
	CirclesForge   string `toml:"circles_forge"`
	AdvancedNFT    string `toml:"advanced_nft"`
	CirclesNFT     string `toml:"circles_nft"`
	NFTStaking     string `toml:"nft_staking"`
	RewardToken    string `toml:"reward_token"`
}

type Network struct {
	Name      string    `toml:"-"`
	ChainID   int64     `toml:"chain_id"`
	Explorer  string    `toml:"explorer"`
	RPCURL    string    `toml:"rpc_url"`
	Contracts Contracts `toml:"contracts"`
}

type networksFile struct {
	Networks map[string]Network `toml:"networks"`
}

// Builtin is the deployment the frontends shipped with.
func Builtin() map[string]Network {
	return map[string]Network{
		DefaultNetwork: {
			Name:     DefaultNetwork,
			ChainID:  eth.SepoliaChainID.Int64(),
			Explorer: eth.SepoliaExplorerURL,
			Contracts: Contracts{
				MSCEngine:  eth.SepoliaMSCEngine.Hex(),
				MSCCoin:    eth.SepoliaMSCCoin.Hex(),
				WETH:       eth.SepoliaWETH.Hex(),
				CirclesNFT: eth.SepoliaCirclesNFT.Hex(),
			},
		},
	}
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:           firstNonEmpty(os.Getenv("RPC_URL"), os.Getenv("ALCHEMY_URL")),
		WalletRPCURL:     os.Getenv("WALLET_RPC_URL"),
		WalletPrivateKey: strings.TrimPrefix(strings.TrimSpace(os.Getenv("WALLET_PRIVATE_KEY")), "0x"),
		NetworkName:      firstNonEmpty(os.Getenv("NETWORK"), DefaultNetwork),
		NetworksFile:     os.Getenv("NETWORKS_FILE"),
		LogLevel:         firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogJSON:          strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		CacheDB:          os.Getenv("CACHE_DB"),
	}

	if raw := os.Getenv("RPC_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			secs, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return nil, fmt.Errorf("RPC_TIMEOUT %q: %w", raw, err)
			}
			d = time.Duration(secs) * time.Second
		}
		cfg.RPCTimeout = d
	}

	networks := Builtin()
	if cfg.NetworksFile != "" {
		loaded, err := LoadNetworks(cfg.NetworksFile)
		if err != nil {
			return nil, err
		}
		for name, n := range loaded {
			networks[name] = n
		}
	}

	n, ok := networks[cfg.NetworkName]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", cfg.NetworkName)
	}
	cfg.Network = n
	if cfg.RPCURL == "" {
		cfg.RPCURL = n.RPCURL
	}
	return cfg, nil
}

// LoadNetworks decodes a [networks.<name>] TOML file.
func LoadNetworks(path string) (map[string]Network, error) {
	var f networksFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("read networks file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("networks file %s: unknown key %s", path, undecoded[0])
	}

	for name, n := range f.Networks {
		n.Name = name
		if err := n.Contracts.validate(); err != nil {
			return nil, fmt.Errorf("network %s: %w", name, err)
		}
		f.Networks[name] = n
	}
	return f.Networks, nil
}

// Validate checks that the settings every command needs are present.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return ErrMissingRPCURL
	}
	return c.Network.Contracts.validate()
}

// Address returns a deployment address, or an error naming the missing contract.
func (n Network) Address(contract string) (common.Address, error) {
	var raw string
	switch contract {
	case "MSCEngine":
		raw = n.Contracts.MSCEngine
	case "MetanaStableCoin":
		raw = n.Contracts.MSCCoin
	case "WETH":
		raw = n.Contracts.WETH
	case "CirclesERC1155":
		raw = n.Contracts.CirclesERC1155
	case "CirclesForge":
		raw = n.Contracts.CirclesForge
	case "AdvancedNFT":
		raw = n.Contracts.AdvancedNFT
	case "CirclesNFT":
		raw = n.Contracts.CirclesNFT
	case "NFTStaking":
		raw = n.Contracts.NFTStaking
	case "ERC20Test":
		raw = n.Contracts.RewardToken
	default:
		return common.Address{}, fmt.Errorf("unknown contract %s", contract)
	}
	if raw == "" {
		return common.Address{}, fmt.Errorf("%s is not deployed on %s", contract, n.Name)
	}
	return common.HexToAddress(raw), nil
}

func (c Contracts) validate() error {
	for name, v := range map[string]string{
		"msc_engine":      c.MSCEngine,
		"msc_coin":        c.MSCCoin,
		"weth":            c.WETH,
		"circles_erc1155": c.CirclesERC1155,
		"circles_forge":   c.CirclesForge,
		"advanced_nft":    c.AdvancedNFT,
		"circles_nft":     c.CirclesNFT,
		"nft_staking":     c.NFTStaking,
		"reward_token":    c.RewardToken,
	} {
		if v != "" && !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", name, v)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
