package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"cybergift/native/gift"
)

type Config struct {
	ListenAddress string   `toml:"ListenAddress"`
	DataDir       string   `toml:"DataDir"`
	NetworkName   string   `toml:"NetworkName"`
	Env           string   `toml:"Env"`
	ClaimMode     string   `toml:"ClaimMode"`
	Campaign      Campaign `toml:"Campaign"`
}

// Claim admission modes. In passport mode claimants resolve through the
// identity registry; in signature mode they prove address ownership inline.
const (
	ClaimModeSignature = "signature"
	ClaimModePassport  = "passport"
)

// Campaign holds the gift parameters. Token amounts are decimal strings so
// balances beyond 64 bits survive the round trip through TOML.
type Campaign struct {
	Owner              string `toml:"Owner"`
	Treasury           string `toml:"Treasury"`
	CommunityPool      string `toml:"CommunityPool"`
	Passport           string `toml:"Passport"`
	Denom              string `toml:"Denom"`
	TargetClaim        uint64 `toml:"TargetClaim"`
	InitialBalance     string `toml:"InitialBalance"`
	CoefficientUp      string `toml:"CoefficientUp"`
	CoefficientDown    string `toml:"CoefficientDown"`
	InitialCoefficient string `toml:"InitialCoefficient"`
	ClaimBounty        string `toml:"ClaimBounty"`
	ReleaseStages      uint64 `toml:"ReleaseStages"`
	ReleasePeriodHours uint64 `toml:"ReleasePeriodHours"`
	PrimaryShareBps    uint32 `toml:"PrimaryShareBps"`
}

// Load loads the configuration from the given path, creating a commented
// default file on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "cybergift-local"
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./gift-data"
	}
	switch strings.TrimSpace(cfg.ClaimMode) {
	case "":
		cfg.ClaimMode = ClaimModeSignature
	case ClaimModeSignature, ClaimModePassport:
	default:
		return nil, fmt.Errorf("config: unknown ClaimMode %q", cfg.ClaimMode)
	}

	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./gift-data",
		NetworkName:   "cybergift-local",
		Env:           "development",
		ClaimMode:     ClaimModeSignature,
		Campaign: Campaign{
			Denom:              "boot",
			TargetClaim:        100_000,
			InitialBalance:     "10000000000000",
			CoefficientUp:      "20",
			CoefficientDown:    "5",
			InitialCoefficient: "20",
			ClaimBounty:        gift.DefaultClaimBounty.String(),
			ReleaseStages:      gift.DefaultReleaseStages,
			ReleasePeriodHours: 24,
			PrimaryShareBps:    gift.DefaultPrimaryShareBps,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Params converts the campaign section into engine parameters.
func (c *Config) Params() (*gift.Params, error) {
	camp := c.Campaign
	initial, err := parseAmount("InitialBalance", camp.InitialBalance)
	if err != nil {
		return nil, err
	}
	up, err := parseAmount("CoefficientUp", camp.CoefficientUp)
	if err != nil {
		return nil, err
	}
	down, err := parseAmount("CoefficientDown", camp.CoefficientDown)
	if err != nil {
		return nil, err
	}
	coefficient, err := parseAmount("InitialCoefficient", camp.InitialCoefficient)
	if err != nil {
		return nil, err
	}
	var bounty *big.Int
	if strings.TrimSpace(camp.ClaimBounty) != "" {
		if bounty, err = parseAmount("ClaimBounty", camp.ClaimBounty); err != nil {
			return nil, err
		}
	}
	params := &gift.Params{
		Owner:           camp.Owner,
		Treasury:        camp.Treasury,
		CommunityPool:   camp.CommunityPool,
		Passport:        camp.Passport,
		Denom:           camp.Denom,
		TargetClaim:     camp.TargetClaim,
		InitialBalance:  initial,
		CoefficientUp:   up,
		CoefficientDown: down,
		Coefficient:     coefficient,
		ClaimBounty:     bounty,
		ReleaseStages:   camp.ReleaseStages,
		ReleasePeriod:   time.Duration(camp.ReleasePeriodHours) * time.Hour,
		PrimaryShareBps: camp.PrimaryShareBps,
	}
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("config: %s is required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("config: %s is not a base-10 integer: %q", field, value)
	}
	return amount, nil
}
