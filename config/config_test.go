package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "cybergift-local", cfg.NetworkName)
	require.Equal(t, ClaimModeSignature, cfg.ClaimMode)

	// Re-loading the generated file round-trips cleanly.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Campaign, reloaded.Campaign)
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Campaign]
Denom = "boot"
`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "./gift-data", cfg.DataDir)
	require.Equal(t, "development", cfg.Env)
	require.Equal(t, ClaimModeSignature, cfg.ClaimMode)
}

func TestLoadRejectsUnknownClaimMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`ClaimMode = "carrier-pigeon"`), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestParamsConversion(t *testing.T) {
	cfg := &Config{
		Campaign: Campaign{
			CommunityPool:      "cyber1qzrjelpdnvnvc4ns2jttt5tt2hjl45pzwvsnsf",
			Denom:              "boot",
			TargetClaim:        2,
			InitialBalance:     "10000000000000",
			CoefficientUp:      "20",
			CoefficientDown:    "5",
			InitialCoefficient: "20",
			ReleasePeriodHours: 24,
		},
	}
	params, err := cfg.Params()
	require.NoError(t, err)
	require.Equal(t, 0, params.InitialBalance.Cmp(big.NewInt(10_000_000_000_000)))
	require.Equal(t, 24*time.Hour, params.ReleasePeriod)
	// Normalize fills the optional knobs.
	require.EqualValues(t, 9, params.ReleaseStages)
	require.EqualValues(t, 8000, params.PrimaryShareBps)
	require.Equal(t, 0, params.ClaimBounty.Cmp(big.NewInt(100000)))
}

func TestParamsRejectsMalformedAmounts(t *testing.T) {
	cfg := &Config{
		Campaign: Campaign{
			CommunityPool:      "cyber1qzrjelpdnvnvc4ns2jttt5tt2hjl45pzwvsnsf",
			Denom:              "boot",
			TargetClaim:        2,
			InitialBalance:     "ten trillion",
			CoefficientUp:      "20",
			CoefficientDown:    "5",
			InitialCoefficient: "20",
		},
	}
	_, err := cfg.Params()
	require.Error(t, err)

	cfg.Campaign.InitialBalance = ""
	_, err = cfg.Params()
	require.Error(t, err)
}

func TestParamsValidates(t *testing.T) {
	cfg := &Config{
		Campaign: Campaign{
			Denom:              "boot",
			TargetClaim:        0,
			InitialBalance:     "1000",
			CoefficientUp:      "20",
			CoefficientDown:    "5",
			InitialCoefficient: "20",
		},
	}
	_, err := cfg.Params()
	require.Error(t, err)
}
