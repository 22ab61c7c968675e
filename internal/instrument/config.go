package instrument

import (
	"fmt"
	"math"
	"strconv"

	ierrors "lafpass/internal/errors"
)

// Config mirrors the environment-variable surface the original coverage
// pass reads at process start (AFL_INST_RATIO, AFL_QUIET, AFL_HARDEN,
// AFL_USE_ASAN, AFL_USE_MSAN), plus the two knobs that pass had baked in
// as compile-time constants (map size, seed) and that a library without a
// separate build step must instead accept as explicit configuration.
type Config struct {
	// InstRatio is the percentage, 1-100, of otherwise-eligible blocks
	// that actually receive a probe. AFL_INST_RATIO.
	InstRatio uint

	// Quiet suppresses the entry banner and summary output. AFL_QUIET.
	Quiet bool

	// Harden, UseASAN and UseMSAN only affect the "mode" label printed in
	// the summary banner; they do not change what code gets emitted, just
	// as in the original pass.
	Harden  bool
	UseASAN bool
	UseMSAN bool

	// MapSize is the number of bytes in the edge-coverage bitmap. It must
	// be a power of two; MapSize*8 is the number of addressable laf-map
	// bit-slots. The original pass hardcodes this as MAP_SIZE from a
	// compiled-in config.h; without a separate compilation stage it is a
	// runtime field here instead, defaulting to the original's 1<<16.
	MapSize uint32

	// Seed drives the location-ID generator (AFL_R in the original, which
	// itself reseeds from a fixed value unless told otherwise). Exposing
	// it explicitly is what makes repeated instrumentation runs over the
	// same module reproducible.
	Seed int64
}

const defaultMapSize = 1 << 16

// DefaultConfig returns the Config equivalent to running the original
// pass with no AFL_* variables set: full instrumentation ratio, default
// map size, and a fixed seed for reproducibility.
func DefaultConfig() Config {
	return Config{
		InstRatio: 100,
		MapSize:   defaultMapSize,
		Seed:      0,
	}
}

// LoadConfig builds a Config by reading the same environment variables the
// original pass does, via getenv (os.Getenv in production, a stub map in
// tests). It validates AFL_INST_RATIO exactly as the original does: must
// parse as an unsigned integer between 1 and 100 inclusive.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv("AFL_INST_RATIO"); v != "" {
		ratio, err := strconv.ParseUint(v, 10, 32)
		if err != nil || ratio == 0 || ratio > 100 {
			return Config{}, ierrors.NewConfigError(
				ierrors.ErrorBadEnvValue, "AFL_INST_RATIO", v,
				"must be an integer between 1 and 100")
		}
		cfg.InstRatio = uint(ratio)
	}

	cfg.Quiet = getenv("AFL_QUIET") != ""
	cfg.Harden = getenv("AFL_HARDEN") != ""
	cfg.UseASAN = getenv("AFL_USE_ASAN") != ""
	cfg.UseMSAN = getenv("AFL_USE_MSAN") != ""

	return cfg, nil
}

// Validate checks invariants LoadConfig cannot: callers building a Config
// by hand (e.g. tests, or a library caller bypassing environment
// variables entirely) still get the same guarantees.
func (c Config) Validate() error {
	if c.InstRatio == 0 || c.InstRatio > 100 {
		return ierrors.NewConfigError(
			ierrors.ErrorBadEnvValue, "InstRatio", fmt.Sprint(c.InstRatio),
			"must be between 1 and 100")
	}
	if c.MapSize == 0 || c.MapSize&(c.MapSize-1) != 0 {
		return ierrors.NewConfigError(
			ierrors.ErrorBadMapSize, "MapSize", fmt.Sprint(c.MapSize),
			"must be a power of two")
	}
	if uint64(c.MapSize)*8 > math.MaxUint32 {
		return ierrors.NewConfigError(
			ierrors.ErrorBadMapSize, "MapSize", fmt.Sprint(c.MapSize),
			"must fit in a uint32 laf bit-index once multiplied by 8")
	}
	return nil
}

// ModeLabel reproduces the original pass's three-way mode string, used in
// its closing "Instrumented N locations (%s mode, ratio %d%%)" banner.
func (c Config) ModeLabel() string {
	switch {
	case c.Harden:
		return "hardened"
	case c.UseASAN, c.UseMSAN:
		return "ASAN/MSAN"
	default:
		return "non-hardened"
	}
}
