// Package config loads catsim settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"github.com/star/catsim/internal/astrotime"
	"github.com/star/catsim/internal/auth"
	"github.com/star/catsim/internal/variability"
)

// Keys in a config file; each is bound to the environment variable in
// envKeys.
const (
	KeyDataDir        = "data_dir"
	KeySimsDataDir    = "sims_data_dir"
	KeyMLTArchive     = "mlt_archive"
	KeyBandpassDir    = "bandpass_dir"
	KeyHTTPAddr       = "http_addr"
	KeyAuthEnabled    = "auth_enabled"
	KeyAuthToken      = "auth_token"
	KeyAGNCacheMax    = "agn_cache_max"
	KeyLCCache        = "lc_cache"
	KeyLCInterp       = "lc_interp"
	KeyObservationMJD = "observation_mjd"
	KeyTrustProxy     = "trust_proxy"
	KeyMaxEvals       = "max_evals_per_client"
	KeyMaxBodyBytes   = "max_body_bytes"
)

var envKeys = map[string]string{
	KeyDataDir:        "SIMS_SED_LIBRARY_DIR",
	KeySimsDataDir:    "SIMS_DATA_DIR",
	KeyMLTArchive:     "CATSIM_MLT_ARCHIVE",
	KeyBandpassDir:    "CATSIM_BANDPASS_DIR",
	KeyHTTPAddr:       "CATSIM_HTTP_ADDR",
	KeyAuthEnabled:    "CATSIM_AUTH_ENABLED",
	KeyAuthToken:      "CATSIM_AUTH_TOKEN",
	KeyAGNCacheMax:    "CATSIM_AGN_CACHE_MAX",
	KeyLCCache:        "CATSIM_LC_CACHE",
	KeyLCInterp:       "CATSIM_LC_INTERP",
	KeyObservationMJD: "CATSIM_OBS_MJD",
	KeyTrustProxy:     "CATSIM_TRUST_PROXY",
	KeyMaxEvals:       "CATSIM_MAX_EVALS_PER_CLIENT",
	KeyMaxBodyBytes:   "CATSIM_MAX_BODY_BYTES",
}

// MLTArchiveName is the flare archive file under the sims data directory.
const MLTArchiveName = "mdwarf_flare_light_curves_170412.npz"

// Config is the resolved catsim configuration.
type Config struct {
	DataDir          string // light curve directory for the periodic and BH models
	MLTArchive       string
	BandpassDir      string
	HTTPAddr         string
	Auth             auth.Config
	AGNCacheMax      int
	LightCurveCache  bool
	LightCurveInterp string // "spline" or "linear"
	ObservationMJD   float64
	TrustProxy       bool
	MaxEvalsPerIP    int
	MaxBodyBytes     int64
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		AGNCacheMax:      variability.DefaultAGNCacheMax,
		LightCurveCache:  true,
		LightCurveInterp: "spline",
		ObservationMJD:   astrotime.SurveyStartMJD,
		MaxEvalsPerIP:    4,
		MaxBodyBytes:     32 << 20,
	}
}

// Load resolves the configuration from v. When file is not empty it is
// read first; environment variables override file values. Malformed
// numeric values are logged and replaced by defaults. Malformed auth
// settings are errors.
func Load(v *viper.Viper, file string, logger *slog.Logger) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return cfg, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.DataDir = v.GetString(KeyDataDir)
	cfg.BandpassDir = v.GetString(KeyBandpassDir)
	if addr := v.GetString(KeyHTTPAddr); addr != "" {
		cfg.HTTPAddr = addr
	}

	cfg.MLTArchive = v.GetString(KeyMLTArchive)
	if cfg.MLTArchive == "" {
		if root := v.GetString(KeySimsDataDir); root != "" {
			cfg.MLTArchive = filepath.Join(root, "catUtilsData", MLTArchiveName)
		}
	}

	if s := v.GetString(KeyAGNCacheMax); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			logger.Warn("invalid "+envKeys[KeyAGNCacheMax]+" value, using default", "value", s, "default", cfg.AGNCacheMax)
		} else {
			cfg.AGNCacheMax = n
		}
	}

	if s := v.GetString(KeyMaxEvals); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			logger.Warn("invalid "+envKeys[KeyMaxEvals]+" value, using default", "value", s, "default", cfg.MaxEvalsPerIP)
		} else {
			cfg.MaxEvalsPerIP = n
		}
	}

	if s := v.GetString(KeyMaxBodyBytes); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			logger.Warn("invalid "+envKeys[KeyMaxBodyBytes]+" value, using default", "value", s, "default", cfg.MaxBodyBytes)
		} else {
			cfg.MaxBodyBytes = n
		}
	}

	if s := v.GetString(KeyObservationMJD); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			logger.Warn("invalid "+envKeys[KeyObservationMJD]+" value, using default", "value", s, "default", cfg.ObservationMJD)
		} else {
			cfg.ObservationMJD = f
		}
	}

	if s := v.GetString(KeyLCCache); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			logger.Warn("invalid "+envKeys[KeyLCCache]+" value, using default", "value", s, "default", cfg.LightCurveCache)
		} else {
			cfg.LightCurveCache = b
		}
	}

	if s := v.GetString(KeyLCInterp); s != "" {
		if _, err := variability.InterpByName(s); err != nil {
			logger.Warn("invalid "+envKeys[KeyLCInterp]+" value, using default", "value", s, "default", cfg.LightCurveInterp)
		} else {
			cfg.LightCurveInterp = s
		}
	}

	if s := v.GetString(KeyTrustProxy); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			logger.Warn("invalid "+envKeys[KeyTrustProxy]+" value, using default", "value", s, "default", false)
		} else {
			cfg.TrustProxy = b
		}
	}

	if s := v.GetString(KeyAuthEnabled); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return cfg, errors.New(envKeys[KeyAuthEnabled] + " must be a boolean value (true/false/1/0)")
		}
		cfg.Auth.Enabled = b
	}
	if cfg.Auth.Enabled {
		cfg.Auth.Token = v.GetString(KeyAuthToken)
		if cfg.Auth.Token == "" {
			return cfg, errors.New(envKeys[KeyAuthToken] + " is required when auth is enabled")
		}
	}

	logger.Info("catsim config",
		"data_dir", cfg.DataDir,
		"mlt_archive", cfg.MLTArchive,
		"bandpass_dir", cfg.BandpassDir,
		"http_addr", cfg.HTTPAddr,
		"auth_enabled", cfg.Auth.Enabled,
		"agn_cache_max", cfg.AGNCacheMax,
		"lc_cache", cfg.LightCurveCache,
		"lc_interp", cfg.LightCurveInterp,
		"observation_mjd", cfg.ObservationMJD,
	)
	return cfg, nil
}
