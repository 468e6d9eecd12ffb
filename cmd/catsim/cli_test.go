package main

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"SIMS_SED_LIBRARY_DIR", "SIMS_DATA_DIR", "CATSIM_MLT_ARCHIVE", "CATSIM_BANDPASS_DIR",
	"CATSIM_HTTP_ADDR", "CATSIM_AUTH_ENABLED", "CATSIM_AUTH_TOKEN", "CATSIM_AGN_CACHE_MAX",
	"CATSIM_LC_CACHE", "CATSIM_OBS_MJD", "CATSIM_TRUST_PROXY", "CATSIM_MAX_EVALS_PER_CLIENT",
	"CATSIM_MAX_BODY_BYTES", "CATSIM_LC_INTERP",
}

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCatalogFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE bright (varParamStr TEXT, parallax REAL, ebv REAL, magnitude REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO bright (varParamStr, parallax, ebv, magnitude) VALUES
		('{"m": "applyMicrolens", "p": {"t0": 1, "umin": 0.5, "that": 10}}', 1e-7, 0.1, 20),
		(NULL, 2e-7, 0.2, 21),
		('None', 3e-7, 0.3, 22)`)
	require.NoError(t, err)
	return path
}

func TestModelsListsCatalogKind(t *testing.T) {
	stdout, _, err := executeCLI(t, "models", "--catalog", "agn")
	require.NoError(t, err)
	assert.Equal(t, "applyAgn\n", stdout)
}

func TestColumnsListsHostColumns(t *testing.T) {
	stdout, _, err := executeCLI(t, "columns")
	require.NoError(t, err)
	assert.Equal(t, "varParamStr\nebv\nparallax\n", stdout)
}

func TestUnknownCatalogFails(t *testing.T) {
	_, _, err := executeCLI(t, "models", "--catalog", "comets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comets")
}

func TestApplyRequiresDB(t *testing.T) {
	_, _, err := executeCLI(t, "apply", "--table", "bright")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestApplyWritesCSV(t *testing.T) {
	db := writeCatalogFixture(t)
	stdout, stderr, err := executeCLI(t, "apply", "--db", db, "--table", "bright", "--mjd", "1", "--mjd", "11")
	require.NoError(t, err)
	assert.Contains(t, stderr, "catalog loaded")

	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+3*2)
	assert.Equal(t, []string{"object", "mjd",
		"delta_lsst_u", "delta_lsst_g", "delta_lsst_r", "delta_lsst_i", "delta_lsst_z", "delta_lsst_y"}, rows[0])

	assert.Equal(t, []string{"1", "1"}, rows[1][:2])
	peak, err := strconv.ParseFloat(rows[1][2], 64)
	require.NoError(t, err)
	assert.Less(t, peak, 0.0)
	later, err := strconv.ParseFloat(rows[2][2], 64)
	require.NoError(t, err)
	assert.Less(t, peak, later, "offset is largest at peak magnification")

	for _, row := range rows[3:] {
		for _, v := range row[2:] {
			assert.Equal(t, "0", v)
		}
	}
}

func TestApplyParsesRFC3339Epochs(t *testing.T) {
	opts := applyOptions{mjds: []float64{60000}, at: []string{"2022-01-01T00:00:00Z"}}
	mjds, err := opts.epochs(59580)
	require.NoError(t, err)
	assert.Equal(t, []float64{60000, 59580}, mjds)

	mjds, err = applyOptions{}.epochs(59580)
	require.NoError(t, err)
	assert.Equal(t, []float64{59580}, mjds)

	_, err = applyOptions{at: []string{"yesterday"}}.epochs(59580)
	assert.Error(t, err)
}

func TestCatalogColumns(t *testing.T) {
	got := catalogColumns(
		[]string{"varParamStr", "ebv", "parallax"},
		[]string{"varParamStr", "parallax", "magnitude", "quiescent_lsst_r", "ebv"},
	)
	assert.Equal(t, []string{"parallax", "quiescent_lsst_r", "ebv"}, got)
}
