package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const customFactors = `factors:
  gridFactor: 0.5
  dieselFactor: 3.0
  coalFactor: 2.0
  precursors:
    - name: Iron Ore
      factor: 1.1
    - name: Pig Iron
      factor: 1.9
`

func writeFactors(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "factors.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStaticHolderReturnsCopies(t *testing.T) {
	h := NewStaticFactorsHolder(emissiondomain.DefaultFactors())
	table := h.Get()
	table.Precursors["Coke"] = 0
	assert.Equal(t, 3.6, h.Get().Precursors["Coke"])
}

func TestHolderSetRejectsInvalidTable(t *testing.T) {
	h := NewStaticFactorsHolder(emissiondomain.DefaultFactors())
	bad := emissiondomain.DefaultFactors()
	bad.GridFactor = 0
	assert.Error(t, h.Set(bad))
	assert.Equal(t, 0.715, h.Get().GridFactor)
}

func TestFromFileKeepsMaterialCase(t *testing.T) {
	path := writeFactors(t, t.TempDir(), customFactors)

	h, err := NewFactorsHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	table := h.Get()
	assert.Equal(t, 0.5, table.GridFactor)
	assert.Equal(t, map[string]float64{"Iron Ore": 1.1, "Pig Iron": 1.9}, table.Precursors)
}

func TestFromFileMissing(t *testing.T) {
	_, err := NewFactorsHolderFromFile(filepath.Join(t.TempDir(), "nope.yml"), zap.NewNop())
	assert.Error(t, err)
}

func TestFromFileRejectsNonPositiveFactor(t *testing.T) {
	path := writeFactors(t, t.TempDir(), "factors:\n  gridFactor: -1\n")
	_, err := NewFactorsHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFactors(t, dir, customFactors)

	h, err := NewFactorsHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	writeFactors(t, dir, strings.Replace(customFactors, "gridFactor: 0.5", "gridFactor: 0.9", 1))
	assert.Eventually(t, func() bool { return h.Get().GridFactor == 0.9 }, 3*time.Second, 50*time.Millisecond)
}

func TestValidateFactors(t *testing.T) {
	assert.NoError(t, ValidateFactors(emissiondomain.DefaultFactors()))

	empty := emissiondomain.DefaultFactors()
	empty.Precursors = map[string]float64{}
	assert.Error(t, ValidateFactors(empty))

	zero := emissiondomain.DefaultFactors()
	zero.Precursors["Scrap"] = 0
	assert.Error(t, ValidateFactors(zero))
}

func TestFactorSearchOrder(t *testing.T) {
	assert.Equal(t, []string{"/etc/cbam", "/var/lib/cbam/config", "."}, factorSearchPaths)
}
