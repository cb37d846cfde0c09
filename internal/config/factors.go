package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FactorsHolder serves the current emission factor table and swaps it when
// factors.yml changes on disk.
type FactorsHolder struct {
	current atomic.Value // holds emissiondomain.FactorTable
}

// NewStaticFactorsHolder returns a holder that never reloads.
func NewStaticFactorsHolder(table emissiondomain.FactorTable) *FactorsHolder {
	h := &FactorsHolder{}
	h.current.Store(table.Clone())
	return h
}

// Earlier paths win.
var factorSearchPaths = []string{"/etc/cbam", "/var/lib/cbam/config", "."}

// NewFactorsHolder reads factors.yml from the usual locations, falling back to
// the built-in defaults when no file exists.
func NewFactorsHolder(log *zap.Logger) (*FactorsHolder, error) {
	v := viper.New()
	v.SetConfigName("factors")
	v.SetConfigType("yml")
	for _, path := range factorSearchPaths {
		v.AddConfigPath(path)
	}
	return newFactorsHolder(v, log)
}

// NewFactorsHolderFromFile reads an explicit factors file, which must exist.
func NewFactorsHolderFromFile(path string, log *zap.Logger) (*FactorsHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	return newFactorsHolder(v, log)
}

func newFactorsHolder(v *viper.Viper, log *zap.Logger) (*FactorsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}

	v.SetEnvPrefix("CBAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := emissiondomain.DefaultFactors()
	v.SetDefault("factors.gridFactor", defaults.GridFactor)
	v.SetDefault("factors.dieselFactor", defaults.DieselFactor)
	v.SetDefault("factors.coalFactor", defaults.CoalFactor)
	v.SetDefault("factors.precursors", precursorDefaults(defaults))

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeFactors(v)
	if err != nil {
		return nil, err
	}

	holder := &FactorsHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeFactors(v)
		if err != nil {
			log.Warn("factor reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("factors reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Set replaces the table after validating it.
func (h *FactorsHolder) Set(table emissiondomain.FactorTable) error {
	if err := ValidateFactors(table); err != nil {
		return err
	}
	h.current.Store(table.Clone())
	return nil
}

// Get returns a copy of the current table.
func (h *FactorsHolder) Get() emissiondomain.FactorTable {
	return h.current.Load().(emissiondomain.FactorTable).Clone()
}

// factorsFile is the on-disk shape. Precursors are a list because viper
// lower-cases map keys and material names are case sensitive.
type factorsFile struct {
	GridFactor   float64           `mapstructure:"gridFactor"`
	DieselFactor float64           `mapstructure:"dieselFactor"`
	CoalFactor   float64           `mapstructure:"coalFactor"`
	Precursors   []precursorFactor `mapstructure:"precursors"`
}

type precursorFactor struct {
	Name   string  `mapstructure:"name"`
	Factor float64 `mapstructure:"factor"`
}

func precursorDefaults(table emissiondomain.FactorTable) []map[string]any {
	out := make([]map[string]any, 0, len(table.Precursors))
	for _, name := range table.PrecursorMaterials() {
		out = append(out, map[string]any{"name": name, "factor": table.Precursors[name]})
	}
	return out
}

func decodeFactors(v *viper.Viper) (emissiondomain.FactorTable, error) {
	var file factorsFile
	if err := v.UnmarshalKey("factors", &file); err != nil {
		return emissiondomain.FactorTable{}, err
	}
	cfg := emissiondomain.FactorTable{
		GridFactor:   file.GridFactor,
		DieselFactor: file.DieselFactor,
		CoalFactor:   file.CoalFactor,
		Precursors:   make(map[string]float64, len(file.Precursors)),
	}
	for _, p := range file.Precursors {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return emissiondomain.FactorTable{}, errors.New("factors.precursors contains an empty material name")
		}
		cfg.Precursors[name] = p.Factor
	}
	if err := ValidateFactors(cfg); err != nil {
		return emissiondomain.FactorTable{}, err
	}
	return cfg, nil
}

// ValidateFactors rejects tables the calculator cannot use.
func ValidateFactors(cfg emissiondomain.FactorTable) error {
	if cfg.GridFactor <= 0 {
		return errors.New("factors.gridFactor must be positive")
	}
	if cfg.DieselFactor <= 0 {
		return errors.New("factors.dieselFactor must be positive")
	}
	if cfg.CoalFactor <= 0 {
		return errors.New("factors.coalFactor must be positive")
	}
	if len(cfg.Precursors) == 0 {
		return errors.New("factors.precursors cannot be empty")
	}
	for name, value := range cfg.Precursors {
		if strings.TrimSpace(name) == "" {
			return errors.New("factors.precursors contains an empty material name")
		}
		if value <= 0 {
			return fmt.Errorf("factors.precursors[%s] must be positive", name)
		}
	}
	return nil
}
