package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/optionsim/optionsim/sim"
	"github.com/optionsim/optionsim/sim/broker"
	"github.com/optionsim/optionsim/sim/datasource"
	"github.com/optionsim/optionsim/sim/trace"
)

const dateLayout = "2006-01-02"

// BacktestConfig is the full structure of a backtest YAML file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type BacktestConfig struct {
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Broker   BrokerConfig   `yaml:"broker"`
	Engine   EngineConfig   `yaml:"engine"`
}

// DataConfig selects the quote store and narrows what it yields.
type DataConfig struct {
	Locator string   `yaml:"locator"` // sqlite://, postgres://, csv:// or a bare path
	Symbols []string `yaml:"symbols"` // subscribed underlyings
	Start   string   `yaml:"start"`   // inclusive, YYYY-MM-DD
	End     string   `yaml:"end"`     // inclusive, YYYY-MM-DD
}

// StrategyConfig names a registered strategy and its parameter grid. Each
// params entry is a scalar (one candidate) or a sequence (one candidate per
// element); entries keep their file order.
type StrategyConfig struct {
	Name   string    `yaml:"name"`
	Params yaml.Node `yaml:"params"`
}

// BrokerConfig holds the paper account settings.
type BrokerConfig struct {
	InitialCash           Money `yaml:"initial_cash"`
	CommissionPerContract Money `yaml:"commission_per_contract"`
	MarginRate            Money `yaml:"margin_rate"`
	Multiplier            int64 `yaml:"multiplier"`
}

// EngineConfig tunes the scenario runner.
type EngineConfig struct {
	Workers int    `yaml:"workers"`
	Trace   string `yaml:"trace"` // "none" or "events"
}

// Money is a decimal that decodes from a YAML number or string.
type Money struct{ decimal.Decimal }

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a decimal scalar", value.Line)
	}
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	m.Decimal = d
	return nil
}

// LoadBacktestConfig reads and strictly parses a backtest YAML file.
func LoadBacktestConfig(path string) (*BacktestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backtest config: %w", err)
	}
	return parseBacktestConfig(data)
}

func parseBacktestConfig(data []byte) (*BacktestConfig, error) {
	cfg := BacktestConfig{Engine: EngineConfig{Workers: 1, Trace: string(trace.TraceLevelEvents)}}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing backtest config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *BacktestConfig) Validate() error {
	if c.Data.Locator == "" {
		return fmt.Errorf("data.locator is required")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := c.DataOptions(); err != nil {
		return err
	}
	if kind := c.Strategy.Params.Kind; kind != 0 && kind != yaml.MappingNode {
		return fmt.Errorf("strategy.params must be a mapping (line %d)", c.Strategy.Params.Line)
	}
	if c.Broker.InitialCash.IsNegative() {
		return fmt.Errorf("broker.initial_cash must be >= 0, got %s", c.Broker.InitialCash)
	}
	if c.Broker.CommissionPerContract.IsNegative() {
		return fmt.Errorf("broker.commission_per_contract must be >= 0, got %s", c.Broker.CommissionPerContract)
	}
	if c.Broker.MarginRate.IsNegative() {
		return fmt.Errorf("broker.margin_rate must be >= 0, got %s", c.Broker.MarginRate)
	}
	if c.Broker.Multiplier < 0 {
		return fmt.Errorf("broker.multiplier must be >= 0, got %d", c.Broker.Multiplier)
	}
	if !trace.IsValidTraceLevel(c.Engine.Trace) {
		return fmt.Errorf("unknown engine.trace level %q", c.Engine.Trace)
	}
	return nil
}

// DataOptions converts the data section to datasource options.
func (c *BacktestConfig) DataOptions() (datasource.Options, error) {
	opts := datasource.Options{Symbols: c.Data.Symbols}
	var err error
	if c.Data.Start != "" {
		if opts.Start, err = time.Parse(dateLayout, c.Data.Start); err != nil {
			return opts, fmt.Errorf("data.start: %w", err)
		}
	}
	if c.Data.End != "" {
		if opts.End, err = time.Parse(dateLayout, c.Data.End); err != nil {
			return opts, fmt.Errorf("data.end: %w", err)
		}
	}
	if !opts.Start.IsZero() && !opts.End.IsZero() && opts.End.Before(opts.Start) {
		return opts, fmt.Errorf("data.end %s is before data.start %s", c.Data.End, c.Data.Start)
	}
	return opts, nil
}

// BrokerSettings converts the broker section to the broker's settings.
func (c *BacktestConfig) BrokerSettings() broker.Config {
	return broker.Config{
		InitialCash:           c.Broker.InitialCash.Decimal,
		CommissionPerContract: c.Broker.CommissionPerContract.Decimal,
		MarginRate:            c.Broker.MarginRate.Decimal,
		Multiplier:            c.Broker.Multiplier,
	}
}

// ParamGrid builds the strategy parameter grid in file order.
func (c *BacktestConfig) ParamGrid() (*sim.ParamGrid, error) {
	grid := sim.NewParamGrid()
	node := c.Strategy.Params
	if node.Kind == 0 {
		return grid, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind == yaml.SequenceNode {
			candidates := make(sim.Values, len(value.Content))
			for j, item := range value.Content {
				if err := item.Decode(&candidates[j]); err != nil {
					return nil, fmt.Errorf("strategy.params.%s[%d]: %w", key.Value, j, err)
				}
			}
			grid.Add(key.Value, candidates)
			continue
		}
		var v any
		if err := value.Decode(&v); err != nil {
			return nil, fmt.Errorf("strategy.params.%s: %w", key.Value, err)
		}
		grid.Add(key.Value, sim.ValuesOf(v))
	}
	return grid, nil
}
