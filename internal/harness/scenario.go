package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tapgame/internal/ir"
)

// Reserved address names usable in args and assertions.
const (
	RefContract = "contract"
	RefAsset    = "asset"
)

// Default contract names, matching the CLI configuration defaults.
const (
	DefaultContract = "tap-to-earn"
	DefaultAsset    = "tap-token"
)

// Scenario defines a conformance test scenario: a timed sequence of calls
// with expected outcomes and assertions over the final ledger state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FlowToken is the prefix of the deterministic flow tokens.
	// Defaults to the scenario name.
	FlowToken string `yaml:"flow_token,omitempty"`

	// Contract and Asset name the faucet and its asset. Their addresses are
	// derived from the names.
	Contract string `yaml:"contract,omitempty"`
	Asset    string `yaml:"asset,omitempty"`

	// Signers lists the accounts the scenario signs as. Keys are derived
	// from the names.
	Signers []string `yaml:"signers"`

	// Setup contains calls that establish initial state (funding).
	// Every setup call must succeed.
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Flow contains the calls under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// SetupStep is a call that must succeed.
type SetupStep struct {
	At   uint64         `yaml:"at,omitempty"`
	Call string         `yaml:"call"`
	As   string         `yaml:"as,omitempty"`
	Args map[string]any `yaml:"args"`
}

// FlowStep is a call at a given ledger time, optionally signed.
type FlowStep struct {
	// At is the ledger time the call observes.
	At uint64 `yaml:"at"`

	// Call is the contract function: initialize, tap or mint.
	Call string `yaml:"call"`

	// As names the signer that authorizes the call. Empty: unsigned.
	As string `yaml:"as,omitempty"`

	// Args contains the call arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected receipt. Nil means Success.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected receipt of a flow step.
type ExpectClause struct {
	// Outcome is Success or a contract error code (e.g. "CooldownActive").
	Outcome string `yaml:"outcome"`

	// Result is a subset match on the receipt result, addresses written
	// as @names.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// User is the signer checked by last_tap and no_last_tap.
	User string `yaml:"user,omitempty"`

	// At is the expected last claim time (last_tap).
	At *uint64 `yaml:"at,omitempty"`

	// Holder is the account whose balance is checked (balance).
	Holder string `yaml:"holder,omitempty"`

	// Amount is the expected balance as a base-10 string (balance).
	Amount string `yaml:"amount,omitempty"`

	// Outcome and Call select receipts (outcome_count). Call is optional.
	Outcome string `yaml:"outcome,omitempty"`
	Call    string `yaml:"call,omitempty"`

	// Count is the expected number of receipts (outcome_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLastTap      = "last_tap"
	AssertNoLastTap    = "no_last_tap"
	AssertBalance      = "balance"
	AssertOutcomeCount = "outcome_count"
	AssertReplay       = "replay"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files under dir whose base name
// (without extension) matches the glob filter. An empty filter matches all.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// contractName returns the faucet name, defaulted.
func (s *Scenario) contractName() string {
	if s.Contract == "" {
		return DefaultContract
	}
	return s.Contract
}

// assetName returns the asset name, defaulted.
func (s *Scenario) assetName() string {
	if s.Asset == "" {
		return DefaultAsset
	}
	return s.Asset
}

// flowPrefix returns the flow token prefix, defaulted.
func (s *Scenario) flowPrefix() string {
	if s.FlowToken == "" {
		return s.Name
	}
	return s.FlowToken
}

// refName strips the optional @ of an address reference.
func refName(s string) string {
	return strings.TrimPrefix(s, "@")
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	signers := make(map[string]bool, len(s.Signers))
	for i, name := range s.Signers {
		switch {
		case name == "":
			return fmt.Errorf("signers[%d]: name is required", i)
		case name == RefContract || name == RefAsset:
			return fmt.Errorf("signers[%d]: %q is reserved", i, name)
		case strings.HasPrefix(name, "@"):
			return fmt.Errorf("signers[%d]: write %q without @", i, name)
		case signers[name]:
			return fmt.Errorf("signers[%d]: duplicate signer %q", i, name)
		}
		signers[name] = true
	}

	for i, step := range s.Setup {
		if err := validateCall(fmt.Sprintf("setup[%d]", i), step.Call, step.As, step.Args, signers); err != nil {
			return err
		}
	}

	for i, step := range s.Flow {
		where := fmt.Sprintf("flow[%d]", i)
		if err := validateCall(where, step.Call, step.As, step.Args, signers); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("%s.expect: outcome is required", where)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, signers); err != nil {
			return err
		}
	}

	return nil
}

func validateCall(where, call, as string, args map[string]any, signers map[string]bool) error {
	switch call {
	case "":
		return fmt.Errorf("%s: call is required", where)
	case ir.FuncInitialize, ir.FuncTap, ir.FuncMint:
	default:
		return fmt.Errorf("%s: unknown call %q", where, call)
	}
	if args == nil {
		return fmt.Errorf("%s: args is required (use empty map if no args)", where)
	}
	if as != "" && !signers[as] {
		return fmt.Errorf("%s: unknown signer %q", where, as)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, signers map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLastTap, AssertNoLastTap:
		if a.User == "" {
			return fmt.Errorf("assertions[%d]: user is required for %s", index, a.Type)
		}
		if !signers[refName(a.User)] {
			return fmt.Errorf("assertions[%d]: unknown signer %q", index, a.User)
		}
		if a.Type == AssertLastTap && a.At == nil {
			return fmt.Errorf("assertions[%d]: at is required for last_tap", index)
		}
	case AssertBalance:
		if a.Holder == "" {
			return fmt.Errorf("assertions[%d]: holder is required for balance", index)
		}
		holder := refName(a.Holder)
		if !signers[holder] && holder != RefContract && holder != RefAsset {
			return fmt.Errorf("assertions[%d]: unknown holder %q", index, a.Holder)
		}
		if a.Amount == "" {
			return fmt.Errorf("assertions[%d]: amount is required for balance", index)
		}
		if _, err := ir.ParseU128(a.Amount); err != nil {
			return fmt.Errorf("assertions[%d]: amount: %w", index, err)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
