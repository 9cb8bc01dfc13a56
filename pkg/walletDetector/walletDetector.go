package walletDetector

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// Detector scores which wallet implementation sits behind the injected provider
type Detector struct {
	env    Environment
	rules  map[types.WalletKind][]Rule
	order  []types.WalletKind
	logger *zap.Logger
}

// NewDetector creates a detector over env using the default scoring table
func NewDetector(env Environment, logger *zap.Logger) *Detector {
	return NewDetectorWithRules(env, DefaultRules(), types.SupportedWalletKinds, logger)
}

// NewDetectorWithRules creates a detector with a custom scoring table. order
// lists the kinds to score; on equal confidence earlier kinds rank first.
func NewDetectorWithRules(env Environment, rules map[types.WalletKind][]Rule, order []types.WalletKind, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		env:    env,
		rules:  rules,
		order:  order,
		logger: logger,
	}
}

// Detect scores a single wallet kind. It never panics, whatever the provider does.
func (d *Detector) Detect(kind types.WalletKind) types.DetectionResult {
	result := types.DetectionResult{
		WalletKind: types.WalletKindUnknown,
		Evidence:   map[string]any{},
	}

	p := &probe{env: d.env, logger: d.logger}
	if !p.providerPresent() {
		return result
	}
	result.Evidence["hasRequestMethod"] = true

	rules, ok := d.rules[kind]
	if !ok {
		return result
	}

	indicators := 0
	for _, rule := range rules {
		observed, fired := evalRule(p, rule)
		result.Evidence[rule.Signal] = observed
		if !fired {
			continue
		}
		if rule.Weight > result.Confidence {
			result.Confidence = rule.Weight
		}
		if rule.Mode == ModeAssert {
			result.Detected = true
		}
		if rule.Corroborating {
			indicators++
		}
	}

	if result.Confidence > HighConfidenceThreshold {
		indicators++
	}
	if indicators >= MajorityIndicators {
		result.Detected = true
		if result.Confidence < MajorityFloor {
			result.Confidence = MajorityFloor
		}
	}
	if result.Confidence > MaxConfidence {
		result.Confidence = MaxConfidence
	}
	if result.Detected {
		result.WalletKind = kind
	}

	d.logger.Sugar().Debugw("Scored wallet kind",
		"wallet_kind", kind,
		"detected", result.Detected,
		"confidence", result.Confidence,
	)
	return result
}

func evalRule(p *probe, rule Rule) (observed any, fired bool) {
	ok := p.safely(rule.Signal, func() {
		observed, fired = rule.Eval(p)
	})
	if !ok {
		return nil, false
	}
	return observed, fired
}

// DetectAll returns every detected kind, highest confidence first. Ties keep
// the detector's kind order, so MetaMask wins over TokenPocket.
func (d *Detector) DetectAll() []types.DetectionResult {
	results := make([]types.DetectionResult, 0, len(d.order))
	for _, kind := range d.order {
		r := d.Detect(kind)
		if r.Detected {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// DetectPrimary returns the best ranked detected kind
func (d *Detector) DetectPrimary() (types.DetectionResult, bool) {
	all := d.DetectAll()
	if len(all) == 0 {
		return types.DetectionResult{}, false
	}
	return all[0], true
}

// IsWalletInstalled reports whether kind is among the detected wallets
func (d *Detector) IsWalletInstalled(kind types.WalletKind) bool {
	for _, r := range d.DetectAll() {
		if r.WalletKind == kind && r.Detected {
			return true
		}
	}
	return false
}

// InstalledWallets reports every supported kind with its confidence
func (d *Detector) InstalledWallets() []types.InstalledWallet {
	out := make([]types.InstalledWallet, 0, len(d.order))
	for _, kind := range d.order {
		r := d.Detect(kind)
		out = append(out, types.InstalledWallet{
			WalletKind:  kind,
			IsInstalled: r.Detected,
			Confidence:  r.Confidence,
		})
	}
	return out
}

// ProviderForKind picks the provider entry that declares kind: the injected
// provider itself, or an entry of its providers list. It returns an error when
// no entry declares the kind.
func ProviderForKind(root provider.Provider, kind types.WalletKind, logger *zap.Logger) (provider.Provider, error) {
	if root == nil {
		return nil, fmt.Errorf("no provider injected")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	flags, ok := kindFlags[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported wallet kind: %s", kind)
	}

	p := &probe{env: Environment{Provider: root}, logger: logger}
	for _, f := range flags {
		if v, declared := p.flagOn(root, f); declared && v {
			return root, nil
		}
	}
	for _, entry := range p.subProviders() {
		if entry == nil {
			continue
		}
		for _, f := range flags {
			if v, declared := p.flagOn(entry, f); declared && v {
				return entry, nil
			}
		}
	}
	return nil, fmt.Errorf("injected provider is not %s", kind)
}
