package walletDetector

import (
	"strings"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// RuleMode says what a fired rule does to the result
type RuleMode int

const (
	// ModeAssert marks the kind detected and raises confidence to the weight
	ModeAssert RuleMode = iota
	// ModeRaise raises confidence to at most the weight without marking detection
	ModeRaise
)

// Rule is one weighted piece of evidence. Eval returns the observed value,
// recorded in the result's evidence, and whether the rule fired.
type Rule struct {
	Signal string
	Weight int
	Mode   RuleMode
	// Corroborating rules count toward the majority-of-evidence rule
	Corroborating bool
	Eval          func(p *probe) (observed any, fired bool)
}

const (
	MaxConfidence = 100

	// MajorityFloor is the minimum confidence of a kind detected by majority of evidence
	MajorityFloor = 80
	// HighConfidenceThreshold: confidence strictly above it counts as one indicator
	HighConfidenceThreshold = 80
	// MajorityIndicators is how many indicators mark a kind detected
	MajorityIndicators = 2

	// TokenPocketExtensionID is the Chrome web store id of the TokenPocket extension
	TokenPocketExtensionID = "mfgccjchihhkkindpeiilhmdfjcoondh"
)

var (
	tokenPocketUserAgents = []string{"tokenpocket", "tpwallet", "token pocket"}
	tokenPocketGlobals    = []string{"TokenPocketProvider", "tp", "tokenpocket", "TPProvider"}
	tokenPocketPageWords  = []string{"tokenpocket", "tpwallet"}
	probedMethods         = []string{provider.MethodRequestAccounts, provider.MethodPersonalSign, provider.MethodSendTransaction}
)

func flagRule(signal string, flag string, weight int) Rule {
	return Rule{
		Signal:        signal,
		Weight:        weight,
		Mode:          ModeAssert,
		Corroborating: true,
		Eval: func(p *probe) (any, bool) {
			v, declared := p.flag(flag)
			return v, declared && v
		},
	}
}

func providersListRule(flags ...string) Rule {
	return Rule{
		Signal: "providersList",
		Weight: 100,
		Mode:   ModeAssert,
		Eval: func(p *probe) (any, bool) {
			found := p.subProviderWithFlag(flags...)
			return found, found
		},
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

var metaMaskRules = []Rule{
	flagRule(provider.FlagIsMetaMask, provider.FlagIsMetaMask, 95),
	{
		Signal: "isMetaMaskDeclared",
		Weight: 80,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			_, declared := p.flag(provider.FlagIsMetaMask)
			return declared, declared
		},
	},
	providersListRule(provider.FlagIsMetaMask),
}

var tokenPocketRules = []Rule{
	flagRule(provider.FlagIsTokenPocket, provider.FlagIsTokenPocket, 90),
	flagRule(provider.FlagIsTp, provider.FlagIsTp, 90),
	providersListRule(provider.FlagIsTokenPocket, provider.FlagIsTp),
	{
		Signal: "extensionId",
		Weight: 95,
		Mode:   ModeAssert,
		Eval: func(p *probe) (any, bool) {
			id := p.extensionID()
			return id, id == TokenPocketExtensionID
		},
	},
	{
		Signal: "userAgent",
		Weight: 85,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			ua := p.userAgent()
			return ua, containsAny(ua, tokenPocketUserAgents)
		},
	},
	{
		Signal: "globals",
		Weight: 75,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			var present []string
			for _, g := range tokenPocketGlobals {
				if p.hasGlobal(g) {
					present = append(present, g)
				}
			}
			return present, len(present) > 0
		},
	},
	{
		Signal: "chainId",
		Weight: 70,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			id, isString := p.chainID()
			return id, isString
		},
	},
	{
		Signal: "supportedMethods",
		Weight: 65,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			n := p.supportedMethods(probedMethods...)
			return n, n >= 2
		},
	},
	{
		Signal: "pageContent",
		Weight: 60,
		Mode:   ModeRaise,
		Eval: func(p *probe) (any, bool) {
			found := containsAny(p.pageContent(), tokenPocketPageWords)
			return found, found
		},
	},
}

// DefaultRules returns the scoring table for each supported wallet kind
func DefaultRules() map[types.WalletKind][]Rule {
	return map[types.WalletKind][]Rule{
		types.WalletKindMetaMask:    metaMaskRules,
		types.WalletKindTokenPocket: tokenPocketRules,
	}
}

// kindFlags are the flags by which a provider entry declares itself as a kind
var kindFlags = map[types.WalletKind][]string{
	types.WalletKindMetaMask:    {provider.FlagIsMetaMask},
	types.WalletKindTokenPocket: {provider.FlagIsTokenPocket, provider.FlagIsTp},
}
