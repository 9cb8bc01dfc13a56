package walletDetector

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/provider"
)

// ExtensionRuntime exposes the installed extension's runtime identifier
type ExtensionRuntime interface {
	ExtensionID() string
}

// GlobalScope reports whether a named global symbol is defined
type GlobalScope interface {
	Has(name string) bool
}

// Document exposes the page markup
type Document interface {
	Content() string
}

// Environment is what the detector inspects. Provider is nil when no wallet
// object was injected. Every other field is optional.
type Environment struct {
	Provider  provider.Provider
	UserAgent string
	Runtime   ExtensionRuntime
	Globals   GlobalScope
	Document  Document
}

// probe wraps an Environment with panic-safe accessors. A wallet object is
// untrusted code; any accessor that panics is reported as "signal absent".
type probe struct {
	env    Environment
	logger *zap.Logger
}

func (p *probe) safely(signal string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Sugar().Debugw("Detection probe failed, treating signal as absent",
				"signal", signal,
				"panic", fmt.Sprint(r),
			)
			ok = false
		}
	}()
	fn()
	return true
}

func (p *probe) providerPresent() bool {
	return p.env.Provider != nil
}

func (p *probe) flagOn(target provider.Provider, name string) (value bool, declared bool) {
	fr, isReader := target.(provider.FlagReader)
	if !isReader {
		return false, false
	}
	p.safely(name, func() {
		value, declared = fr.Flag(name)
	})
	return value, declared
}

func (p *probe) flag(name string) (bool, bool) {
	return p.flagOn(p.env.Provider, name)
}

func (p *probe) subProviders() []provider.Provider {
	mp, ok := p.env.Provider.(provider.MultiProvider)
	if !ok {
		return nil
	}
	var list []provider.Provider
	p.safely("providers", func() {
		list = mp.Providers()
	})
	return list
}

// subProviderWithFlag returns whether any entry of the providers list sets one of names to true
func (p *probe) subProviderWithFlag(names ...string) bool {
	for _, entry := range p.subProviders() {
		if entry == nil {
			continue
		}
		for _, name := range names {
			if v, declared := p.flagOn(entry, name); declared && v {
				return true
			}
		}
	}
	return false
}

func (p *probe) extensionID() string {
	if p.env.Runtime == nil {
		return ""
	}
	var id string
	p.safely("extensionId", func() {
		id = p.env.Runtime.ExtensionID()
	})
	return id
}

func (p *probe) userAgent() string {
	return strings.ToLower(p.env.UserAgent)
}

func (p *probe) hasGlobal(name string) bool {
	if p.env.Globals == nil {
		return false
	}
	var has bool
	p.safely("globals", func() {
		has = p.env.Globals.Has(name)
	})
	return has
}

func (p *probe) pageContent() string {
	if p.env.Document == nil {
		return ""
	}
	var content string
	p.safely("pageContent", func() {
		content = p.env.Document.Content()
	})
	return strings.ToLower(content)
}

func (p *probe) chainID() (string, bool) {
	cr, ok := p.env.Provider.(provider.ChainReader)
	if !ok {
		return "", false
	}
	var (
		id       string
		isString bool
	)
	p.safely("chainId", func() {
		id, isString = cr.ChainID()
	})
	return id, isString
}

// supportedMethods counts how many of methods the provider can serve. Without a
// MethodProber the request entry point is taken to serve all of them.
func (p *probe) supportedMethods(methods ...string) int {
	mp, ok := p.env.Provider.(provider.MethodProber)
	if !ok {
		return len(methods)
	}
	count := 0
	for _, m := range methods {
		var supported bool
		p.safely("supportedMethods", func() {
			supported = mp.SupportsMethod(m)
		})
		if supported {
			count++
		}
	}
	return count
}
