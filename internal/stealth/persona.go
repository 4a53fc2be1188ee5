// File: internal/stealth/persona.go
package stealth

import (
	"context"
	_ "embed" // Required for the go:embed directive
	"fmt"
	"regexp"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsScript string

// GeolocationProperties defines the spoofed physical location.
type GeolocationProperties struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Persona wraps a Fingerprint with session-level environment settings and
// knows how to apply itself to a CDP session.
type Persona struct {
	Fingerprint *Fingerprint           `json:"fingerprint"`
	Locale      string                 `json:"locale,omitempty"`
	Geolocation *GeolocationProperties `json:"geolocation,omitempty"`
	// UserAgentOverride replaces the fingerprint UA, for callers that pin an
	// exact string via configuration.
	UserAgentOverride string `json:"userAgentOverride,omitempty"`
}

// NewPersona builds a persona from a fingerprint with matching defaults.
func NewPersona(fp *Fingerprint) *Persona {
	return &Persona{
		Fingerprint: fp,
		Locale:      fp.Locale(),
	}
}

// UserAgent resolves the effective user agent string.
func (p *Persona) UserAgent() string {
	if p.UserAgentOverride != "" {
		return p.UserAgentOverride
	}
	return p.Fingerprint.UserAgent
}

// Apply orchestrates the stealth actions using chromedp.Tasks for sequential
// execution. The evasion script is registered via AddScriptToEvaluateOnNewDocument
// so it runs before any document script on every navigation.
func (p *Persona) Apply(logger *zap.Logger) chromedp.Tasks {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		p.setExtraHTTPHeaders(l),
		p.setUserAgentAndClientHints(l),
		p.setDeviceMetrics(l),
		p.setEnvironmentOverrides(l),
		p.injectEvasionScript(l),
		page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive),
		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Stealth persona applied",
				zap.String("profile", string(p.Fingerprint.Profile)),
				zap.String("userAgent", p.UserAgent()),
			)
			return nil
		}),
	}
}

// BuildScript assembles the script registered on new documents: a prelude
// binding the fingerprint, then the static evasion body. Exposed so the
// injection can be validated without a live browser.
func (p *Persona) BuildScript() (string, error) {
	fpJSON, err := json.Marshal(p.Fingerprint)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to marshal fingerprint: %w", err)
	}
	return fmt.Sprintf("const __KB_FINGERPRINT = %s;\n%s", string(fpJSON), evasionsScript), nil
}

func (p *Persona) injectEvasionScript(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script, err := p.BuildScript()
		if err != nil {
			return err
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script with CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to add script on new document: %w", err)
		}
		return nil
	})
}

func (p *Persona) setUserAgentAndClientHints(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		fp := p.Fingerprint
		override := emulation.SetUserAgentOverride(p.UserAgent()).
			WithPlatform(fp.Platform).
			WithAcceptLanguage(strings.Join(fp.Languages, ","))

		// Client hints only exist on Chromium engines; sending metadata for a
		// Firefox persona would itself be a tell.
		if fp.Profile.IsChromium() {
			override = override.WithUserAgentMetadata(clientHintsFor(fp))
		}

		if err := override.Do(ctx); err != nil {
			logger.Error("Failed to set UserAgent override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set user agent override: %w", err)
		}
		return nil
	})
}

func (p *Persona) setExtraHTTPHeaders(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		langs := p.Fingerprint.Languages
		if len(langs) == 0 {
			return nil
		}
		formatted := langs[0]
		for i := 1; i < len(langs); i++ {
			q := 1.0 - float64(i)*0.1
			if q < 0.7 {
				q = 0.7
			}
			formatted += fmt.Sprintf(",%s;q=%.1f", langs[i], q)
		}
		headers := network.Headers{"Accept-Language": formatted}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			logger.Error("Failed to set extra HTTP headers via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
		}
		return nil
	})
}

func (p *Persona) setDeviceMetrics(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		fp := p.Fingerprint
		if fp.ScreenWidth <= 0 || fp.ScreenHeight <= 0 {
			return nil
		}
		orientation := emulation.OrientationTypeLandscapePrimary
		if fp.ScreenHeight > fp.ScreenWidth {
			orientation = emulation.OrientationTypePortraitPrimary
		}
		err := emulation.SetDeviceMetricsOverride(fp.ScreenWidth, fp.ScreenHeight, 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{
				Type:  orientation,
				Angle: 0,
			}).Do(ctx)
		if err != nil {
			logger.Error("Failed to set device metrics override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set device metrics: %w", err)
		}
		return nil
	})
}

func (p *Persona) setEnvironmentOverrides(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		fp := p.Fingerprint
		if fp.Timezone != "" {
			if err := emulation.SetTimezoneOverride(fp.Timezone).Do(ctx); err != nil {
				logger.Error("Failed to set timezone override via CDP", zap.Error(err))
				return fmt.Errorf("stealth: failed to set timezone: %w", err)
			}
		}

		locale := p.Locale
		if locale == "" {
			locale = fp.Locale()
		}
		if locale != "" {
			normalized := strings.ReplaceAll(locale, "_", "-")
			if err := emulation.SetLocaleOverride().WithLocale(normalized).Do(ctx); err != nil {
				logger.Error("Failed to set locale override via CDP", zap.Error(err))
				return fmt.Errorf("stealth: failed to set locale: %w", err)
			}
		}

		if geo := p.Geolocation; geo != nil {
			if err := emulation.SetGeolocationOverride().
				WithLatitude(geo.Latitude).
				WithLongitude(geo.Longitude).
				WithAccuracy(geo.Accuracy).
				Do(ctx); err != nil {
				logger.Error("Failed to set geolocation override via CDP", zap.Error(err))
				return fmt.Errorf("stealth: failed to set geolocation: %w", err)
			}
		}
		return nil
	})
}

var chromeVersionRe = regexp.MustCompile(`Chrome/(\d+)`)

// clientHintsFor derives Sec-CH-UA metadata consistent with the fingerprint.
func clientHintsFor(fp *Fingerprint) *emulation.UserAgentMetadata {
	major := "126"
	if m := chromeVersionRe.FindStringSubmatch(fp.UserAgent); len(m) == 2 {
		major = m[1]
	}

	brands := []*emulation.UserAgentBrandVersion{
		{Brand: "Not/A)Brand", Version: "8"},
		{Brand: "Chromium", Version: major},
	}
	switch fp.Profile {
	case WindowsEdge:
		brands = append(brands, &emulation.UserAgentBrandVersion{Brand: "Microsoft Edge", Version: major})
	default:
		brands = append(brands, &emulation.UserAgentBrandVersion{Brand: "Google Chrome", Version: major})
	}

	var platform, platformVersion string
	switch fp.Profile.OS() {
	case "windows":
		platform, platformVersion = "Windows", "10.0.0"
	case "mac":
		platform, platformVersion = "macOS", "14.5.0"
	default:
		platform, platformVersion = "Linux", "6.8.0"
	}

	return &emulation.UserAgentMetadata{
		Brands:          brands,
		Mobile:          false,
		Platform:        platform,
		PlatformVersion: platformVersion,
		Architecture:    "x86",
		Bitness:         "64",
	}
}
