package humanoid

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// keyboardNeighbors maps each key to its physical QWERTY neighbors, used for
// substitution and insertion typos.
var keyboardNeighbors = map[rune]string{
	'1': "2q`", '2': "13wq", '3': "24we", '4': "35er", '5': "46rt", '6': "57ty",
	'7': "68yu", '8': "79ui", '9': "80io", '0': "9-op",
	'q': "wa1s", 'w': "qase23", 'e': "wsdr34", 'r': "edft45", 't': "rfgy56",
	'y': "tghu67", 'u': "yhji78", 'i': "ujko89", 'o': "iklp90", 'p': "ol;0-",
	'a': "qwsz", 's': "awedxz", 'd': "serfcx", 'f': "drtgvc", 'g': "ftyhbv",
	'h': "gyujnb", 'j': "huikmn", 'k': "jiol,m", 'l': "kop;.",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk,",
}

// commonNgrams lists digrams and trigrams typed faster than average due to
// motor memory.
var commonNgrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true, "re": true,
	"es": true, "on": true, "st": true, "nt": true,
	"the": true, "and": true, "ing": true, "ion": true, "tio": true,
}

// Type simulates realistic human typing of text into the currently focused
// element. The caller is responsible for focusing the target first (typically
// via ClickElement).
func (h *Simulator) Type(ctx context.Context, text string) error {
	// Update fatigue based on the intensity (length).
	h.updateFatigue(float64(len(text)) * 0.05)

	// Cognitive planning pause before the first keystroke.
	if err := h.CognitivePause(ctx, 200, 80); err != nil {
		return err
	}

	// Runes, not bytes, so n-gram analysis survives non-ASCII input.
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		// Inter-key pause (flight time).
		if err := h.keyPause(ctx, 1.0, 1.0, runes, i); err != nil {
			return err
		}

		h.mu.Lock()
		cfg := h.dynamicConfig
		shouldTypo := h.rng.Float64() < cfg.TypoRate
		h.mu.Unlock()

		if shouldTypo {
			typoIntroduced, advanced, err := h.introduceTypo(ctx, cfg, runes, i)
			if err != nil {
				return fmt.Errorf("humanoid: typo simulation: %w", err)
			}
			if advanced {
				i++
			}
			if typoIntroduced {
				continue
			}
		}

		if err := h.sendKey(ctx, runes[i]); err != nil {
			return fmt.Errorf("humanoid: failed to send key %q: %w", runes[i], err)
		}
	}
	return nil
}

// TypeInto focuses the element with a human-like click and types the text.
func (h *Simulator) TypeInto(ctx context.Context, selector, text string) error {
	if err := h.ClickElement(ctx, selector, nil); err != nil {
		return fmt.Errorf("humanoid: failed to focus %q: %w", selector, err)
	}
	return h.Type(ctx, text)
}

// Press dispatches a single named key (e.g. "Enter", "Tab") with modifiers,
// holding it for a realistic duration.
func (h *Simulator) Press(ctx context.Context, key string, modifiers schemas.KeyModifier) error {
	if err := h.executor.DispatchKey(ctx, schemas.KeyEventData{Key: key, Modifiers: modifiers}); err != nil {
		return err
	}
	return h.executor.Sleep(ctx, h.keyHoldDuration())
}

// sendKey dispatches a single character with realistic hold time.
func (h *Simulator) sendKey(ctx context.Context, key rune) error {
	if err := h.executor.DispatchKey(ctx, schemas.KeyEventData{Key: string(key)}); err != nil {
		return err
	}
	// Dwell time after the key lands.
	return h.executor.Sleep(ctx, h.keyHoldDuration())
}

// sendControlKey dispatches control characters (like Backspace).
func (h *Simulator) sendControlKey(ctx context.Context, key string) error {
	if err := h.executor.DispatchKey(ctx, schemas.KeyEventData{Key: key}); err != nil {
		return err
	}
	return h.executor.Sleep(ctx, h.keyHoldDuration())
}

// keyHoldDuration calculates the duration a key is held down.
func (h *Simulator) keyHoldDuration() time.Duration {
	h.mu.Lock()
	mean := h.dynamicConfig.KeyHoldMean
	stdDev := h.dynamicConfig.KeyHoldStdDev
	randNorm := h.rng.NormFloat64()
	h.mu.Unlock()

	if mean <= 0 {
		return 0
	}
	delay := randNorm*stdDev + mean
	if delay < 20.0 {
		delay = 20.0
	}
	return time.Duration(delay) * time.Millisecond
}

// keyPause introduces a human-like inter-key delay (flight time), shortened
// for common n-grams and lengthened by fatigue.
func (h *Simulator) keyPause(ctx context.Context, meanScale, stdDevScale float64, runes []rune, index int) error {
	h.mu.Lock()
	cfg := h.dynamicConfig
	randNorm := h.rng.NormFloat64()
	fatigueFactor := 1.0 + h.fatigueLevel*cfg.KeyPauseFatigueFactor
	h.mu.Unlock()

	mean := cfg.KeyPauseMean * meanScale
	stdDev := cfg.KeyPauseStdDev * stdDevScale
	minDelay := cfg.KeyPauseMin * meanScale
	ngramFactor := 1.0

	// Rhythmic typing: common n-grams flow faster.
	if runes != nil && index > 0 && index < len(runes) {
		if index >= 2 {
			trigraph := strings.ToLower(string(runes[index-2 : index+1]))
			if commonNgrams[trigraph] {
				ngramFactor = cfg.KeyPauseNgramFactor3
			}
		}
		if ngramFactor == 1.0 && index >= 1 {
			digraph := strings.ToLower(string(runes[index-1 : index+1]))
			if commonNgrams[digraph] {
				ngramFactor = cfg.KeyPauseNgramFactor2
			}
		}
	}

	mean *= ngramFactor * fatigueFactor
	minDelay *= ngramFactor

	delay := randNorm*stdDev + mean
	finalDelay := math.Max(minDelay, delay)
	duration := time.Duration(finalDelay) * time.Millisecond
	if duration <= 0 {
		return nil
	}

	h.recoverFatigue(duration)

	return h.executor.Sleep(ctx, duration)
}

// introduceTypo attempts to simulate a realistic typo based on the configured
// probability mix.
func (h *Simulator) introduceTypo(ctx context.Context, cfg Config, runes []rune, i int) (introduced bool, advanced bool, err error) {
	char := runes[i]
	h.mu.Lock()
	p := h.rng.Float64()
	h.mu.Unlock()

	// 1. Neighbor substitution.
	if p < cfg.TypoNeighborRate {
		introduced, err = h.introduceNeighborTypo(ctx, char)
		return introduced, false, err
	}
	p -= cfg.TypoNeighborRate

	// 2. Transposition.
	if p < cfg.TypoTransposeRate {
		var nextChar rune
		if i+1 < len(runes) {
			nextChar = runes[i+1]
		}
		corrected, didAdvance, err := h.introduceTransposition(ctx, char, nextChar)
		return corrected || didAdvance, didAdvance, err
	}
	p -= cfg.TypoTransposeRate

	// 3. Omission.
	if p < cfg.TypoOmissionRate {
		introduced, err = h.introduceOmission(ctx, char)
		return introduced, false, err
	}

	// 4. Insertion.
	return h.introduceInsertion(ctx, char)
}

func (h *Simulator) introduceNeighborTypo(ctx context.Context, char rune) (bool, error) {
	lowerChar := unicode.ToLower(char)
	neighbors, ok := keyboardNeighbors[lowerChar]
	if !ok || len(neighbors) == 0 {
		return false, nil
	}

	h.mu.Lock()
	typoChar := rune(neighbors[h.rng.Intn(len(neighbors))])
	// Preserve case probabilistically: shift is usually still held.
	if unicode.IsUpper(char) && h.rng.Float64() < 0.8 {
		typoChar = unicode.ToUpper(typoChar)
	}
	h.mu.Unlock()

	if err := h.sendKey(ctx, typoChar); err != nil {
		return true, err
	}
	// Recognition pause.
	if err := h.keyPause(ctx, 1.8, 0.6, nil, 0); err != nil {
		return true, err
	}
	if err := h.sendControlKey(ctx, KeyBackspace); err != nil {
		return true, err
	}
	// Repositioning pause.
	if err := h.keyPause(ctx, 1.2, 0.5, nil, 0); err != nil {
		return true, err
	}
	if err := h.sendKey(ctx, char); err != nil {
		return true, err
	}
	return true, nil
}

func (h *Simulator) introduceTransposition(ctx context.Context, char, nextChar rune) (corrected, advanced bool, err error) {
	if nextChar == 0 || unicode.IsSpace(nextChar) || unicode.IsSpace(char) {
		return false, false, nil
	}
	// Keys land in the wrong order.
	if err := h.sendKey(ctx, nextChar); err != nil {
		return false, true, err
	}
	if err := h.keyPause(ctx, 0.8, 0.3, nil, 0); err != nil {
		return false, true, err
	}
	if err := h.sendKey(ctx, char); err != nil {
		return false, true, err
	}
	advanced = true

	h.mu.Lock()
	shouldCorrect := h.rng.Float64() < h.dynamicConfig.TypoCorrectionProbability
	h.mu.Unlock()

	if !shouldCorrect {
		return false, advanced, nil
	}

	// Recognition pause, two backspaces, retype in order.
	if err := h.keyPause(ctx, 1.5, 0.7, nil, 0); err != nil {
		return false, advanced, err
	}
	if err := h.sendControlKey(ctx, KeyBackspace); err != nil {
		return false, advanced, err
	}
	if err := h.keyPause(ctx, 1.1, 0.4, nil, 0); err != nil {
		return false, advanced, err
	}
	if err := h.sendControlKey(ctx, KeyBackspace); err != nil {
		return false, advanced, err
	}
	if err := h.keyPause(ctx, 1.2, 0.5, nil, 0); err != nil {
		return false, advanced, err
	}
	if err := h.sendKey(ctx, char); err != nil {
		return false, advanced, err
	}
	if err := h.keyPause(ctx, 1.0, 0.4, nil, 0); err != nil {
		return false, advanced, err
	}
	if err := h.sendKey(ctx, nextChar); err != nil {
		return false, advanced, err
	}
	return true, advanced, nil
}

func (h *Simulator) introduceOmission(ctx context.Context, char rune) (bool, error) {
	if unicode.IsSpace(char) {
		return false, nil
	}
	// The key is skipped entirely.

	h.mu.Lock()
	shouldNotice := h.rng.Float64() < h.dynamicConfig.TypoOmissionNoticeProbability
	h.mu.Unlock()

	if shouldNotice {
		// Recognition pause, then type the missing character.
		if err := h.keyPause(ctx, 2.0, 0.8, nil, 0); err != nil {
			return true, err
		}
		if err := h.sendKey(ctx, char); err != nil {
			return true, err
		}
	}
	// Unnoticed omissions remain uncorrected.
	return true, nil
}

func (h *Simulator) introduceInsertion(ctx context.Context, char rune) (bool, bool, error) {
	lowerChar := unicode.ToLower(char)
	neighbors, ok := keyboardNeighbors[lowerChar]
	if !ok || len(neighbors) == 0 {
		return false, false, nil
	}

	h.mu.Lock()
	insertionChar := rune(neighbors[h.rng.Intn(len(neighbors))])
	shouldNotice := h.rng.Float64() < h.dynamicConfig.TypoInsertionNoticeProbability
	h.mu.Unlock()

	if err := h.sendKey(ctx, insertionChar); err != nil {
		return true, false, err
	}

	if shouldNotice {
		if err := h.keyPause(ctx, 1.5, 0.6, nil, 0); err != nil {
			return true, false, err
		}
		if err := h.sendControlKey(ctx, KeyBackspace); err != nil {
			return true, false, err
		}
	}

	if err := h.keyPause(ctx, 1.1, 0.4, nil, 0); err != nil {
		return true, false, err
	}
	if err := h.sendKey(ctx, char); err != nil {
		return true, false, err
	}
	return true, false, nil
}
