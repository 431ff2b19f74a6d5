package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OCC option symbols: root (padded to 6), expiry YYMMDD, C or P, and the
// strike times 1000 as 8 digits, e.g. "AAPL  250117C00150000". The compact
// form without padding is accepted on parse.
const (
	occRootWidth  = 6
	occSuffixLen  = 15
	occDateLayout = "060102"
)

// OptionContract is the decoded form of an OCC option symbol.
type OptionContract struct {
	Root       string
	Expiration time.Time
	Type       OptionType
	Strike     float64
}

// FormatOCCSymbol builds the padded OCC symbol for a contract.
func FormatOCCSymbol(root string, expiration time.Time, typ OptionType, strike float64) (string, error) {
	root = strings.ToUpper(strings.TrimSpace(root))
	if root == "" || len(root) > occRootWidth {
		return "", fmt.Errorf("occ: invalid root %q", root)
	}

	var cp byte
	switch typ {
	case OptionTypeCall:
		cp = 'C'
	case OptionTypePut:
		cp = 'P'
	default:
		return "", fmt.Errorf("occ: invalid option type %q", typ)
	}

	milli := int64(math.Round(strike * 1000))
	if milli <= 0 || milli > 99_999_999 {
		return "", fmt.Errorf("occ: strike %v out of range", strike)
	}

	return fmt.Sprintf("%-6s%s%c%08d", root, expiration.UTC().Format(occDateLayout), cp, milli), nil
}

// ParseOCCSymbol decodes a padded or compact OCC option symbol.
func ParseOCCSymbol(sym string) (OptionContract, error) {
	sym = strings.TrimSpace(sym)
	if len(sym) <= occSuffixLen {
		return OptionContract{}, fmt.Errorf("occ: symbol %q too short", sym)
	}

	split := len(sym) - occSuffixLen
	root := strings.TrimSpace(sym[:split])
	suffix := sym[split:]
	if root == "" || len(root) > occRootWidth {
		return OptionContract{}, fmt.Errorf("occ: invalid root in %q", sym)
	}

	exp, err := time.Parse(occDateLayout, suffix[:6])
	if err != nil {
		return OptionContract{}, fmt.Errorf("occ: expiration in %q: %w", sym, err)
	}

	var typ OptionType
	switch suffix[6] {
	case 'C':
		typ = OptionTypeCall
	case 'P':
		typ = OptionTypePut
	default:
		return OptionContract{}, fmt.Errorf("occ: option type %q in %q", suffix[6], sym)
	}

	milli, err := strconv.ParseUint(suffix[7:], 10, 64)
	if err != nil {
		return OptionContract{}, fmt.Errorf("occ: strike in %q: %w", sym, err)
	}

	return OptionContract{
		Root:       root,
		Expiration: exp,
		Type:       typ,
		Strike:     float64(milli) / 1000,
	}, nil
}

// IsOptionSymbol reports whether sym parses as an OCC option symbol.
func IsOptionSymbol(sym string) bool {
	_, err := ParseOCCSymbol(sym)
	return err == nil
}
