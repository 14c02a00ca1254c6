package venue

// Fee tiers for V3-style pools (in hundredths of a bip)
const (
	FeeTier001 = 100   // 0.01%
	FeeTier005 = 500   // 0.05%
	FeeTier030 = 3000  // 0.30%
	FeeTier100 = 10000 // 1.00%
)

// TokenClass buckets tokens by expected pool liquidity distribution.
type TokenClass string

const (
	ClassStable TokenClass = "stable"
	ClassMajor  TokenClass = "major"
	ClassExotic TokenClass = "exotic"
)

// stableSymbols and majorSymbols drive token classification. Symbol
// membership is a rough proxy for where liquidity actually sits; it may
// mispick the tier for some pairs, which costs execution quality but never
// correctness.
var (
	stableSymbols = map[string]struct{}{
		"USDC": {}, "USDT": {}, "DAI": {}, "BUSD": {}, "FRAX": {},
	}
	majorSymbols = map[string]struct{}{
		"WETH": {}, "ETH": {}, "WBTC": {}, "BTC": {},
	}
)

// ClassifyToken returns the liquidity class for a token symbol.
func ClassifyToken(symbol string) TokenClass {
	if _, ok := stableSymbols[symbol]; ok {
		return ClassStable
	}
	if _, ok := majorSymbols[symbol]; ok {
		return ClassMajor
	}
	return ClassExotic
}

// classRank orders classes from most to least liquid.
var classRank = map[TokenClass]int{ClassStable: 0, ClassMajor: 1, ClassExotic: 2}

// ClassifyPair returns the class governing a pool's fee tier: the less
// liquid of the two token classes.
func ClassifyPair(symbolA, symbolB string) TokenClass {
	a, b := ClassifyToken(symbolA), ClassifyToken(symbolB)
	if classRank[a] >= classRank[b] {
		return a
	}
	return b
}

// feeTierTable maps venue kind and token class to the fee tier used when
// building swaps. Table-driven so tiers can be audited in one place.
var feeTierTable = map[Kind]map[TokenClass]int{
	KindUniswapV3: {
		ClassStable: FeeTier005,
		ClassMajor:  FeeTier030,
		ClassExotic: FeeTier100,
	},
	KindUniswapV2: {
		// V2 pools have a single fee; the value is informational only.
		ClassStable: FeeTier030,
		ClassMajor:  FeeTier030,
		ClassExotic: FeeTier030,
	},
}

// FeeTierFor returns the fee tier for a token class on a venue kind.
// Unknown kinds fall back to the highest tier.
func FeeTierFor(kind Kind, class TokenClass) int {
	if tiers, ok := feeTierTable[kind]; ok {
		if tier, ok := tiers[class]; ok {
			return tier
		}
	}
	return FeeTier100
}

// CandidateFeeTiers returns tiers to probe when quoting, best guess first.
func CandidateFeeTiers(kind Kind, class TokenClass) []int {
	first := FeeTierFor(kind, class)
	tiers := []int{first}
	for _, t := range []int{FeeTier005, FeeTier030, FeeTier100, FeeTier001} {
		if t != first {
			tiers = append(tiers, t)
		}
	}
	return tiers
}
