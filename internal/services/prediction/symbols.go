package prediction

import (
	"regexp"
	"strings"

	"PulseWatch/internal/domain/models"
)

var cryptoAliases = map[string]string{
	"bitcoin": "bitcoin", "btc": "bitcoin",
	"ethereum": "ethereum", "eth": "ethereum",
	"binancecoin": "binancecoin", "bnb": "binancecoin",
	"ripple": "ripple", "xrp": "ripple",
	"cardano": "cardano", "ada": "cardano",
	"solana": "solana", "sol": "solana",
	"dogecoin": "dogecoin", "doge": "dogecoin",
	"polkadot": "polkadot", "dot": "polkadot",
	"matic-network": "matic-network", "matic": "matic-network", "polygon": "matic-network",
}

var tickerRe = regexp.MustCompile(`^[A-Z]{1,5}$`)

// DetectAsset classifies a user-supplied symbol. Known crypto aliases and
// anything that is not a 1-5 letter upper-case ticker are treated as crypto
// and resolved to a CoinGecko id.
func DetectAsset(symbol string) (models.AssetType, string) {
	symbol = strings.TrimSpace(symbol)
	lower := strings.ToLower(symbol)

	if id, ok := cryptoAliases[lower]; ok {
		return models.AssetCrypto, id
	}
	if tickerRe.MatchString(symbol) {
		return models.AssetStock, symbol
	}
	return models.AssetCrypto, lower
}
