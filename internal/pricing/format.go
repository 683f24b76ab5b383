package pricing

import (
	"fmt"
	"math/big"
)

var weiPerETH = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// FormatETH renders a base-unit amount as a decimal ETH string with four
// fractional digits, e.g. "0.0500 ETH". Precision stays in big.Int right up
// to this boundary.
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "0.0000 ETH"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerETH)
	return fmt.Sprintf("%s ETH", eth.Text('f', 4))
}

// FormatUSD converts a base-unit amount to a dollar string at the given
// ETH/USD rate, e.g. "$125.00"
func FormatUSD(wei *big.Int, usdPerETH float64) string {
	if wei == nil {
		return "$0.00"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerETH)
	usd := new(big.Float).Mul(eth, big.NewFloat(usdPerETH))
	return fmt.Sprintf("$%s", usd.Text('f', 2))
}
