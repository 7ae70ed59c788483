package auction

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// percentOf возвращает floor(total*pct/100) без риска переполнения int64.
func percentOf(total, pct int64) int64 {
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(pct)).
		Div(hundred).
		Floor().
		IntPart()
}

// increaseThreshold возвращает сумму, которую новая ставка должна строго превысить.
func increaseThreshold(leaderTotal, pct int64) decimal.Decimal {
	return decimal.NewFromInt(leaderTotal).Add(decimal.NewFromInt(percentOf(leaderTotal, pct)))
}

// exceedsIncrease сообщает, превышает ли newTotal порог повышения над leaderTotal.
func exceedsIncrease(newTotal, leaderTotal, pct int64) bool {
	return decimal.NewFromInt(newTotal).GreaterThan(increaseThreshold(leaderTotal, pct))
}
