package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/utils"
)

// ResultName identifies a run's persisted results: <symbols>__<strategy>__<start>__<end>.
// More than one symbol is written as the symbol count; an open end is written as Now.
func ResultName(symbols []eventmodels.StockSymbol, strategyName string, startTickDate, endTradeDate time.Time) string {
	symbolPart := strconv.Itoa(len(symbols))
	if len(symbols) <= 1 {
		parts := make([]string, len(symbols))
		for i, s := range symbols {
			parts[i] = s.String()
		}

		symbolPart = strings.Join(parts, "_")
	}

	endPart := "Now"
	if !endTradeDate.IsZero() {
		endPart = utils.FormatDate(endTradeDate)
	}

	return fmt.Sprintf("%s__%s__%s__%s", symbolPart, strategyName, utils.FormatDate(startTickDate), endPart)
}
