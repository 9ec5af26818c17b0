package instrument

// Default returns the built-in instrument table. Only gold is tracked.
func Default() []Instrument {
	return []Instrument{
		{Code: "XAUUSD", Name: "Gold vs US Dollar", Category: Metal, Tracked: true, Symbol: "OANDA:XAU_USD"},
		{Code: "XAGUSD", Name: "Silver vs US Dollar", Category: Metal},

		{Code: "EURUSD", Name: "Euro vs US Dollar", Category: Major, Symbol: "OANDA:EUR_USD"},
		{Code: "GBPUSD", Name: "Great British Pound vs US Dollar", Category: Major, Symbol: "OANDA:GBP_USD"},
		{Code: "USDJPY", Name: "US Dollar vs Japanese Yen", Category: Major, Symbol: "OANDA:USD_JPY"},
		{Code: "USDCHF", Name: "US Dollar vs Swiss Franc", Category: Major, Symbol: "OANDA:USD_CHF"},
		{Code: "AUDUSD", Name: "Australian Dollar vs US Dollar", Category: Major, Symbol: "OANDA:AUD_USD"},
		{Code: "USDCAD", Name: "US Dollar vs Canadian Dollar", Category: Major, Symbol: "OANDA:USD_CAD"},
		{Code: "NZDUSD", Name: "New Zealand Dollar vs US Dollar", Category: Major, Symbol: "OANDA:NZD_USD"},

		{Code: "EURGBP", Name: "Euro vs Great British Pound", Category: Minor},
		{Code: "EURJPY", Name: "Euro vs Japanese Yen", Category: Minor},
		{Code: "GBPJPY", Name: "Great British Pound vs Japanese Yen", Category: Minor},
		{Code: "AUDJPY", Name: "Australian Dollar vs Japanese Yen", Category: Minor},
		{Code: "EURAUD", Name: "Euro vs Australian Dollar", Category: Minor},
		{Code: "GBPCHF", Name: "Great British Pound vs Swiss Franc", Category: Minor},
		{Code: "EURCHF", Name: "Euro vs Swiss Franc", Category: Minor},

		{Code: "USDTRY", Name: "US Dollar vs Turkish Lira", Category: Exotic},
		{Code: "USDZAR", Name: "US Dollar vs South African Rand", Category: Exotic},
		{Code: "USDMXN", Name: "US Dollar vs Mexican Peso", Category: Exotic},

		{Code: "NAS100", Name: "Nasdaq 100", Category: Index},
		{Code: "US30", Name: "Dow Jones Industrial Average", Category: Index},
		{Code: "SPX500", Name: "S&P 500", Category: Index},
		{Code: "GER30", Name: "DAX 30", Category: Index},
		{Code: "UK100", Name: "FTSE 100", Category: Index},

		{Code: "BTCUSD", Name: "Bitcoin vs US Dollar", Category: Crypto, Symbol: "BTCUSDT", Provider: "binance"},
		{Code: "ETHUSD", Name: "Ethereum vs US Dollar", Category: Crypto, Symbol: "ETHUSDT", Provider: "binance"},
		{Code: "XRPUSD", Name: "Ripple vs US Dollar", Category: Crypto, Symbol: "XRPUSDT", Provider: "binance"},
		{Code: "SOLUSD", Name: "Solana vs US Dollar", Category: Crypto, Symbol: "SOLUSDT", Provider: "binance"},
	}
}
