package domain

// Provider identifies a payment rail. Each one has its own completion model:
// stripe confirms in place, coinbase redirects to a hosted page, twint is
// confirmed out-of-band and observed by polling.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderCoinbase Provider = "coinbase"
	ProviderTwint    Provider = "twint"
)

func (p Provider) Valid() bool {
	return p == ProviderStripe || p == ProviderCoinbase || p == ProviderTwint
}

func (p Provider) String() string {
	return string(p)
}

// PaymentSession is ephemeral and provider-tagged. Nothing is persisted
// beyond the active checkout attempt.
type PaymentSession struct {
	Provider     Provider
	ClientSecret string
	HostedURL    string
}
