package satsledger

import "fmt"

// AssetClass distinguishes fiat currencies from crypto assets. Crypto assets
// are tracked as cost-basis lots, fiat assets are not (except as the unit of
// account, see BaseAsset).
type AssetClass int

const (
	Fiat AssetClass = iota
	Crypto
)

func (c AssetClass) String() string {
	switch c {
	case Fiat:
		return "fiat"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// ParseAssetClass parses a string into an AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "fiat":
		return Fiat, nil
	case "crypto":
		return Crypto, nil
	default:
		return 0, fmt.Errorf("unknown asset class: %q", s)
	}
}

// Asset identifies a fungible unit held in a wallet. Equality is structural,
// so Asset is usable as a map key.
type Asset struct {
	Name  string
	Class AssetClass
}

// BaseAsset is the unit of account. Its own lots are meaningless: all rates
// are expressed in base-asset terms, and the balance builder never tracks it.
var BaseAsset = Asset{Name: "EUR", Class: Fiat}

// BTC is the asset tracked by the portfolio history.
var BTC = Asset{Name: "BTC", Class: Crypto}

// IsBase reports whether the asset is the designated unit of account.
func (a Asset) IsBase() bool { return a == BaseAsset }

func (a Asset) String() string { return a.Name }
