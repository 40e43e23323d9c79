package chain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID is a CAIP-19 asset identifier on an EIP-155 chain.
type AssetID struct {
	ChainID int64
	Native  bool
	Address common.Address
}

// ERC20AssetID formats eip155:<chainId>/erc20:<address>.
func ERC20AssetID(chainID int64, address string) string {
	return fmt.Sprintf("eip155:%d/erc20:%s", chainID, address)
}

// NativeAssetID formats eip155:<chainId>/native.
func NativeAssetID(chainID int64) string {
	return fmt.Sprintf("eip155:%d/native", chainID)
}

func (a AssetID) String() string {
	if a.Native {
		return NativeAssetID(a.ChainID)
	}
	return ERC20AssetID(a.ChainID, a.Address.Hex())
}

// ParseAssetID parses the two CAIP-19 forms produced by this package.
func ParseAssetID(s string) (AssetID, error) {
	ns, rest, ok := strings.Cut(s, ":")
	if !ok || ns != "eip155" {
		return AssetID{}, fmt.Errorf("invalid asset id %q: expected eip155 namespace", s)
	}
	ref, asset, ok := strings.Cut(rest, "/")
	if !ok {
		return AssetID{}, fmt.Errorf("invalid asset id %q: missing asset", s)
	}
	chainID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || chainID <= 0 {
		return AssetID{}, fmt.Errorf("invalid asset id %q: bad chain reference", s)
	}

	if asset == "native" {
		return AssetID{ChainID: chainID, Native: true}, nil
	}
	kind, addr, ok := strings.Cut(asset, ":")
	if !ok || kind != "erc20" || !common.IsHexAddress(addr) {
		return AssetID{}, fmt.Errorf("invalid asset id %q: expected erc20:<address> or native", s)
	}
	return AssetID{ChainID: chainID, Address: common.HexToAddress(addr)}, nil
}
