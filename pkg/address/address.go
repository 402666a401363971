package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"ledger-core/pkg/errno"
)

// tronVersion TRON 地址 base58check 的版本字节
const tronVersion = 0x41

// evmNetworks 地址格式与以太坊一致的网络
var evmNetworks = map[string]bool{
	"ETH":      true,
	"ERC20":    true,
	"BSC":      true,
	"BEP20":    true,
	"POLYGON":  true,
	"ARBITRUM": true,
}

// Validator 按网络校验提现目标地址的格式 (只校验格式，不检查链上状态)
type Validator struct {
	btcParams *chaincfg.Params
}

// NewValidator testnet 为 true 时 BTC 地址按 testnet3 校验
func NewValidator(testnet bool) *Validator {
	params := &chaincfg.MainNetParams
	if testnet {
		params = &chaincfg.TestNet3Params
	}
	return &Validator{btcParams: params}
}

// Validate 地址非法返回 errno.ErrInvalidAddress，网络未知返回 errno.ErrUnsupportedNetwork
func (v *Validator) Validate(network, addr string) error {
	network = strings.ToUpper(strings.TrimSpace(network))
	addr = strings.TrimSpace(addr)

	switch {
	case network == "BTC":
		return v.validateBTC(addr)
	case evmNetworks[network]:
		return validateEVM(addr)
	case network == "TRON" || network == "TRC20":
		return validateTron(addr)
	case network == "BANK":
		return ValidateCardNumber(addr)
	}
	return fmt.Errorf("%w: %s", errno.ErrUnsupportedNetwork, network)
}

func (v *Validator) validateBTC(addr string) error {
	decoded, err := btcutil.DecodeAddress(addr, v.btcParams)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrInvalidAddress, err)
	}
	if !decoded.IsForNet(v.btcParams) {
		return fmt.Errorf("%w: address is not for %s", errno.ErrInvalidAddress, v.btcParams.Name)
	}
	return nil
}

// validateEVM 全小写 / 全大写只检查十六进制格式，大小写混合时必须满足 EIP-55 校验和
func validateEVM(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%w: not a hex address", errno.ErrInvalidAddress)
	}
	body := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if common.HexToAddress(addr).Hex() != addr {
			return fmt.Errorf("%w: bad EIP-55 checksum", errno.ErrInvalidAddress)
		}
	}
	return nil
}

func validateTron(addr string) error {
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrInvalidAddress, err)
	}
	if version != tronVersion || len(payload) != common.AddressLength {
		return fmt.Errorf("%w: not a TRON address", errno.ErrInvalidAddress)
	}
	return nil
}

// cardRules 银行卡号: 12-19 位数字并通过 Luhn 校验
const cardRules = "required,numeric,min=12,max=19,luhn_checksum"

var cardValidate = validator.New()

// ValidateCardNumber 允许空格分隔
func ValidateCardNumber(card string) error {
	card = strings.ReplaceAll(card, " ", "")
	if err := cardValidate.Var(card, cardRules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: card number failed %s", errno.ErrInvalidAddress, verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", errno.ErrInvalidAddress, err)
	}
	return nil
}
