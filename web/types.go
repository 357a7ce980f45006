// Package web provides the HTTP request and response types of the launch API.
package web

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

// DefaultDecimals is used when a request omits decimals.
const DefaultDecimals = 18

// LaunchMetadata is business information passed through to the result.
type LaunchMetadata struct {
	BusinessName string `json:"business_name,omitempty" yaml:"business_name,omitempty" validate:"max=256"`
	Description  string `json:"description,omitempty"   yaml:"description,omitempty"   validate:"max=4096"`
	OwnerWallet  string `json:"owner_wallet,omitempty"  yaml:"owner_wallet,omitempty"  validate:"omitempty,eth_addr"`
}

// LaunchRequest is the body of POST /launches and the format of CLI request
// files. Amounts are decimal strings in base units.
type LaunchRequest struct {
	RequestID       string         `json:"request_id,omitempty"       yaml:"request_id,omitempty"       validate:"omitempty,max=128,printascii"`
	Metadata        LaunchMetadata `json:"metadata"                   yaml:"metadata"`
	TokenName       string         `json:"token_name"                 yaml:"token_name"                 validate:"required,max=64"`
	Symbol          string         `json:"symbol"                     yaml:"symbol"                     validate:"required,max=16"`
	Decimals        *uint8         `json:"decimals,omitempty"         yaml:"decimals,omitempty"`
	TotalSupply     string         `json:"total_supply"               yaml:"total_supply"               validate:"required,number"`
	LiquidityAmount string         `json:"liquidity_amount,omitempty" yaml:"liquidity_amount,omitempty" validate:"omitempty,number"`
	Currencies      [2]string      `json:"currencies"                 yaml:"currencies"                 validate:"dive,required"`
	Fee             uint32         `json:"fee"                        yaml:"fee"`
	TickSpacing     int32          `json:"tick_spacing"               yaml:"tick_spacing"               validate:"required"`
	Hooks           string         `json:"hooks,omitempty"            yaml:"hooks,omitempty"            validate:"omitempty,eth_addr"`
	SqrtPriceX96    string         `json:"sqrt_price_x96,omitempty"   yaml:"sqrt_price_x96,omitempty"   validate:"omitempty,number"`
	HookData        string         `json:"hook_data,omitempty"        yaml:"hook_data,omitempty"        validate:"omitempty,hexadecimal"`
}

// ToLaunchRequest converts the payload into the workflow request. Domain
// invariants are checked later by launch.LaunchRequest.Validate.
func (r *LaunchRequest) ToLaunchRequest() (*launch.LaunchRequest, error) {
	var errs launch.ValidationErrors
	parse := func(field, value string) *big.Int {
		if value == "" {
			return nil
		}
		v, ok := new(big.Int).SetString(value, 10)
		if !ok {
			errs = append(errs, launch.FieldError{Field: field, Message: "must be a base-10 integer"})
			return nil
		}
		return v
	}

	req := &launch.LaunchRequest{
		RequestID: r.RequestID,
		Metadata: launch.Metadata{
			BusinessName: r.Metadata.BusinessName,
			Description:  r.Metadata.Description,
			OwnerWallet:  r.Metadata.OwnerWallet,
		},
		TokenName:       r.TokenName,
		Symbol:          r.Symbol,
		Decimals:        DefaultDecimals,
		TotalSupply:     parse("total_supply", r.TotalSupply),
		LiquidityAmount: parse("liquidity_amount", r.LiquidityAmount),
		Currencies:      r.Currencies,
		Fee:             r.Fee,
		TickSpacing:     r.TickSpacing,
		SqrtPriceX96:    parse("sqrt_price_x96", r.SqrtPriceX96),
	}
	if r.Decimals != nil {
		req.Decimals = *r.Decimals
	}
	if r.Hooks != "" {
		req.Hooks = common.HexToAddress(r.Hooks)
	}
	if r.HookData != "" {
		data := r.HookData
		if !strings.HasPrefix(data, "0x") && !strings.HasPrefix(data, "0X") {
			data = "0x" + data
		}
		b, err := hexutil.Decode(data)
		if err != nil {
			errs = append(errs, launch.FieldError{Field: "hook_data", Message: err.Error()})
		}
		req.HookData = b
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into the field list of a problem body.
func fieldErrors(err error) launch.ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return launch.ValidationErrors{{Field: "body", Message: err.Error()}}
	}
	out := make(launch.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
		}
		out = append(out, launch.FieldError{Field: field, Message: msg})
	}
	return out
}

// StageSummary is the folded state of one stage in GET /launches/:requestID.
type StageSummary struct {
	Status      string       `json:"status"`
	TxHash      *common.Hash `json:"tx_hash,omitempty"`
	BlockNumber uint64       `json:"block_number,omitempty"`
	Reverted    int          `json:"reverted,omitempty"`
}

// LaunchHistoryResponse is the body of GET /launches/:requestID.
type LaunchHistoryResponse struct {
	RequestID string                        `json:"request_id"`
	Stages    map[launch.Stage]StageSummary `json:"stages"`
	Records   []store.Record                `json:"records"`
}

// NewLaunchHistoryResponse folds records into per-stage summaries. Stages with
// no record are reported as not_started.
func NewLaunchHistoryResponse(requestID string, records []store.Record) LaunchHistoryResponse {
	folded := store.Fold(records)
	stages := make(map[launch.Stage]StageSummary, len(launch.Stages))
	for _, stage := range launch.Stages {
		st := folded[stage]
		summary := StageSummary{Status: "not_started", Reverted: st.Reverted}
		switch {
		case st.Confirmed != nil:
			hash := st.Confirmed.TxHash
			summary.Status = "confirmed"
			summary.TxHash = &hash
			summary.BlockNumber = st.Confirmed.BlockNumber
		case st.Pending != nil:
			hash := st.Pending.TxHash
			summary.Status = "pending"
			summary.TxHash = &hash
		case st.Reverted > 0:
			summary.Status = "reverted"
		}
		stages[stage] = summary
	}
	return LaunchHistoryResponse{RequestID: requestID, Stages: stages, Records: records}
}
