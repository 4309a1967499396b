package drift

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-errors/errors"
)

// ProgramID is the drift v2 program.
var ProgramID = solana.MustPublicKeyFromBase58("dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH")

func discriminator(name string) []byte {
	return bin.Sighash(bin.SIGHASH_GLOBAL_NAMESPACE, name)
}

type instruction struct {
	programID solana.PublicKey
	accounts  solana.AccountMetaSlice
	data      []byte
}

func (inst *instruction) ProgramID() solana.PublicKey {
	return inst.programID
}

func (inst *instruction) Accounts() []*solana.AccountMeta {
	return inst.accounts
}

func (inst *instruction) Data() ([]byte, error) {
	return inst.data, nil
}

// FillPerpOrder builds the fill_perp_order instruction. The filler signs
// and earns the fill reward; maker accounts ride along as remaining
// accounts so the program can match against them.
type FillPerpOrder struct {
	State       solana.PublicKey
	Authority   solana.PublicKey
	Filler      solana.PublicKey
	FillerStats solana.PublicKey
	User        solana.PublicKey
	UserStats   solana.PublicKey

	OrderId *uint32

	remaining solana.AccountMetaSlice
}

func NewFillPerpOrderInstructionBuilder() *FillPerpOrder {
	return &FillPerpOrder{}
}

func (inst *FillPerpOrder) SetStateAccount(state solana.PublicKey) *FillPerpOrder {
	inst.State = state
	return inst
}

func (inst *FillPerpOrder) SetAuthorityAccount(authority solana.PublicKey) *FillPerpOrder {
	inst.Authority = authority
	return inst
}

func (inst *FillPerpOrder) SetFillerAccount(filler solana.PublicKey) *FillPerpOrder {
	inst.Filler = filler
	return inst
}

func (inst *FillPerpOrder) SetFillerStatsAccount(fillerStats solana.PublicKey) *FillPerpOrder {
	inst.FillerStats = fillerStats
	return inst
}

func (inst *FillPerpOrder) SetUserAccount(user solana.PublicKey) *FillPerpOrder {
	inst.User = user
	return inst
}

func (inst *FillPerpOrder) SetUserStatsAccount(userStats solana.PublicKey) *FillPerpOrder {
	inst.UserStats = userStats
	return inst
}

func (inst *FillPerpOrder) SetOrderId(orderId uint32) *FillPerpOrder {
	inst.OrderId = &orderId
	return inst
}

func (inst *FillPerpOrder) Append(account *solana.AccountMeta) *FillPerpOrder {
	inst.remaining = append(inst.remaining, account)
	return inst
}

func (inst *FillPerpOrder) Validate() error {
	if inst.State.IsZero() {
		return errors.New("state account not set")
	}
	if inst.Authority.IsZero() {
		return errors.New("authority account not set")
	}
	if inst.User.IsZero() {
		return errors.New("user account not set")
	}
	return nil
}

func (inst *FillPerpOrder) Build() solana.Instruction {
	keys := solana.AccountMetaSlice{
		solana.Meta(inst.State),
		solana.Meta(inst.Authority).SIGNER(),
		solana.Meta(inst.Filler).WRITE(),
		solana.Meta(inst.FillerStats).WRITE(),
		solana.Meta(inst.User).WRITE(),
		solana.Meta(inst.UserStats).WRITE(),
	}
	keys = append(keys, inst.remaining...)

	buf := new(bytes.Buffer)
	buf.Write(discriminator("fill_perp_order"))
	encoder := bin.NewBorshEncoder(buf)
	_ = encoder.WriteBool(inst.OrderId != nil)
	if inst.OrderId != nil {
		_ = encoder.WriteUint32(*inst.OrderId, bin.LE)
	}
	// maker_order_id is unused, fills match against all crossing makers
	_ = encoder.WriteBool(false)

	return &instruction{
		programID: ProgramID,
		accounts:  keys,
		data:      buf.Bytes(),
	}
}

func (inst *FillPerpOrder) ValidateAndBuild() (solana.Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

func encodeOrderParams(encoder *bin.Encoder, params *OrderParams) {
	_ = encoder.WriteUint8(uint8(params.OrderType))
	_ = encoder.WriteUint8(uint8(params.MarketType))
	_ = encoder.WriteUint8(uint8(params.Direction))
	_ = encoder.WriteUint8(params.UserOrderId)
	_ = encoder.WriteUint64(params.BaseAssetAmount, bin.LE)
	_ = encoder.WriteUint64(params.Price, bin.LE)
	_ = encoder.WriteUint16(params.MarketIndex, bin.LE)
	_ = encoder.WriteBool(params.ReduceOnly)
	_ = encoder.WriteUint8(uint8(params.PostOnly))
	_ = encoder.WriteBool(params.ImmediateOrCancel)
	_ = encoder.WriteBool(params.MaxTs != nil)
	if params.MaxTs != nil {
		_ = encoder.WriteInt64(*params.MaxTs, bin.LE)
	}
	_ = encoder.WriteBool(params.TriggerPrice != nil)
	if params.TriggerPrice != nil {
		_ = encoder.WriteUint64(*params.TriggerPrice, bin.LE)
	}
	_ = encoder.WriteUint8(uint8(params.TriggerCondition))
	_ = encoder.WriteBool(params.OraclePriceOffset != nil)
	if params.OraclePriceOffset != nil {
		_ = encoder.WriteInt32(*params.OraclePriceOffset, bin.LE)
	}
	_ = encoder.WriteBool(params.AuctionDuration != nil)
	if params.AuctionDuration != nil {
		_ = encoder.WriteUint8(*params.AuctionDuration)
	}
	_ = encoder.WriteBool(params.AuctionStartPrice != nil)
	if params.AuctionStartPrice != nil {
		_ = encoder.WriteInt64(*params.AuctionStartPrice, bin.LE)
	}
	_ = encoder.WriteBool(params.AuctionEndPrice != nil)
	if params.AuctionEndPrice != nil {
		_ = encoder.WriteInt64(*params.AuctionEndPrice, bin.LE)
	}
}

// PlaceAndMakePerpOrder builds the place_and_make_perp_order instruction.
// The maker places a post-only order and matches it against one taker order
// in the same transaction, which is how quotes land inside an auction.
type PlaceAndMakePerpOrder struct {
	State      solana.PublicKey
	User       solana.PublicKey
	UserStats  solana.PublicKey
	Taker      solana.PublicKey
	TakerStats solana.PublicKey
	Authority  solana.PublicKey

	Params       *OrderParams
	TakerOrderId uint32

	remaining solana.AccountMetaSlice
}

func NewPlaceAndMakePerpOrderInstructionBuilder() *PlaceAndMakePerpOrder {
	return &PlaceAndMakePerpOrder{}
}

func (inst *PlaceAndMakePerpOrder) SetStateAccount(state solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.State = state
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetUserAccount(user solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.User = user
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetUserStatsAccount(userStats solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.UserStats = userStats
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetTakerAccount(taker solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.Taker = taker
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetTakerStatsAccount(takerStats solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.TakerStats = takerStats
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetAuthorityAccount(authority solana.PublicKey) *PlaceAndMakePerpOrder {
	inst.Authority = authority
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetParams(params *OrderParams) *PlaceAndMakePerpOrder {
	inst.Params = params
	return inst
}

func (inst *PlaceAndMakePerpOrder) SetTakerOrderId(takerOrderId uint32) *PlaceAndMakePerpOrder {
	inst.TakerOrderId = takerOrderId
	return inst
}

func (inst *PlaceAndMakePerpOrder) Append(account *solana.AccountMeta) *PlaceAndMakePerpOrder {
	inst.remaining = append(inst.remaining, account)
	return inst
}

func (inst *PlaceAndMakePerpOrder) Validate() error {
	if inst.State.IsZero() {
		return errors.New("state account not set")
	}
	if inst.User.IsZero() {
		return errors.New("user account not set")
	}
	if inst.Taker.IsZero() {
		return errors.New("taker account not set")
	}
	if inst.Authority.IsZero() {
		return errors.New("authority account not set")
	}
	if inst.Params == nil {
		return errors.New("order params not set")
	}
	return nil
}

func (inst *PlaceAndMakePerpOrder) Build() solana.Instruction {
	keys := solana.AccountMetaSlice{
		solana.Meta(inst.State),
		solana.Meta(inst.User).WRITE(),
		solana.Meta(inst.UserStats).WRITE(),
		solana.Meta(inst.Taker).WRITE(),
		solana.Meta(inst.TakerStats).WRITE(),
		solana.Meta(inst.Authority).SIGNER(),
	}
	keys = append(keys, inst.remaining...)

	buf := new(bytes.Buffer)
	buf.Write(discriminator("place_and_make_perp_order"))
	encoder := bin.NewBorshEncoder(buf)
	encodeOrderParams(encoder, inst.Params)
	_ = encoder.WriteUint32(inst.TakerOrderId, bin.LE)

	return &instruction{
		programID: ProgramID,
		accounts:  keys,
		data:      buf.Bytes(),
	}
}

func (inst *PlaceAndMakePerpOrder) ValidateAndBuild() (solana.Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// TriggerOrder builds the trigger_order instruction for an order whose
// trigger condition was met.
type TriggerOrder struct {
	State     solana.PublicKey
	Authority solana.PublicKey
	Filler    solana.PublicKey
	User      solana.PublicKey

	OrderId uint32

	remaining solana.AccountMetaSlice
}

func NewTriggerOrderInstructionBuilder() *TriggerOrder {
	return &TriggerOrder{}
}

func (inst *TriggerOrder) SetStateAccount(state solana.PublicKey) *TriggerOrder {
	inst.State = state
	return inst
}

func (inst *TriggerOrder) SetAuthorityAccount(authority solana.PublicKey) *TriggerOrder {
	inst.Authority = authority
	return inst
}

func (inst *TriggerOrder) SetFillerAccount(filler solana.PublicKey) *TriggerOrder {
	inst.Filler = filler
	return inst
}

func (inst *TriggerOrder) SetUserAccount(user solana.PublicKey) *TriggerOrder {
	inst.User = user
	return inst
}

func (inst *TriggerOrder) SetOrderId(orderId uint32) *TriggerOrder {
	inst.OrderId = orderId
	return inst
}

func (inst *TriggerOrder) Append(account *solana.AccountMeta) *TriggerOrder {
	inst.remaining = append(inst.remaining, account)
	return inst
}

func (inst *TriggerOrder) Validate() error {
	if inst.State.IsZero() {
		return errors.New("state account not set")
	}
	if inst.Authority.IsZero() {
		return errors.New("authority account not set")
	}
	if inst.User.IsZero() {
		return errors.New("user account not set")
	}
	return nil
}

func (inst *TriggerOrder) Build() solana.Instruction {
	keys := solana.AccountMetaSlice{
		solana.Meta(inst.State),
		solana.Meta(inst.Authority).SIGNER(),
		solana.Meta(inst.Filler).WRITE(),
		solana.Meta(inst.User).WRITE(),
	}
	keys = append(keys, inst.remaining...)

	buf := new(bytes.Buffer)
	buf.Write(discriminator("trigger_order"))
	encoder := bin.NewBorshEncoder(buf)
	_ = encoder.WriteUint32(inst.OrderId, bin.LE)

	return &instruction{
		programID: ProgramID,
		accounts:  keys,
		data:      buf.Bytes(),
	}
}

func (inst *TriggerOrder) ValidateAndBuild() (solana.Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// RevertFill makes the whole transaction revert when appended after fill
// instructions and any of them failed, so a bad fill costs only the fee.
type RevertFill struct {
	State       solana.PublicKey
	Authority   solana.PublicKey
	Filler      solana.PublicKey
	FillerStats solana.PublicKey
}

func NewRevertFillInstructionBuilder() *RevertFill {
	return &RevertFill{}
}

func (inst *RevertFill) SetStateAccount(state solana.PublicKey) *RevertFill {
	inst.State = state
	return inst
}

func (inst *RevertFill) SetAuthorityAccount(authority solana.PublicKey) *RevertFill {
	inst.Authority = authority
	return inst
}

func (inst *RevertFill) SetFillerAccount(filler solana.PublicKey) *RevertFill {
	inst.Filler = filler
	return inst
}

func (inst *RevertFill) SetFillerStatsAccount(fillerStats solana.PublicKey) *RevertFill {
	inst.FillerStats = fillerStats
	return inst
}

func (inst *RevertFill) Validate() error {
	if inst.State.IsZero() {
		return errors.New("state account not set")
	}
	if inst.Authority.IsZero() {
		return errors.New("authority account not set")
	}
	return nil
}

func (inst *RevertFill) Build() solana.Instruction {
	keys := solana.AccountMetaSlice{
		solana.Meta(inst.State),
		solana.Meta(inst.Authority).SIGNER(),
		solana.Meta(inst.Filler).WRITE(),
		solana.Meta(inst.FillerStats).WRITE(),
	}

	buf := new(bytes.Buffer)
	buf.Write(discriminator("revert_fill"))

	return &instruction{
		programID: ProgramID,
		accounts:  keys,
		data:      buf.Bytes(),
	}
}

func (inst *RevertFill) ValidateAndBuild() (solana.Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// SettlePnl builds the settle_pnl instruction for one perp market.
type SettlePnl struct {
	State           solana.PublicKey
	Authority       solana.PublicKey
	User            solana.PublicKey
	SpotMarketVault solana.PublicKey

	MarketIndex uint16

	remaining solana.AccountMetaSlice
}

func NewSettlePnlInstructionBuilder() *SettlePnl {
	return &SettlePnl{}
}

func (inst *SettlePnl) SetStateAccount(state solana.PublicKey) *SettlePnl {
	inst.State = state
	return inst
}

func (inst *SettlePnl) SetAuthorityAccount(authority solana.PublicKey) *SettlePnl {
	inst.Authority = authority
	return inst
}

func (inst *SettlePnl) SetUserAccount(user solana.PublicKey) *SettlePnl {
	inst.User = user
	return inst
}

func (inst *SettlePnl) SetSpotMarketVaultAccount(vault solana.PublicKey) *SettlePnl {
	inst.SpotMarketVault = vault
	return inst
}

func (inst *SettlePnl) SetMarketIndex(marketIndex uint16) *SettlePnl {
	inst.MarketIndex = marketIndex
	return inst
}

func (inst *SettlePnl) Append(account *solana.AccountMeta) *SettlePnl {
	inst.remaining = append(inst.remaining, account)
	return inst
}

func (inst *SettlePnl) Validate() error {
	if inst.State.IsZero() {
		return errors.New("state account not set")
	}
	if inst.Authority.IsZero() {
		return errors.New("authority account not set")
	}
	if inst.User.IsZero() {
		return errors.New("user account not set")
	}
	return nil
}

func (inst *SettlePnl) Build() solana.Instruction {
	keys := solana.AccountMetaSlice{
		solana.Meta(inst.State),
		solana.Meta(inst.Authority).SIGNER(),
		solana.Meta(inst.User).WRITE(),
		solana.Meta(inst.SpotMarketVault),
	}
	keys = append(keys, inst.remaining...)

	buf := new(bytes.Buffer)
	buf.Write(discriminator("settle_pnl"))
	encoder := bin.NewBorshEncoder(buf)
	_ = encoder.WriteUint16(inst.MarketIndex, bin.LE)

	return &instruction{
		programID: ProgramID,
		accounts:  keys,
		data:      buf.Bytes(),
	}
}

func (inst *SettlePnl) ValidateAndBuild() (solana.Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}
