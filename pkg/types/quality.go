package types

// Flags represents DNP3 quality flags
type Flags uint8

// DNP3 quality flag bits
const (
	FlagOnline       Flags = 0x01
	FlagRestart      Flags = 0x02
	FlagCommLost     Flags = 0x04
	FlagRemoteForced Flags = 0x08
	FlagLocalForced  Flags = 0x10
)

// IsOnline returns true if the point is marked as online
func (f Flags) IsOnline() bool {
	return f&FlagOnline != 0
}

// HasCommLost returns true if communication was lost
func (f Flags) HasCommLost() bool {
	return f&FlagCommLost != 0
}

// IsRemoteForced returns true if the value was forced by a remote entity
func (f Flags) IsRemoteForced() bool {
	return f&FlagRemoteForced != 0
}

// IsLocalForced returns true if the value was forced locally
func (f Flags) IsLocalForced() bool {
	return f&FlagLocalForced != 0
}

// IIN (Internal Indications) carried in every response
type IIN struct {
	IIN1 uint8
	IIN2 uint8
}

// IIN bit masks used by the outstation
const (
	IIN1Class1Events      uint8 = 0x02
	IIN1Class2Events      uint8 = 0x04
	IIN1Class3Events      uint8 = 0x08
	IIN1NeedTime          uint8 = 0x10
	IIN1DeviceRestart     uint8 = 0x80
	IIN2NoFuncCodeSupport uint8 = 0x01
	IIN2ObjectUnknown     uint8 = 0x02
	IIN2ParameterError    uint8 = 0x04
)

// HasError returns true if any IIN2 error bit is set
func (iin IIN) HasError() bool {
	return iin.IIN2&(IIN2NoFuncCodeSupport|IIN2ObjectUnknown|IIN2ParameterError) != 0
}
