package master

import (
	"time"

	"avaneesh/dnp3-tester/pkg/types"
)

// MasterConfig configures a master session
type MasterConfig struct {
	ID string

	LocalAddress  uint16
	RemoteAddress uint16

	// ResponseTimeout bounds each request/response exchange
	ResponseTimeout time.Duration
}

// DefaultMasterConfig returns master 1 talking to outstation 10
func DefaultMasterConfig() MasterConfig {
	return MasterConfig{
		ID:              "master",
		LocalAddress:    1,
		RemoteAddress:   10,
		ResponseTimeout: 5 * time.Second,
	}
}

// ReadHandler receives measurements from every response fragment.
// Callbacks run on the channel read goroutine and must not block.
type ReadHandler interface {
	OnBeginFragment(info ResponseInfo)
	OnEndFragment(info ResponseInfo)

	ProcessBinary(values []types.IndexedBinary)
	ProcessBinaryOutputStatus(values []types.IndexedBinaryOutputStatus)
	ProcessCounter(values []types.IndexedCounter)
	ProcessAnalog(values []types.IndexedAnalog)
	ProcessAnalogOutputStatus(values []types.IndexedAnalogOutputStatus)
}

// ResponseInfo describes a response fragment
type ResponseInfo struct {
	Unsolicited bool
	FIR         bool
	FIN         bool
	IIN         types.IIN
}

// NullReadHandler ignores all measurements
type NullReadHandler struct{}

func (NullReadHandler) OnBeginFragment(ResponseInfo)                                {}
func (NullReadHandler) OnEndFragment(ResponseInfo)                                  {}
func (NullReadHandler) ProcessBinary([]types.IndexedBinary)                         {}
func (NullReadHandler) ProcessBinaryOutputStatus([]types.IndexedBinaryOutputStatus) {}
func (NullReadHandler) ProcessCounter([]types.IndexedCounter)                       {}
func (NullReadHandler) ProcessAnalog([]types.IndexedAnalog)                         {}
func (NullReadHandler) ProcessAnalogOutputStatus([]types.IndexedAnalogOutputStatus) {}
