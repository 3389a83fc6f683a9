package app

import (
	"avaneesh/dnp3-tester/pkg/types"
)

// event response variation per measurement type
var eventVariation = map[types.MeasurementType]struct{ group, variation uint8 }{
	types.MeasurementBinary:             {GroupBinaryInputEvent, 1},
	types.MeasurementBinaryOutputStatus: {GroupBinaryOutputEvent, 1},
	types.MeasurementCounter:            {GroupCounterEvent, 1},
	types.MeasurementAnalog:             {GroupAnalogInputEvent, 5},
	types.MeasurementAnalogOutputStatus: {GroupAnalogOutputEvent, 5},
}

// EncodeEvents writes events of one measurement type as g2v1, g11v1, g22v1, g32v5 or g42v5.
// Events keep their order and each carries a 16-bit index prefix.
func EncodeEvents(b *ObjectBuilder, mtype types.MeasurementType, values []PointValue) {
	if len(values) == 0 {
		return
	}
	obj := eventVariation[mtype]
	b.AddHeader(obj.group, obj.variation, Qualifier16BitIndexCount, CountRange{Count: uint32(len(values))})
	for _, v := range values {
		b.AddUint16(v.Index)
		encodeValue(b, mtype, v)
	}
}
