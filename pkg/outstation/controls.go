package outstation

import (
	"bytes"
	"fmt"
	"time"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

// selection is an armed SELECT waiting for its OPERATE
type selection struct {
	seq     uint8
	objects []byte
	expires time.Time
}

func (o *Outstation) handleSelect(req *app.APDU) error {
	items, err := app.ParseCommands(req.Objects)
	if err != nil || len(items) == 0 {
		o.logger.Warn("outstation %s: bad select request: %v", o.config.ID, err)
		return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ParameterError}, nil)
	}

	allOK := true
	for i := range items {
		items[i].Status = o.selectCommand(items[i].Command)
		allOK = allOK && items[i].Status.IsSuccess()
	}

	o.selectMu.Lock()
	o.selected = nil
	if allOK {
		o.selected = &selection{
			seq:     req.Sequence,
			objects: append([]byte(nil), req.Objects...),
			expires: time.Now().Add(o.config.SelectTimeout),
		}
	}
	o.selectMu.Unlock()

	return o.respond(req.Sequence, types.IIN{}, encodeControlResponse(items))
}

func (o *Outstation) handleOperate(req *app.APDU) error {
	items, err := app.ParseCommands(req.Objects)
	if err != nil || len(items) == 0 {
		o.logger.Warn("outstation %s: bad operate request: %v", o.config.ID, err)
		return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ParameterError}, nil)
	}

	o.selectMu.Lock()
	sel := o.selected
	o.selected = nil
	o.selectMu.Unlock()

	switch {
	case sel == nil || !bytes.Equal(sel.objects, req.Objects) || req.Sequence != (sel.seq+1)&app.CtrlSeqMask:
		setStatus(items, types.CommandStatusNoSelect)
	case time.Now().After(sel.expires):
		setStatus(items, types.CommandStatusTimeout)
	default:
		for i := range items {
			items[i].Status = o.operateCommand(items[i].Command, OperateTypeSelectBeforeOperate)
		}
	}
	return o.respond(req.Sequence, types.IIN{}, encodeControlResponse(items))
}

func (o *Outstation) handleDirectOperate(req *app.APDU, opType OperateType) error {
	items, err := app.ParseCommands(req.Objects)
	if err != nil || len(items) == 0 {
		o.logger.Warn("outstation %s: bad direct operate request: %v", o.config.ID, err)
		if opType == OperateTypeDirectOperateNoAck {
			return nil
		}
		return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ParameterError}, nil)
	}

	for i := range items {
		items[i].Status = o.operateCommand(items[i].Command, opType)
	}
	if opType == OperateTypeDirectOperateNoAck {
		return nil
	}
	return o.respond(req.Sequence, types.IIN{}, encodeControlResponse(items))
}

func (o *Outstation) selectCommand(cmd types.Command) types.CommandStatus {
	switch c := cmd.Data.(type) {
	case types.CROB:
		return o.handler.SelectCROB(c, cmd.Index)
	case types.AnalogOutput:
		return o.handler.SelectAnalogOutput(c, cmd.Index)
	}
	return types.CommandStatusNotSupported
}

func (o *Outstation) operateCommand(cmd types.Command, opType OperateType) types.CommandStatus {
	switch c := cmd.Data.(type) {
	case types.CROB:
		return o.handler.OperateCROB(c, cmd.Index, opType, o.database)
	case types.AnalogOutput:
		return o.handler.OperateAnalogOutput(c, cmd.Index, opType, o.database)
	}
	return types.CommandStatusNotSupported
}

func setStatus(items []app.ControlItem, status types.CommandStatus) {
	for i := range items {
		items[i].Status = status
	}
}

// encodeControlResponse echoes the request objects with their statuses
func encodeControlResponse(items []app.ControlItem) []byte {
	b := app.NewObjectBuilder()
	for _, item := range items {
		switch c := item.Command.Data.(type) {
		case types.CROB:
			b.AddHeader(app.GroupBinaryOutputCommand, 1, app.Qualifier16BitIndexCount, app.CountRange{Count: 1})
			b.AddUint16(item.Command.Index)
			b.AddRaw(app.EncodeCROB(c, item.Status))
		case types.AnalogOutput:
			b.AddHeader(app.GroupAnalogOutputCommand, c.Variation(), app.Qualifier16BitIndexCount, app.CountRange{Count: 1})
			b.AddUint16(item.Command.Index)
			b.AddRaw(app.EncodeAnalogOutput(c, item.Status))
		}
	}
	return b.Build()
}

// parseClassRequest reads the g60 headers of a READ request
func parseClassRequest(objects []byte) (app.ClassField, error) {
	var classes app.ClassField
	p := app.NewParser(objects)
	for p.HasMore() {
		h, err := p.ReadObjectHeader()
		if err != nil {
			return classes, err
		}
		if h.Group != app.GroupClassData {
			return classes, fmt.Errorf("unsupported read of g%dv%d", h.Group, h.Variation)
		}
		switch h.Variation {
		case 1:
			classes |= app.Class0
		case 2:
			classes |= app.Class1
		case 3:
			classes |= app.Class2
		case 4:
			classes |= app.Class3
		default:
			return classes, fmt.Errorf("unsupported class variation %d", h.Variation)
		}
	}
	return classes, nil
}
