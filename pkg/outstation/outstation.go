package outstation

import (
	"sync"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/logger"
	"avaneesh/dnp3-tester/pkg/transport"
	"avaneesh/dnp3-tester/pkg/types"
)

// Outstation answers reads and controls from one master
type Outstation struct {
	config  OutstationConfig
	handler ControlHandler
	channel *channel.Channel
	session *session
	logger  logger.Logger

	database *Database
	events   *EventBuffer

	// requests are handled one at a time on the channel read goroutine
	selectMu sync.Mutex
	selected *selection

	restart  bool
	shutdown sync.Once
}

// New creates an outstation session on ch. A nil handler rejects every command.
func New(config OutstationConfig, handler ControlHandler, ch *channel.Channel) (*Outstation, error) {
	if handler == nil {
		handler = RejectingControlHandler{}
	}
	if config.SelectTimeout <= 0 {
		config.SelectTimeout = DefaultOutstationConfig().SelectTimeout
	}

	events := NewEventBuffer(config.EventBuffers)
	o := &Outstation{
		config:   config,
		handler:  handler,
		channel:  ch,
		logger:   logger.OrNoOp(ch.Logger()),
		database: NewDatabase(events),
		events:   events,
		restart:  true,
	}
	o.session = &session{
		linkAddress: config.LocalAddress,
		remoteAddr:  config.RemoteAddress,
		channel:     ch,
		outstation:  o,
		transport:   transport.NewLayer(),
	}
	if err := ch.AddSession(o.session); err != nil {
		return nil, err
	}

	o.logger.Debug("outstation %s: created (local=%d, remote=%d)", config.ID, config.LocalAddress, config.RemoteAddress)
	return o, nil
}

// Config returns the outstation configuration
func (o *Outstation) Config() OutstationConfig {
	return o.config
}

// Database returns the point database
func (o *Outstation) Database() *Database {
	return o.database
}

// Events returns the event buffer
func (o *Outstation) Events() *EventBuffer {
	return o.events
}

// Transaction applies updates to the database atomically
func (o *Outstation) Transaction(fn func(*Database)) {
	o.database.Transaction(fn)
}

// Shutdown detaches the outstation from its channel
func (o *Outstation) Shutdown() {
	o.shutdown.Do(func() {
		o.channel.RemoveSession(o.config.LocalAddress)
		o.logger.Debug("outstation %s: shut down", o.config.ID)
	})
}

// onReceiveAPDU handles a reassembled request fragment
func (o *Outstation) onReceiveAPDU(data []byte) error {
	req, err := app.Parse(data)
	if err != nil {
		o.logger.Warn("outstation %s: bad apdu: %v", o.config.ID, err)
		return nil
	}
	o.traceAPDU("RX", req)

	switch req.FunctionCode {
	case app.FuncConfirm:
		return nil
	case app.FuncRead:
		return o.handleRead(req)
	case app.FuncSelect:
		return o.handleSelect(req)
	case app.FuncOperate:
		return o.handleOperate(req)
	case app.FuncDirectOperate:
		return o.handleDirectOperate(req, OperateTypeDirectOperate)
	case app.FuncDirectOperateNoAck:
		return o.handleDirectOperate(req, OperateTypeDirectOperateNoAck)
	case app.FuncWrite:
		return o.handleWrite(req)
	default:
		o.logger.Warn("outstation %s: unsupported function %s", o.config.ID, req.FunctionCode)
		return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2NoFuncCodeSupport}, nil)
	}
}

func (o *Outstation) handleRead(req *app.APDU) error {
	classes, err := parseClassRequest(req.Objects)
	if err != nil {
		o.logger.Warn("outstation %s: %v", o.config.ID, err)
		return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ObjectUnknown}, nil)
	}

	b := app.NewObjectBuilder()
	if classes&(app.Class1|app.Class2|app.Class3) != 0 {
		events := o.events.Take(classes)
		for _, mtype := range measurementTypes {
			app.EncodeEvents(b, mtype, events[mtype])
		}
	}
	if classes&app.Class0 != 0 {
		o.database.Transaction(func(db *Database) {
			for _, mtype := range measurementTypes {
				app.EncodeStatic(b, mtype, db.Static(mtype))
			}
		})
	}
	return o.respond(req.Sequence, types.IIN{}, b.Build())
}

// handleWrite accepts a write clearing the device restart indication
func (o *Outstation) handleWrite(req *app.APDU) error {
	p := app.NewParser(req.Objects)
	for p.HasMore() {
		h, err := p.ReadObjectHeader()
		if err != nil {
			return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ParameterError}, nil)
		}
		if h.Group != 80 || h.Variation != 1 {
			return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ObjectUnknown}, nil)
		}
		if _, err := p.ReadBytes(int(app.Count(h.Range)+7) / 8); err != nil {
			return o.respond(req.Sequence, types.IIN{IIN2: types.IIN2ParameterError}, nil)
		}
		o.restart = false
	}
	return o.respond(req.Sequence, types.IIN{}, nil)
}

func (o *Outstation) respond(seq uint8, iin types.IIN, objects []byte) error {
	iin.IIN1 |= o.indications()
	resp := app.NewResponse(seq, iin, objects)
	o.traceAPDU("TX", resp)
	return o.session.sendAPDU(resp.Serialize())
}

func (o *Outstation) indications() uint8 {
	var iin1 uint8
	pending := o.events.Pending()
	if pending&app.Class1 != 0 {
		iin1 |= types.IIN1Class1Events
	}
	if pending&app.Class2 != 0 {
		iin1 |= types.IIN1Class2Events
	}
	if pending&app.Class3 != 0 {
		iin1 |= types.IIN1Class3Events
	}
	if o.restart {
		iin1 |= types.IIN1DeviceRestart
	}
	return iin1
}

func (o *Outstation) traceAPDU(dir string, apdu *app.APDU) {
	level := o.channel.DecodeLevel()
	if level < channel.DecodeHeaders {
		return
	}
	o.logger.Info("APP %s - %s", dir, apdu)
	if level < channel.DecodeObjectHeaders || len(apdu.Objects) == 0 {
		return
	}
	for _, line := range app.Describe(apdu.Objects, level >= channel.DecodeObjectValues) {
		o.logger.Info("%s", line)
	}
}

// measurement types in response order
var measurementTypes = []types.MeasurementType{
	types.MeasurementBinary,
	types.MeasurementBinaryOutputStatus,
	types.MeasurementCounter,
	types.MeasurementAnalog,
	types.MeasurementAnalogOutputStatus,
}
