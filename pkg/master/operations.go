package master

import (
	"context"
	"fmt"

	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/types"
)

// Read requests the given event classes and static data.
// Measurements are delivered to the ReadHandler before Read returns.
func (m *Master) Read(ctx context.Context, classes app.ClassField) error {
	_, err := m.submit(ctx, "read "+classes.String(), PriorityNormal, func(ctx context.Context) ([]types.CommandStatus, error) {
		ex, err := m.sendAndWait(ctx, app.FuncRead, app.BuildClassRead(classes))
		if err != nil {
			return nil, err
		}
		return nil, checkIIN(ex.iin)
	})
	return err
}

// DirectOperate executes commands without a preceding select
func (m *Master) DirectOperate(ctx context.Context, commands []types.Command) ([]types.CommandStatus, error) {
	objects, err := app.BuildCommands(commands)
	if err != nil {
		return nil, err
	}

	return m.submit(ctx, "direct operate", PriorityHigh, func(ctx context.Context) ([]types.CommandStatus, error) {
		return m.control(ctx, app.FuncDirectOperate, objects, len(commands))
	})
}

// SelectAndOperate selects the commands and operates them when every select succeeds
func (m *Master) SelectAndOperate(ctx context.Context, commands []types.Command) ([]types.CommandStatus, error) {
	objects, err := app.BuildCommands(commands)
	if err != nil {
		return nil, err
	}

	return m.submit(ctx, "select and operate", PriorityHigh, func(ctx context.Context) ([]types.CommandStatus, error) {
		statuses, err := m.control(ctx, app.FuncSelect, objects, len(commands))
		if err != nil {
			return statuses, fmt.Errorf("select: %w", err)
		}
		statuses, err = m.control(ctx, app.FuncOperate, objects, len(commands))
		if err != nil {
			return statuses, fmt.Errorf("operate: %w", err)
		}
		return statuses, nil
	})
}

// control sends one control request and checks the echoed statuses
func (m *Master) control(ctx context.Context, fc app.FunctionCode, objects []byte, expected int) ([]types.CommandStatus, error) {
	ex, err := m.sendAndWait(ctx, fc, objects)
	if err != nil {
		return nil, err
	}
	if err := checkIIN(ex.iin); err != nil {
		return nil, err
	}

	items, err := app.ParseCommands(ex.objects)
	if err != nil {
		return nil, fmt.Errorf("bad control response: %w", err)
	}
	if len(items) != expected {
		return nil, fmt.Errorf("%w: expected %d objects in response, got %d", ErrCommandFailed, expected, len(items))
	}

	statuses := make([]types.CommandStatus, len(items))
	for i, item := range items {
		statuses[i] = item.Status
	}
	for _, item := range items {
		if !item.Status.IsSuccess() {
			return statuses, fmt.Errorf("%w: index %d status %s", ErrCommandFailed, item.Command.Index, item.Status)
		}
	}
	return statuses, nil
}

func checkIIN(iin types.IIN) error {
	if iin.HasError() {
		return fmt.Errorf("%w: IIN=[%02X,%02X]", ErrRequestRejected, iin.IIN1, iin.IIN2)
	}
	return nil
}
