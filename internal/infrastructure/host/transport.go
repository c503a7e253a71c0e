package host

import (
	"context"

	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// Transport delivers one command to the browser shim and returns its reply
type Transport interface {
	Do(ctx context.Context, cmd Command) (*Reply, error)
}

// Over adapts a Transport into a Bridge
func Over(t Transport) Bridge {
	return transportBridge{t}
}

type transportBridge struct {
	t Transport
}

func (b transportBridge) GetTab(ctx context.Context, id types.EntityID) (*Tab, error) {
	reply, err := b.t.Do(ctx, Command{Method: MethodGetTab, TabID: id})
	if err != nil {
		return nil, err
	}
	tab, _, err := Decode(MethodGetTab, reply)
	return tab, err
}

func (b transportBridge) SetMuted(ctx context.Context, id types.EntityID, muted bool) error {
	reply, err := b.t.Do(ctx, Command{Method: MethodUpdate, TabID: id, Muted: &muted})
	if err != nil {
		return err
	}
	_, _, err = Decode(MethodUpdate, reply)
	return err
}

func (b transportBridge) SendMessage(ctx context.Context, id types.EntityID, msg types.Message) (*types.Response, error) {
	reply, err := b.t.Do(ctx, Command{Method: MethodSendMessage, TabID: id, Message: &msg})
	if err != nil {
		return nil, err
	}
	_, resp, err := Decode(MethodSendMessage, reply)
	return resp, err
}
