package observability

import "context"

// MultiObserver forwards each event to its members in order.
type MultiObserver []Observer

// Multi combines observers into one. Nil and NoOpObserver members are
// dropped and nested MultiObservers are flattened, so Multi() is a
// NoOpObserver and Multi(o) is o itself.
func Multi(observers ...Observer) Observer {
	var flat MultiObserver
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case MultiObserver:
			flat = append(flat, o...)
		default:
			flat = append(flat, o)
		}
	}

	switch len(flat) {
	case 0:
		return NoOpObserver{}
	case 1:
		return flat[0]
	default:
		return flat
	}
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
