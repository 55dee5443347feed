package eightball

import "testing"

type countingObserver struct {
	events []string
}

func (o *countingObserver) DeviceDiscovered(dev Device) { o.events = append(o.events, "discovered") }
func (o *countingObserver) QuestionAsked(dev Device, question string) {
	o.events = append(o.events, "question")
}
func (o *countingObserver) AnswerReceived(dev Device, answer string) { o.events = append(o.events, "answer") }
func (o *countingObserver) ErrorOccurred(err error)                  { o.events = append(o.events, "error") }

func TestRegistry_SubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	o := &countingObserver{}

	id, ok := r.Subscribe(o)
	if !ok || id == "" {
		t.Fatalf("first subscribe: got id=%q ok=%v", id, ok)
	}

	id2, ok2 := r.Subscribe(o)
	if ok2 || id2 != "" {
		t.Errorf("second subscribe should not register: got id=%q ok=%v", id2, ok2)
	}
	if r.Len() != 1 {
		t.Errorf("registry size = %d, want 1", r.Len())
	}
}

func TestRegistry_UnsubscribeUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()
	known := &countingObserver{}
	unknown := &countingObserver{}
	r.Subscribe(known)

	r.Unsubscribe(unknown)

	if r.Len() != 1 {
		t.Errorf("registry size = %d, want 1", r.Len())
	}
	if !r.IsSubscribed(known) {
		t.Error("known observer should still be subscribed")
	}
	if r.IsSubscribed(unknown) {
		t.Error("unknown observer should not be subscribed")
	}
}

type orderObserver struct {
	countingObserver
	name  string
	order *[]string
	hook  func()
}

func (o *orderObserver) ErrorOccurred(err error) {
	*o.order = append(*o.order, o.name)
	if o.hook != nil {
		o.hook()
	}
}

func TestRegistry_DispatchFollowsSubscriptionOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		r.Subscribe(&orderObserver{name: name, order: &order})
	}

	r.errorOccurred(errDeviceOffline())

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}
}

func TestRegistry_RemovedDuringDispatchIsSkipped(t *testing.T) {
	r := NewRegistry()
	var order []string

	second := &orderObserver{name: "second", order: &order}
	first := &orderObserver{name: "first", order: &order}
	first.hook = func() { r.Unsubscribe(second) }

	r.Subscribe(first)
	r.Subscribe(second)

	r.errorOccurred(errDeviceOffline())

	if len(order) != 1 || order[0] != "first" {
		t.Errorf("visited %v, want [first] only", order)
	}
}

func TestRegistry_AddedDuringDispatchNotVisitedSamePass(t *testing.T) {
	r := NewRegistry()
	var order []string

	late := &orderObserver{name: "late", order: &order}
	first := &orderObserver{name: "first", order: &order}
	first.hook = func() { r.Subscribe(late) }
	r.Subscribe(first)

	r.errorOccurred(errDeviceOffline())
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("first pass visited %v, want [first]", order)
	}

	// The late subscriber is visited on the next pass.
	order = nil
	r.errorOccurred(errDeviceOffline())
	if len(order) != 2 {
		t.Errorf("second pass visited %v, want [first late]", order)
	}
}
