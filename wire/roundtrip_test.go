package wire

import (
	"errors"
	"testing"
	"time"

	"github.com/user/eightball-blue/eightball"
)

// askObserver asks its question as soon as a device appears.
type askObserver struct {
	central  *eightball.Central
	question string
	answers  chan string
	errs     chan error
}

func newAskObserver(central *eightball.Central, question string) *askObserver {
	return &askObserver{
		central:  central,
		question: question,
		answers:  make(chan string, 4),
		errs:     make(chan error, 4),
	}
}

func (o *askObserver) DeviceDiscovered(dev eightball.Device) {
	o.central.SendQuestion(dev.Peer, o.question)
}
func (o *askObserver) QuestionAsked(dev eightball.Device, question string) {}
func (o *askObserver) AnswerReceived(dev eightball.Device, answer string)  { o.answers <- answer }
func (o *askObserver) ErrorOccurred(err error)                             { o.errs <- err }

// answerObserver answers every question with a fixed response.
type answerObserver struct {
	peripheral *eightball.Peripheral
	answer     string
	questions  chan string
}

func newAnswerObserver(peripheral *eightball.Peripheral, answer string) *answerObserver {
	return &answerObserver{
		peripheral: peripheral,
		answer:     answer,
		questions:  make(chan string, 4),
	}
}

func (o *answerObserver) DeviceDiscovered(dev eightball.Device) {}
func (o *answerObserver) QuestionAsked(dev eightball.Device, question string) {
	o.questions <- question
	o.peripheral.SendAnswer(dev.Peer, o.answer)
}
func (o *answerObserver) AnswerReceived(dev eightball.Device, answer string) {}
func (o *answerObserver) ErrorOccurred(err error)                            {}

type rig struct {
	hub        *Hub
	askEnd     *Endpoint
	answerEnd  *Endpoint
	central    *eightball.Central
	peripheral *eightball.Peripheral
}

func newRig(t *testing.T, question, answer string) (*rig, *askObserver, *answerObserver) {
	t.Helper()
	hub := NewHub()
	answerEnd := hub.NewEndpoint("peripheral-end")
	askEnd := hub.NewEndpoint("central-end")
	t.Cleanup(answerEnd.Close)
	t.Cleanup(askEnd.Close)

	peripheral := eightball.NewPeripheral(answerEnd, eightball.PeripheralOptions{Name: "Magic 8-Ball"})
	answerEnd.SetPeripheralEvents(peripheral)
	answering := newAnswerObserver(peripheral, answer)
	peripheral.Subscribe(answering)

	central := eightball.NewCentral(askEnd, eightball.CentralOptions{
		AnswerTimeout: 250 * time.Millisecond,
	})
	askEnd.SetCentralEvents(central)
	asking := newAskObserver(central, question)
	central.Subscribe(asking)

	if err := peripheral.Start(); err != nil {
		t.Fatalf("peripheral start: %v", err)
	}
	if err := central.Start(); err != nil {
		t.Fatalf("central start: %v", err)
	}
	t.Cleanup(peripheral.Close)
	t.Cleanup(central.Close)

	return &rig{
		hub:        hub,
		askEnd:     askEnd,
		answerEnd:  answerEnd,
		central:    central,
		peripheral: peripheral,
	}, asking, answering
}

func TestRoundTrip(t *testing.T) {
	_, asking, answering := newRig(t, "Will it rain today?", "Yes.")

	if q := recv(t, answering.questions, "question at peripheral"); q != "Will it rain today?" {
		t.Errorf("peripheral saw question %q", q)
	}
	if a := recv(t, asking.answers, "answer at central"); a != "Yes." {
		t.Errorf("central saw answer %q", a)
	}
}

func TestRoundTripSecondQuestionOnLiveSession(t *testing.T) {
	r, asking, answering := newRig(t, "Will it rain today?", "Yes.")

	recv(t, answering.questions, "first question at peripheral")
	recv(t, asking.answers, "first answer at central")

	// The same session carries a follow-up question; the answer must arrive
	// instead of a timeout.
	r.central.SendQuestion(r.answerEnd.UUID(), "Second?")

	if q := recv(t, answering.questions, "second question at peripheral"); q != "Second?" {
		t.Errorf("peripheral saw question %q", q)
	}
	select {
	case a := <-asking.answers:
		if a != "Yes." {
			t.Errorf("second answer = %q", a)
		}
	case err := <-asking.errs:
		t.Fatalf("second ask failed instead of answering: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the second answer")
	}
}

func TestRoundTripEmptyQuestionRejected(t *testing.T) {
	_, asking, answering := newRig(t, "", "Yes.")

	err := recv(t, asking.errs, "rejection at central")
	var sendErr *eightball.SendError
	if !errors.As(err, &sendErr) || sendErr.Reason != eightball.QuestionPlease {
		t.Errorf("error = %v, want SendError{QuestionPlease}", err)
	}
	expectQuiet(t, answering.questions, "question event for an empty write")
	expectQuiet(t, asking.answers, "answer to an empty question")
}

func TestRoundTripLowRSSIPeerIgnored(t *testing.T) {
	hub := NewHub()
	answerEnd := hub.NewEndpoint("peripheral-end")
	answerEnd.SetRSSI(-100)
	askEnd := hub.NewEndpoint("central-end")
	defer answerEnd.Close()
	defer askEnd.Close()

	peripheral := eightball.NewPeripheral(answerEnd, eightball.PeripheralOptions{Name: "Magic 8-Ball"})
	answerEnd.SetPeripheralEvents(peripheral)

	central := eightball.NewCentral(askEnd, eightball.CentralOptions{})
	askEnd.SetCentralEvents(central)
	asking := newAskObserver(central, "Hello?")
	central.Subscribe(asking)

	if err := peripheral.Start(); err != nil {
		t.Fatalf("peripheral start: %v", err)
	}
	if err := central.Start(); err != nil {
		t.Fatalf("central start: %v", err)
	}
	defer peripheral.Close()
	defer central.Close()

	time.Sleep(150 * time.Millisecond)
	if got := len(central.Devices()); got != 0 {
		t.Errorf("devices = %d, want 0 for an out-of-range peer", got)
	}
	expectQuiet(t, asking.answers, "answer from an out-of-range peer")
}

func TestRoundTripPeripheralVanishes(t *testing.T) {
	r, asking, answering := newRig(t, "Going already?", "Yes.")

	// Let the exchange complete so the session is idle, then pull the plug.
	recv(t, answering.questions, "question at peripheral")
	recv(t, asking.answers, "answer at central")

	r.peripheral.Close()

	err := recv(t, asking.errs, "offline error at central")
	var sendErr *eightball.SendError
	if !errors.As(err, &sendErr) || sendErr.Reason != eightball.DeviceOffline {
		t.Errorf("error = %v, want SendError{DeviceOffline}", err)
	}
	if got := len(r.central.Devices()); got != 0 {
		t.Errorf("devices = %d, want 0 after the peer vanished", got)
	}
}

func TestRoundTripTimeoutWhenPeripheralSilent(t *testing.T) {
	hub := NewHub()
	answerEnd := hub.NewEndpoint("peripheral-end")
	askEnd := hub.NewEndpoint("central-end")
	defer answerEnd.Close()
	defer askEnd.Close()

	// The peripheral accepts questions but never answers them.
	peripheral := eightball.NewPeripheral(answerEnd, eightball.PeripheralOptions{Name: "Magic 8-Ball"})
	answerEnd.SetPeripheralEvents(peripheral)

	central := eightball.NewCentral(askEnd, eightball.CentralOptions{
		AnswerTimeout: 100 * time.Millisecond,
	})
	askEnd.SetCentralEvents(central)
	asking := newAskObserver(central, "Anyone home?")
	central.Subscribe(asking)

	if err := peripheral.Start(); err != nil {
		t.Fatalf("peripheral start: %v", err)
	}
	if err := central.Start(); err != nil {
		t.Fatalf("central start: %v", err)
	}
	defer peripheral.Close()
	defer central.Close()

	err := recv(t, asking.errs, "timeout error at central")
	var sendErr *eightball.SendError
	if !errors.As(err, &sendErr) || sendErr.Reason != eightball.DeviceOffline {
		t.Errorf("error = %v, want SendError{DeviceOffline}", err)
	}
	if q, ok := peripheral.PendingQuestion(askEnd.UUID()); !ok || q != "Anyone home?" {
		t.Errorf("peripheral pending = %q, %v; the unanswered question stays parked", q, ok)
	}
}
