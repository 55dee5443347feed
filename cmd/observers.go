package cmd

import (
	"github.com/user/eightball-blue/eightball"
)

// asker drives the Central side: it fires the question at the first ready
// device and hands the answer (or first error) back on a channel.
type asker struct {
	central  *eightball.Central
	question string
	asked    bool
	answers  chan string
	errs     chan error
}

func newAsker(central *eightball.Central, question string) *asker {
	return &asker{
		central:  central,
		question: question,
		answers:  make(chan string, 1),
		errs:     make(chan error, 1),
	}
}

func (a *asker) DeviceDiscovered(dev eightball.Device) {
	// One question per run; later discoveries are ignored.
	if a.asked {
		return
	}
	a.asked = true
	printInfo("found %s, asking...", dev.Name)
	a.central.SendQuestion(dev.Peer, a.question)
}

func (a *asker) QuestionAsked(eightball.Device, string) {}

func (a *asker) AnswerReceived(_ eightball.Device, answer string) {
	select {
	case a.answers <- answer:
	default:
	}
}

func (a *asker) ErrorOccurred(err error) {
	select {
	case a.errs <- err:
	default:
	}
}

// autoAnswerer drives the Peripheral side: every question gets a random
// answer from the canonical table.
type autoAnswerer struct {
	peripheral *eightball.Peripheral
}

func (a *autoAnswerer) DeviceDiscovered(eightball.Device) {}

func (a *autoAnswerer) QuestionAsked(dev eightball.Device, question string) {
	printInfo("question: %q", question)
	a.peripheral.SendAnswer(dev.Peer, eightball.RandomAnswer())
}

func (a *autoAnswerer) AnswerReceived(eightball.Device, string) {}

func (a *autoAnswerer) ErrorOccurred(err error) {
	printError(err)
}
