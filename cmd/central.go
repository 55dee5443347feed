package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/user/eightball-blue/config"
	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/tinyble"
)

func centralCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "central",
		Usage: "Scan for an answering peripheral over the radio and ask a question.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "question",
				Aliases: []string{"q"},
				Value:   "Will it rain today?",
				Usage:   "The question to ask.",
			},
		},
		Action: func(ctx *cli.Context) error {
			return runCentral(cfg.Values, ctx.String("question"))
		},
	}
}

func runCentral(v config.Values, question string) error {
	transport := tinyble.NewCentral()
	central := eightball.NewCentral(transport, eightball.CentralOptions{
		Name:          v.DeviceName,
		RSSIMin:       v.RSSIMin,
		RSSIMax:       v.RSSIMax,
		AnswerTimeout: v.Timeout(),
	})
	transport.SetEvents(central)
	if err := transport.Enable(); err != nil {
		return err
	}

	ask := newAsker(central, question)
	central.Subscribe(ask)
	if err := central.Start(); err != nil {
		return err
	}
	defer central.Close()
	printInfo("scanning for an 8-ball nearby (ctrl-c to stop)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	select {
	case answer := <-ask.answers:
		printAnswer(question, answer)
		return nil
	case err := <-ask.errs:
		return err
	case <-ctx.Done():
		printWarn("interrupted")
		return nil
	}
}
